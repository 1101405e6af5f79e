package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a binding error for form to messages keyed by form tag.
// Errors that are not validator errors (e.g. a malformed body) come back
// under the "" key.
func FieldErrors(form interface{}, err error) map[string]string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": "The form could not be read."}
	}
	t := reflect.TypeOf(form)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key, label := fe.Field(), fe.Field()
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if tag := strings.Split(sf.Tag.Get("form"), ",")[0]; tag != "" {
				key = tag
			}
			if l := sf.Tag.Get("label"); l != "" {
				label = l
			}
		}
		if _, seen := out[key]; !seen {
			out[key] = message(label, fe)
		}
	}
	return out
}

func message(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "eqfield":
		return "Passwords do not match."
	}
	return label + " is invalid."
}
