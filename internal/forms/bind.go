package forms

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Normalizer is implemented by forms that clean their input before validation.
type Normalizer interface {
	Normalize()
}

// Bind maps the request form onto form, normalizes it and only then runs the
// "binding" rules, so the rules see the values that will be submitted.
// The form is populated even when validation fails.
func Bind(c *gin.Context, form interface{}) error {
	if err := c.Request.ParseForm(); err != nil {
		return err
	}
	if err := binding.MapFormWithTag(form, c.Request.Form, "form"); err != nil {
		return err
	}
	if n, ok := form.(Normalizer); ok {
		n.Normalize()
	}
	return binding.Validator.ValidateStruct(form)
}
