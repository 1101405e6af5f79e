package apiclient

import (
	"context"
	"errors"
	"net/http"
)

// SetBearer sets the Authorization header used by the API.
// The scheme is always "Bearer" regardless of the token_type casing returned at login.
func SetBearer(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
}

// WithBearer returns an editor attaching accessToken to a request.
func WithBearer(accessToken string) RequestEditorFn {
	return func(_ context.Context, req *http.Request) error {
		if accessToken == "" {
			return errors.New("missing access token")
		}
		SetBearer(req, accessToken)
		return nil
	}
}
