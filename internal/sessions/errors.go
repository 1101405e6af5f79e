package sessions

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the API rejects the credentials.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrTerminalSession is returned by Refresh when the session cannot be renewed.
	// Callers must sign the user out; it is never retried.
	ErrTerminalSession = errors.New("session cannot be refreshed")
	// ErrNoSession is returned when an operation needs a session and none was given.
	ErrNoSession = errors.New("no session")
)
