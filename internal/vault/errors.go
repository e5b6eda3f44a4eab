package vault

import (
	"errors"
	"fmt"
)

// ErrNoIdentity is returned when an operation needs a signed-in user and
// none was supplied. It is matched with errors.Is against any
// *PreconditionError.
var ErrNoIdentity = errors.New("no user identity")

// NetworkError reports a transport failure: the request never produced
// an HTTP response, or its body could not be read.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a non-2xx response. JSON is true when the body is
// any valid JSON value; Message holds its "error" field when the body is
// an object carrying one, and is empty otherwise.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
	Body       string
	JSON       bool
}

func (e *ServerError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}
	if detail == "" {
		return fmt.Sprintf("%s failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, detail)
}

// MalformedResponseError reports a 2xx response whose body did not decode
// into the expected shape.
type MalformedResponseError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response (status %d): %v", e.Op, e.StatusCode, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// PreconditionError reports an operation that was refused before any
// request was sent.
type PreconditionError struct {
	Op     string
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// RequireIdentity returns a *PreconditionError wrapping ErrNoIdentity when
// id carries no user.
func RequireIdentity(op string, id Identity) error {
	if id.Present() {
		return nil
	}
	return &PreconditionError{Op: op, Reason: "you must be logged in", Err: ErrNoIdentity}
}

// Message returns the text a user should see for err. Server errors with
// a JSON "error" field surface that field alone.
func Message(err error) string {
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	var pe *PreconditionError
	if errors.As(err, &pe) && pe.Reason != "" {
		return pe.Reason
	}
	return err.Error()
}
