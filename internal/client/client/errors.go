package client

import (
	"errors"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// Error classes the client reacts to.
const (
	ClassTokenExpired = "token_expired"
	ClassIncorrect    = "incorrect_flag"
)

// APIError is a non-2xx response decoded from the error body.
type APIError struct {
	Status  int
	Class   string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// Is makes every 401 match ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// HasClass reports whether err is an *APIError of the given class.
func HasClass(err error, class string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == class
}
