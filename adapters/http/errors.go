package http

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingRelationID is returned by FetchRelation when the relation was
// built from a record without a "<field>_id" value. No request is sent.
var ErrMissingRelationID = errors.New("relation has no id")

// StatusError is returned when the content API answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error returns the error message.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is a 404 from the content API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// UnknownBuiltinError is returned for a relation to a builtin this client
// cannot fetch.
type UnknownBuiltinError struct {
	Name string
}

// Error returns the error message.
func (e *UnknownBuiltinError) Error() string {
	return fmt.Sprintf("unknown builtin type: %s", e.Name)
}
