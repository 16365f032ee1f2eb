package records

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a record store request failed
type ErrorKind string

const (
	KindNetwork ErrorKind = "network" // connection refused, reset, DNS
	KindTimeout ErrorKind = "timeout" // request exceeded the client timeout or ctx deadline
	KindStatus  ErrorKind = "status"  // non-2xx response
	KindEncode  ErrorKind = "encode"  // payload could not be marshalled
	KindDecode  ErrorKind = "decode"  // response body was not the expected JSON
)

// RequestError is returned by every Client operation that does not complete.
// Callers must not assume any part of the operation took effect.
type RequestError struct {
	Kind       ErrorKind
	Method     string
	Endpoint   string
	StatusCode int    // set for KindStatus
	Body       string // truncated response body for KindStatus
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("records: %s %s: %d %s", e.Method, e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return fmt.Sprintf("records: %s %s: %s: %v", e.Method, e.Endpoint, e.Kind, e.Err)
	default:
		return fmt.Sprintf("records: %s %s: %s", e.Method, e.Endpoint, e.Kind)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the record store
func IsNotFound(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == KindStatus && re.StatusCode == http.StatusNotFound
}

// IsTimeout reports whether err is a request that ran out of time
func IsTimeout(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == KindTimeout
}
