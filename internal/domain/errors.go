package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed remote fetch.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTimeout
	KindTooManyRequests
	KindNoConnectivity
	KindServerError
	KindSerialization
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindNoConnectivity:
		return "no_connectivity"
	case KindServerError:
		return "server_error"
	case KindSerialization:
		return "serialization"
	default:
		return "unknown"
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// FetchError is returned by rate sources, Err keeps the underlying cause.
type FetchError struct {
	Kind ErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func NewFetchError(kind ErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind of err. Errors that are not a FetchError
// are classified as timeout when caused by a context deadline, unknown otherwise.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}
