package services

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// NetworkFailure: the request could not complete, returned a non-success
	// status, or carried a body that could not be decoded.
	NetworkFailure ErrorKind = iota + 1
	// EmptyResult: the request succeeded but yielded zero recipes.
	EmptyResult
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkFailure:
		return "network_failure"
	case EmptyResult:
		return "empty_result"
	default:
		return "none"
	}
}

// FetchError is returned by the recipe client.
type FetchError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

var (
	ErrNetworkFailure = &FetchError{Kind: NetworkFailure}
	ErrEmptyResult    = &FetchError{Kind: EmptyResult}
)

func (e *FetchError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches any FetchError of the same kind, so
// errors.Is(err, ErrNetworkFailure) works on wrapped failures.
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the error kind, or 0 if err is not a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

func networkFailure(op string, err error) *FetchError {
	return &FetchError{Kind: NetworkFailure, Op: op, Err: err}
}
