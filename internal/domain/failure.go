package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a store event could not be applied.
type FailureKind int

const (
	// KindPersistence is a transient storage or connectivity fault; retrying may succeed.
	KindPersistence FailureKind = iota
	// KindDecode is a malformed body or unknown routing key; retrying will not help.
	KindDecode
	// KindNotFound is an update or deactivate for a store that does not exist yet.
	KindNotFound
	// KindConflict is a create for a store id that already holds different data.
	KindConflict
	// KindConfiguration is missing or invalid external configuration.
	KindConfiguration
)

// String returns the metric/log label for the kind.
func (k FailureKind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindConfiguration:
		return "configuration"
	default:
		return "persistence"
	}
}

// Permanent returns true when redelivering the same message cannot succeed
// without an upstream fix.
func (k FailureKind) Permanent() bool {
	return k == KindDecode || k == KindConfiguration
}

// Failure is the error returned by the event pipeline. Kind drives the
// poller's redelivery decision.
type Failure struct {
	Kind FailureKind
	// Op names the step that failed, e.g. "create store".
	Op  string
	Err error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure classifies err and wraps it as a Failure.
func NewFailure(op string, err error) *Failure {
	return &Failure{Kind: KindOf(err), Op: op, Err: err}
}

// Decode errors.
var (
	ErrUnknownRoutingKey = errors.New("unknown routing key")
	ErrMalformedBody     = errors.New("malformed message body")
	ErrMissingField      = errors.New("missing required field")
)

// DecodeError reports a message that could not be turned into a StoreEvent.
type DecodeError struct {
	RoutingKey string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q event: %v", e.RoutingKey, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrConfiguration marks fatal startup configuration problems.
var ErrConfiguration = errors.New("invalid configuration")

// KindOf classifies an arbitrary error into a FailureKind.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	var de *DecodeError
	switch {
	case errors.As(err, &de):
		return KindDecode
	case errors.Is(err, ErrStoreNotFound):
		return KindNotFound
	case errors.Is(err, ErrStoreAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindPersistence
	}
}
