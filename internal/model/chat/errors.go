package chat

import (
	"errors"
	"fmt"
)

// ErrorKind classifies how a conversation turn failed.
type ErrorKind string

const (
	// KindValidation rejects the caller's input before any state changes.
	KindValidation ErrorKind = "validation"
	// KindTransport means no upstream response was received at all.
	KindTransport ErrorKind = "transport"
	// KindUpstream means the provider answered with a failure status.
	KindUpstream ErrorKind = "upstream"
	// KindMalformedResponse means a success status carried no usable reply.
	KindMalformedResponse ErrorKind = "malformed_response"
)

// TurnError is the structured failure of one conversation turn. Status is
// the upstream HTTP status and only set for KindUpstream.
type TurnError struct {
	Kind   ErrorKind
	Detail string
	Status int
	Err    error
}

func (e *TurnError) Error() string {
	if e.Kind == KindUpstream && e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Detail, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// ValidationError rejects caller input. It is always raised before any
// session state is touched.
func ValidationError(detail string) *TurnError {
	return &TurnError{Kind: KindValidation, Detail: detail}
}

// TransportError wraps a failure to reach the upstream provider.
func TransportError(detail string, err error) *TurnError {
	return &TurnError{Kind: KindTransport, Detail: detail, Err: err}
}

// UpstreamError wraps a non-success answer from the provider.
func UpstreamError(status int, detail string, err error) *TurnError {
	return &TurnError{Kind: KindUpstream, Detail: detail, Status: status, Err: err}
}

// MalformedResponseError marks a success response missing the assistant turn.
func MalformedResponseError(detail string) *TurnError {
	return &TurnError{Kind: KindMalformedResponse, Detail: detail}
}

// AsTurnError unwraps err to a *TurnError when one is in the chain.
func AsTurnError(err error) (*TurnError, bool) {
	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		return turnErr, true
	}
	return nil, false
}
