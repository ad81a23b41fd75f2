package payright

import (
	"errors"
	"fmt"
)

// Kind classifies the failures a Client reports.
type Kind int

const (
	// KindLocalMisconfiguration means the client's own secret key or private
	// key is missing or unusable. Reported before any network I/O.
	KindLocalMisconfiguration Kind = iota + 1

	// KindMissingTrustMaterial means the service public key is missing.
	// Reported before any network I/O.
	KindMissingTrustMaterial

	// KindTransportFailure means the request could not be carried out at the
	// network level. The client does not retry.
	KindTransportFailure

	// KindVerificationFailure means a success response did not carry a valid
	// signature. Only reported as an error when WithRequireVerified is set.
	KindVerificationFailure
)

func (k Kind) String() string {
	switch k {
	case KindLocalMisconfiguration:
		return "local misconfiguration"
	case KindMissingTrustMaterial:
		return "missing trust material"
	case KindTransportFailure:
		return "transport failure"
	case KindVerificationFailure:
		return "verification failure"
	default:
		return fmt.Sprintf("unknown error kind (%d)", int(k))
	}
}

// Sentinel values for use with errors.Is.
var (
	ErrLocalMisconfiguration = &Error{Kind: KindLocalMisconfiguration}
	ErrMissingTrustMaterial  = &Error{Kind: KindMissingTrustMaterial}
	ErrTransportFailure      = &Error{Kind: KindTransportFailure}
	ErrVerificationFailure   = &Error{Kind: KindVerificationFailure}
)

// Detail values carried by KindLocalMisconfiguration errors.
const (
	DetailSecretKey  = "secret key"
	DetailPrivateKey = "private key"
)

// Error is the error type returned by Client for the failure kinds above.
type Error struct {
	Kind Kind

	// Detail names the offending item, e.g. which key was missing.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := "payright: " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same Kind. A target with a Detail only matches
// errors with the same Detail.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Detail == "" || t.Detail == e.Detail
}

func localMisconfiguration(detail string, err error) error {
	return &Error{Kind: KindLocalMisconfiguration, Detail: detail, Err: err}
}
