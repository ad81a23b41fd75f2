package payright

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/lestrrat-go/payright/sign"
	"github.com/sirupsen/logrus"
)

// ResultKind tells how the value stored in the destination was obtained.
type ResultKind int

const (
	// ResultVerified means the response was a success envelope whose
	// signature verified; the destination holds the decoded payload.
	ResultVerified ResultKind = iota + 1

	// ResultErrorBody means the service answered with an error status
	// (>= 400); the destination holds the decoded error body. Error bodies
	// are not signed and therefore NOT authenticated.
	ResultErrorBody

	// ResultUnverified means the response claimed success but its signature
	// could not be verified; the destination has been reset to its zero
	// value. This is not the same as a genuine empty result.
	ResultUnverified
)

func (k ResultKind) String() string {
	switch k {
	case ResultVerified:
		return "verified"
	case ResultErrorBody:
		return "error body"
	case ResultUnverified:
		return "unverified"
	default:
		return fmt.Sprintf("unknown result kind (%d)", int(k))
	}
}

// Result describes the outcome of a call that reached the service.
type Result struct {
	StatusCode int
	Kind       ResultKind

	reason error
}

// Verified reports whether the destination holds an authenticated payload.
func (r *Result) Verified() bool {
	return r != nil && r.Kind == ResultVerified
}

// IsErrorBody reports whether the destination holds an unauthenticated
// error body.
func (r *Result) IsErrorBody() bool {
	return r != nil && r.Kind == ResultErrorBody
}

// Reason returns why verification failed for ResultUnverified results, and
// nil otherwise.
func (r *Result) Reason() error {
	if r == nil {
		return nil
	}
	return r.reason
}

var errSignatureMismatch = errors.New("signature does not match envelope data")

type envelopeSettings struct {
	dataField      string
	signatureField string
}

// validateResponse interprets a raw response and fills dst. Whenever a body
// is decoded, dst is reset first so it holds exactly what the body says.
func (c *Client) validateResponse(status int, raw []byte, dst any) (*Result, error) {
	if status >= http.StatusBadRequest {
		res := &Result{StatusCode: status, Kind: ResultErrorBody}
		if len(bytes.TrimSpace(raw)) == 0 {
			return res, nil
		}
		reset(dst)
		if err := decode(raw, dst); err != nil {
			return res, fmt.Errorf("failed to decode error body (status %d): %w", status, err)
		}
		return res, nil
	}

	data, err := c.openEnvelope(raw)
	if err != nil {
		return c.unverified(status, dst, err)
	}

	res := &Result{StatusCode: status, Kind: ResultVerified}
	reset(dst)
	if err := decode([]byte(data), dst); err != nil {
		return res, err
	}
	return res, nil
}

// openEnvelope returns the data member of a success envelope once its
// signature has been verified against the exact bytes of that member.
func (c *Client) openEnvelope(raw []byte) (string, error) {
	env, err := parseEnvelope(raw)
	if err != nil {
		return "", err
	}

	data, err := env.stringField(c.envelope.dataField)
	if err != nil {
		return "", err
	}

	signature, err := env.stringField(c.envelope.signatureField)
	if err != nil {
		return "", err
	}

	if !sign.Verify([]byte(data), signature, c.publicKey, sign.WithAlgorithm(c.algorithm)) {
		return "", errSignatureMismatch
	}
	return data, nil
}

func (c *Client) unverified(status int, dst any, reason error) (*Result, error) {
	reset(dst)

	c.logger.WithFields(logrus.Fields{
		"status": status,
		"reason": reason.Error(),
	}).Warn("payright: response signature could not be verified, returning empty result")

	res := &Result{StatusCode: status, Kind: ResultUnverified, reason: reason}
	if c.requireVerified {
		return res, &Error{Kind: KindVerificationFailure, Err: reason}
	}
	return res, nil
}
