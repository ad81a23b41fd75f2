package payrighttest

import (
	"github.com/lestrrat-go/option"
	"github.com/lestrrat-go/payright/sign"
)

type Option = option.Interface

// EnvelopeOption configures SealEnvelope. Every EnvelopeOption is also
// accepted by NewServer.
type EnvelopeOption interface {
	Option
	envelopeOption()
}

type envelopeOption struct {
	Option
}

func (envelopeOption) envelopeOption() {}

type identSignatureHeader struct{}

func (identSignatureHeader) String() string { return "WithSignatureHeader" }

type identEnvelopeFields struct{}

func (identEnvelopeFields) String() string { return "WithEnvelopeFields" }

type identAlgorithm struct{}

func (identAlgorithm) String() string { return "WithAlgorithm" }

type identTamper struct{}

func (identTamper) String() string { return "WithTamper" }

type identSkipVerifyRequest struct{}

func (identSkipVerifyRequest) String() string { return "WithSkipVerifyRequest" }

type envelopeFields struct {
	data      string
	signature string
}

// WithSignatureHeader sets the request header holding the body signature.
func WithSignatureHeader(name string) Option {
	return option.New(identSignatureHeader{}, name)
}

// WithEnvelopeFields sets the JSON member names of the envelope.
func WithEnvelopeFields(data, signature string) EnvelopeOption {
	return envelopeOption{option.New(identEnvelopeFields{}, envelopeFields{data: data, signature: signature})}
}

// WithAlgorithm sets the signature algorithm.
func WithAlgorithm(alg sign.Algorithm) EnvelopeOption {
	return envelopeOption{option.New(identAlgorithm{}, alg)}
}

// WithTamper corrupts envelope signatures, simulating a forged or altered
// response.
func WithTamper(tamper bool) EnvelopeOption {
	return envelopeOption{option.New(identTamper{}, tamper)}
}

// WithSkipVerifyRequest makes the server accept submit bodies whose
// signature does not verify. The outcome is still recorded in
// Request.SignatureValid.
func WithSkipVerifyRequest(skip bool) Option {
	return option.New(identSkipVerifyRequest{}, skip)
}
