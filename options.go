package payright

import (
	"github.com/lestrrat-go/option"
	"github.com/lestrrat-go/payright/fingerprint"
	"github.com/lestrrat-go/payright/sign"
	"github.com/sirupsen/logrus"
)

type Option = option.Interface

type identExecutor struct{}

func (identExecutor) String() string { return "WithExecutor" }

type identLogger struct{}

func (identLogger) String() string { return "WithLogger" }

type identEnvironment struct{}

func (identEnvironment) String() string { return "WithEnvironment" }

type identCharset struct{}

func (identCharset) String() string { return "WithCharset" }

type identSignatureHeader struct{}

func (identSignatureHeader) String() string { return "WithSignatureHeader" }

type identFingerprintHeader struct{}

func (identFingerprintHeader) String() string { return "WithFingerprintHeader" }

type identEnvelopeFields struct{}

func (identEnvelopeFields) String() string { return "WithEnvelopeFields" }

type identAlgorithm struct{}

func (identAlgorithm) String() string { return "WithAlgorithm" }

type identRequireVerified struct{}

func (identRequireVerified) String() string { return "WithRequireVerified" }

// WithExecutor sets the transport used to reach the service. Typically a
// *transport.Manager shared by the whole application.
func WithExecutor(exec Executor) Option {
	return option.New(identExecutor{}, exec)
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger logrus.FieldLogger) Option {
	return option.New(identLogger{}, logger)
}

// WithEnvironment sets the environment described by the fingerprint header.
// The default is fingerprint.Static().
func WithEnvironment(env fingerprint.Environment) Option {
	return option.New(identEnvironment{}, env)
}

// WithCharset sets the charset announced in the Content-Type header.
func WithCharset(charset string) Option {
	return option.New(identCharset{}, charset)
}

// WithSignatureHeader sets the name of the header that carries the request
// body signature.
func WithSignatureHeader(name string) Option {
	return option.New(identSignatureHeader{}, name)
}

// WithFingerprintHeader sets the name of the client fingerprint header.
func WithFingerprintHeader(name string) Option {
	return option.New(identFingerprintHeader{}, name)
}

type envelopeFields struct {
	data      string
	signature string
}

// WithEnvelopeFields sets the JSON member names of the signed response
// envelope.
func WithEnvelopeFields(data, signature string) Option {
	return option.New(identEnvelopeFields{}, envelopeFields{data: data, signature: signature})
}

// WithAlgorithm sets the signature algorithm used in both directions.
func WithAlgorithm(alg sign.Algorithm) Option {
	return option.New(identAlgorithm{}, alg)
}

// WithRequireVerified makes responses that fail signature verification
// return an ErrVerificationFailure error in addition to the Unverified
// result.
func WithRequireVerified(require bool) Option {
	return option.New(identRequireVerified{}, require)
}
