// Package payright is a client for a remote authorization service that signs
// its responses.
//
// Two verbs are supported. A fetch is a GET without a body. A submit is a POST
// whose JSON body is signed with the client's RSA private key; the signature
// travels in a dedicated header. Every request carries the client's secret key
// in the Authorization header and an informational client fingerprint.
//
// Success responses arrive wrapped in an envelope:
//
//	{"data": "<JSON document as a string>", "signature": "<base64>"}
//
// The signature is verified against the exact bytes of the data string using
// the service's public key before the data is decoded into the caller's
// destination. Responses with an error status (>= 400) are decoded directly
// and are NOT authenticated; callers must treat them as untrusted.
//
// # Basic Usage
//
//	mgr, err := transport.New()
//	...
//	client, err := payright.New(payright.Credentials{
//		SecretKey:             secret,
//		PrivateKey:            privatePEM,
//		CounterpartyPublicKey: servicePEM,
//	}, payright.WithExecutor(mgr))
//	...
//	var order Order
//	res, err := client.Submit(ctx, "https://api.example.com/orders", body, &order)
//	if err != nil {
//		return err
//	}
//	if !res.Verified() {
//		// order is either an error body or the zero value
//	}
package payright

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/payright/fingerprint"
	"github.com/lestrrat-go/payright/sign"
	"github.com/lestrrat-go/payright/transport"
	"github.com/sirupsen/logrus"
)

// Executor carries a prepared request to the service. *transport.Manager
// implements it.
type Executor interface {
	Execute(ctx context.Context, method, url string, header http.Header, body []byte) (int, []byte, error)
}

// Credentials is the key material a Client works with. Keys are PEM text or
// bare base64 DER.
type Credentials struct {
	// SecretKey is sent verbatim in the Authorization header. It is not used
	// for signing.
	SecretKey string

	// PrivateKey is the client's RSA private key, used to sign submit bodies.
	PrivateKey string

	// CounterpartyPublicKey is the service's RSA public key, used to verify
	// response envelopes.
	CounterpartyPublicKey string
}

// Client sends signed requests and verifies signed responses. It is safe for
// concurrent use; nothing in it changes after New returns.
type Client struct {
	exec   Executor
	logger logrus.FieldLogger

	secretKey  string
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey

	headers         headerSettings
	envelope        envelopeSettings
	fingerprint     string
	algorithm       sign.Algorithm
	requireVerified bool
}

// New creates a Client. Non-blank keys are parsed immediately and New fails
// if they are malformed. Blank credentials are accepted here and reported by
// every call instead, before any network access.
//
// Without WithExecutor, New builds a private transport.Manager with default
// settings. Applications should create one Manager and share it.
func New(creds Credentials, options ...Option) (*Client, error) {
	var exec Executor
	var logger logrus.FieldLogger = logrus.StandardLogger()
	env := fingerprint.Static()
	headers := headerSettings{
		charset:           DefaultCharset,
		signatureHeader:   DefaultSignatureHeader,
		fingerprintHeader: DefaultFingerprintHeader,
	}
	fields := envelopeSettings{
		dataField:      DefaultDataField,
		signatureField: DefaultSignatureField,
	}
	alg := sign.DefaultAlgorithm
	var requireVerified bool

	for _, option := range options {
		switch option.Ident() {
		case identExecutor{}:
			v, ok := option.Value().(Executor)
			if !ok || v == nil {
				return nil, fmt.Errorf("executor must not be nil")
			}
			exec = v
		case identLogger{}:
			if l, ok := option.Value().(logrus.FieldLogger); ok && l != nil {
				logger = l
			}
		case identEnvironment{}:
			env = option.Value().(fingerprint.Environment)
		case identCharset{}:
			headers.charset = option.Value().(string)
		case identSignatureHeader{}:
			headers.signatureHeader = option.Value().(string)
		case identFingerprintHeader{}:
			headers.fingerprintHeader = option.Value().(string)
		case identEnvelopeFields{}:
			v := option.Value().(envelopeFields)
			fields.dataField = v.data
			fields.signatureField = v.signature
		case identAlgorithm{}:
			alg = option.Value().(sign.Algorithm)
		case identRequireVerified{}:
			requireVerified = option.Value().(bool)
		}
	}

	if err := alg.Validate(); err != nil {
		return nil, err
	}
	if headers.charset == "" || headers.signatureHeader == "" || headers.fingerprintHeader == "" {
		return nil, fmt.Errorf("charset and header names must not be empty")
	}
	if fields.dataField == "" || fields.signatureField == "" || fields.dataField == fields.signatureField {
		return nil, fmt.Errorf("envelope member names must be non-empty and distinct")
	}

	fp, err := fingerprint.Header(env)
	if err != nil {
		return nil, err
	}

	c := &Client{
		exec:            exec,
		logger:          logger,
		secretKey:       strings.TrimSpace(creds.SecretKey),
		headers:         headers,
		envelope:        fields,
		fingerprint:     fp,
		algorithm:       alg,
		requireVerified: requireVerified,
	}

	if !isBlank(creds.PrivateKey) {
		priv, err := sign.ParsePrivateKey(creds.PrivateKey)
		if err != nil {
			return nil, localMisconfiguration(DetailPrivateKey, err)
		}
		c.privateKey = priv
	}

	if !isBlank(creds.CounterpartyPublicKey) {
		pub, err := sign.ParsePublicKey(creds.CounterpartyPublicKey)
		if err != nil {
			return nil, &Error{Kind: KindMissingTrustMaterial, Err: err}
		}
		c.publicKey = pub
	}

	if c.exec == nil {
		mgr, err := transport.New(transport.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create default transport: %w", err)
		}
		c.exec = mgr
	}

	return c, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// preflight checks the credentials. It runs before anything touches the
// network.
func (c *Client) preflight() error {
	if c.secretKey == "" {
		return localMisconfiguration(DetailSecretKey, fmt.Errorf("secret key must not be blank"))
	}
	if c.privateKey == nil {
		return localMisconfiguration(DetailPrivateKey, fmt.Errorf("private key must not be blank"))
	}
	if c.publicKey == nil {
		return &Error{Kind: KindMissingTrustMaterial, Err: fmt.Errorf("counterparty public key must not be blank")}
	}
	return nil
}

// Request calls url and decodes the response into dst, which must be a
// non-nil pointer. A blank body makes the call a fetch (GET); otherwise it is
// a submit (POST) and body is signed exactly as transmitted.
//
// When the service answered, the returned Result tells how dst was filled:
// with a verified payload, with an unauthenticated error body, or reset to
// its zero value because the success envelope did not verify. Failures before
// or during transmission are reported as *Error with the matching Kind.
func (c *Client) Request(ctx context.Context, url string, body []byte, dst any) (*Result, error) {
	if err := c.preflight(); err != nil {
		return nil, err
	}
	if err := checkDestination(dst); err != nil {
		return nil, err
	}

	req := buildRequest(c.headers, c.secretKey, c.fingerprint, url, body)
	if req.IsSubmit() {
		sig, err := sign.Sign(req.Body, c.privateKey, sign.WithAlgorithm(c.algorithm))
		if err != nil {
			return nil, localMisconfiguration(DetailPrivateKey, err)
		}
		req.Header.Set(c.headers.signatureHeader, sig)
	}

	c.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL,
		"submit": req.IsSubmit(),
	}).Debug("payright: sending request")

	status, raw, err := c.exec.Execute(ctx, req.Method, req.URL, req.Header, req.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransportFailure, Err: err}
	}

	return c.validateResponse(status, raw, dst)
}

// Fetch issues a GET to url and decodes the response into dst.
func (c *Client) Fetch(ctx context.Context, url string, dst any) (*Result, error) {
	return c.Request(ctx, url, nil, dst)
}

// Submit issues a signed POST of body to url and decodes the response into
// dst. Unlike Request, a blank body is rejected instead of turning the call
// into a fetch.
func (c *Client) Submit(ctx context.Context, url string, body []byte, dst any) (*Result, error) {
	if isBlankBody(body) {
		return nil, fmt.Errorf("submit requires a non-blank body")
	}
	return c.Request(ctx, url, body, dst)
}

// Call is the generic form of Client.Request. It returns the decoded value
// of type T along with the Result.
func Call[T any](ctx context.Context, c *Client, url string, body []byte) (T, *Result, error) {
	var v T
	res, err := c.Request(ctx, url, body, &v)
	return v, res, err
}
