// Package payrighttest provides an in-process stand-in for the payright
// service, for use in tests.
//
// A Server verifies the signature on incoming submit requests, hands the
// request to a Handler, and wraps successful handler output in a signed
// envelope the way the real service does. Error statuses are written as-is,
// unsigned.
package payrighttest

import (
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/goccy/go-json"
	"github.com/lestrrat-go/payright/sign"
)

// Request is what the Server recorded about an incoming call.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte

	// SignatureValid is true when a submit body carried a signature header
	// that verified against the client key.
	SignatureValid bool
}

// Handler produces the response for a request that passed verification.
// For statuses below 400 the payload is the JSON document placed in the
// envelope's data member; otherwise it is written as the response body.
type Handler func(r *Request) (status int, payload []byte)

// StaticHandler always answers with the given status and payload.
func StaticHandler(status int, payload string) Handler {
	return func(*Request) (int, []byte) {
		return status, []byte(payload)
	}
}

// Server is an httptest.Server that speaks the payright wire protocol.
type Server struct {
	*httptest.Server

	serviceKey *rsa.PrivateKey
	clientKey  *rsa.PublicKey
	handler    Handler

	signatureHeader   string
	dataField         string
	signatureField    string
	algorithm         sign.Algorithm
	tamper            bool
	skipVerifyRequest bool

	mu       sync.Mutex
	requests []*Request
}

// NewServer starts a plain HTTP Server. serviceKey signs envelopes;
// clientKey verifies submit bodies.
func NewServer(serviceKey *rsa.PrivateKey, clientKey *rsa.PublicKey, h Handler, options ...Option) *Server {
	s := newServer(serviceKey, clientKey, h, options...)
	s.Server = httptest.NewServer(s)
	return s
}

// NewTLSServer is like NewServer but serves HTTPS with a self-signed
// certificate; see httptest.Server.Certificate.
func NewTLSServer(serviceKey *rsa.PrivateKey, clientKey *rsa.PublicKey, h Handler, options ...Option) *Server {
	s := newServer(serviceKey, clientKey, h, options...)
	s.Server = httptest.NewTLSServer(s)
	return s
}

func newServer(serviceKey *rsa.PrivateKey, clientKey *rsa.PublicKey, h Handler, options ...Option) *Server {
	s := &Server{
		serviceKey:      serviceKey,
		clientKey:       clientKey,
		handler:         h,
		signatureHeader: "X-Signature",
		dataField:       "data",
		signatureField:  "signature",
		algorithm:       sign.DefaultAlgorithm,
	}

	for _, option := range options {
		switch option.Ident() {
		case identSignatureHeader{}:
			s.signatureHeader = option.Value().(string)
		case identEnvelopeFields{}:
			v := option.Value().(envelopeFields)
			s.dataField = v.data
			s.signatureField = v.signature
		case identAlgorithm{}:
			s.algorithm = option.Value().(sign.Algorithm)
		case identTamper{}:
			s.tamper = option.Value().(bool)
		case identSkipVerifyRequest{}:
			s.skipVerifyRequest = option.Value().(bool)
		}
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %s", err))
		return
	}

	req := &Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
	}
	if len(body) > 0 {
		req.Body = body
		req.SignatureValid = sign.Verify(body, r.Header.Get(s.signatureHeader), s.clientKey, sign.WithAlgorithm(s.algorithm))
	}
	s.record(req)

	// Submit bodies must be signed by the client
	if req.Body != nil && !req.SignatureValid && !s.skipVerifyRequest {
		writeError(w, http.StatusUnauthorized, "request signature verification failed")
		return
	}

	status, payload := s.handler(req)
	if status >= http.StatusBadRequest {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(payload)
		return
	}

	envelope, err := SealEnvelope(payload, s.serviceKey,
		WithEnvelopeFields(s.dataField, s.signatureField),
		WithAlgorithm(s.algorithm),
		WithTamper(s.tamper),
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(envelope)
}

func (s *Server) record(r *Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
}

// Requests returns a copy of the requests received so far.
func (s *Server) Requests() []*Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Request(nil), s.requests...)
}

// LastRequest returns the most recent request, or nil.
func (s *Server) LastRequest() *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"err": msg})
}

// SealEnvelope signs data with key and returns the JSON envelope carrying
// both. data is placed in the envelope verbatim, as a string.
func SealEnvelope(data []byte, key *rsa.PrivateKey, options ...EnvelopeOption) ([]byte, error) {
	dataField := "data"
	signatureField := "signature"
	alg := sign.DefaultAlgorithm
	var tamper bool

	for _, option := range options {
		switch option.Ident() {
		case identEnvelopeFields{}:
			v := option.Value().(envelopeFields)
			dataField = v.data
			signatureField = v.signature
		case identAlgorithm{}:
			alg = option.Value().(sign.Algorithm)
		case identTamper{}:
			tamper = option.Value().(bool)
		}
	}

	signature, err := sign.Sign(data, key, sign.WithAlgorithm(alg))
	if err != nil {
		return nil, fmt.Errorf("failed to sign envelope data: %w", err)
	}
	if tamper {
		signature = corrupt(signature)
	}

	buf, err := json.Marshal(map[string]string{
		dataField:      string(data),
		signatureField: signature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return buf, nil
}

// corrupt flips one character of a base64 signature, keeping it decodable.
func corrupt(signature string) string {
	b := []byte(signature)
	if len(b) == 0 {
		return "AAAA"
	}
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	return string(b)
}
