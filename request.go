package payright

import (
	"bytes"
	"net/http"
)

// Default wire names.
const (
	DefaultCharset           = "UTF-8"
	DefaultSignatureHeader   = "X-Signature"
	DefaultFingerprintHeader = "X-Client-Fingerprint"
	DefaultDataField         = "data"
	DefaultSignatureField    = "signature"
)

// OutboundRequest is a fully prepared request, ready to hand to an Executor.
type OutboundRequest struct {
	Method string
	URL    string

	// Body is nil for fetch requests.
	Body   []byte
	Header http.Header
}

// IsSubmit reports whether the request carries a body.
func (r *OutboundRequest) IsSubmit() bool {
	return r.Body != nil
}

// headerSettings holds the wire names used when building requests.
type headerSettings struct {
	charset           string
	signatureHeader   string
	fingerprintHeader string
}

// isBlankBody reports whether body selects the fetch verb.
func isBlankBody(body []byte) bool {
	return len(bytes.TrimSpace(body)) == 0
}

// buildRequest assembles the outbound request. It performs no I/O and reads
// nothing but its arguments: the fingerprint is passed in already rendered.
// A submit still lacks its signature header; the caller signs req.Body, the
// exact bytes that will be transmitted, and sets it.
func buildRequest(settings headerSettings, secretKey, fingerprint, url string, body []byte) *OutboundRequest {
	hdr := make(http.Header)
	hdr.Set("Content-Type", "application/json; charset="+settings.charset)
	hdr.Set("Authorization", secretKey)
	hdr.Set(settings.fingerprintHeader, fingerprint)

	req := &OutboundRequest{
		Method: http.MethodGet,
		URL:    url,
		Header: hdr,
	}

	if !isBlankBody(body) {
		req.Method = http.MethodPost
		req.Body = body
	}
	return req
}
