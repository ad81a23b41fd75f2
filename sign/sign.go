// Package sign implements the RSA signature primitives used by the payright
// client: signing outbound request bodies and verifying the signatures the
// service attaches to its response envelopes.
//
// Signatures are computed over raw bytes with JWX's jwsbb (JWS Bare Bones)
// primitives. No JOSE header is involved; the payload is signed exactly as it
// is transmitted, and the result is encoded with standard base64.
package sign

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jws/jwsbb"
)

// Algorithm identifies an RSA signature scheme.
type Algorithm string

const (
	RS256 Algorithm = "RS256"
	RS384 Algorithm = "RS384"
	RS512 Algorithm = "RS512"
	PS256 Algorithm = "PS256"
	PS384 Algorithm = "PS384"
	PS512 Algorithm = "PS512"
)

// DefaultAlgorithm is RSASSA-PKCS1-v1_5 with SHA-256. It is deterministic:
// the same payload and key always yield the same signature.
const DefaultAlgorithm = RS256

func (a Algorithm) String() string {
	return string(a)
}

// Validate reports whether the algorithm is one this package supports.
func (a Algorithm) Validate() error {
	switch a {
	case RS256, RS384, RS512, PS256, PS384, PS512:
		return nil
	default:
		return fmt.Errorf("unsupported signature algorithm: %q", string(a))
	}
}

// Sign signs payload with the given RSA private key and returns the
// base64-encoded signature.
func Sign(payload []byte, key any, options ...SignOption) (string, error) {
	alg := DefaultAlgorithm
	for _, option := range options {
		switch option.Ident() {
		case identAlgorithm{}:
			alg = option.Value().(Algorithm)
		}
	}

	if err := alg.Validate(); err != nil {
		return "", err
	}

	priv, err := privateKeyFrom(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}

	signature, err := jwsbb.Sign(priv, alg.String(), payload, nil)
	if err != nil {
		return "", fmt.Errorf("failed to sign with algorithm %s: %w", alg, err)
	}
	return base64.StdEncoding.EncodeToString(signature), nil
}

// Verify reports whether signature is a valid base64-encoded signature of
// payload under the given RSA public key. Any malformed input (bad encoding,
// missing or mistyped key, unsupported algorithm) yields false.
func Verify(payload []byte, signature string, key any, options ...VerifyOption) bool {
	alg := DefaultAlgorithm
	for _, option := range options {
		switch option.Ident() {
		case identAlgorithm{}:
			alg = option.Value().(Algorithm)
		}
	}

	if alg.Validate() != nil || signature == "" {
		return false
	}

	pub, err := publicKeyFrom(key)
	if err != nil {
		return false
	}

	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	return jwsbb.Verify(pub, alg.String(), payload, raw) == nil
}

func privateKeyFrom(key any) (*rsa.PrivateKey, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		if k == nil {
			return nil, fmt.Errorf("private key is nil")
		}
		return k, nil
	case string:
		return ParsePrivateKey(k)
	default:
		return nil, fmt.Errorf("unsupported private key type: %T", key)
	}
}

func publicKeyFrom(key any) (*rsa.PublicKey, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		if k == nil {
			return nil, fmt.Errorf("public key is nil")
		}
		return k, nil
	case *rsa.PrivateKey:
		if k == nil {
			return nil, fmt.Errorf("private key is nil")
		}
		return &k.PublicKey, nil
	case string:
		return ParsePublicKey(k)
	default:
		return nil, fmt.Errorf("unsupported public key type: %T", key)
	}
}
