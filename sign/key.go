package sign

import (
	"bytes"
	"crypto/rsa"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// PEM block types tried, in order, when a key is given as bare base64 DER.
var (
	privateKeyBlockTypes = []string{"PRIVATE KEY", "RSA PRIVATE KEY"}
	publicKeyBlockTypes  = []string{"PUBLIC KEY", "RSA PUBLIC KEY"}
)

// ParsePrivateKey parses an RSA private key. The input may be PEM text or the
// bare base64 encoding of a PKCS#8 or PKCS#1 DER structure.
func ParsePrivateKey(s string) (*rsa.PrivateKey, error) {
	raw, err := parseRawKey(s, privateKeyBlockTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	priv, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("failed to parse private key: expected *rsa.PrivateKey, got %T", raw)
	}
	return priv, nil
}

// ParsePublicKey parses an RSA public key. The input may be PEM text
// (including a certificate) or the bare base64 encoding of a PKIX or PKCS#1
// DER structure.
func ParsePublicKey(s string) (*rsa.PublicKey, error) {
	raw, err := parseRawKey(s, publicKeyBlockTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	switch k := raw.(type) {
	case *rsa.PublicKey:
		return k, nil
	case *rsa.PrivateKey:
		return &k.PublicKey, nil
	default:
		return nil, fmt.Errorf("failed to parse public key: expected *rsa.PublicKey, got %T", raw)
	}
}

func parseRawKey(s string, blockTypes []string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("key material is empty")
	}

	if strings.HasPrefix(s, "-----BEGIN") {
		return exportPEM([]byte(s))
	}

	// Bare base64 DER, possibly wrapped over several lines
	der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, fmt.Errorf("key is neither PEM nor base64: %w", err)
	}

	var lastErr error
	for _, typ := range blockTypes {
		raw, err := exportPEM(pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der}))
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func exportPEM(src []byte) (any, error) {
	key, err := jwk.ParseKey(bytes.TrimSpace(src), jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PEM key: %w", err)
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to export raw key: %w", err)
	}
	return raw, nil
}
