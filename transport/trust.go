package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// TrustPolicy decides which server certificates the transport accepts.
type TrustPolicy interface {
	TLSConfig() (*tls.Config, error)
}

// TrustPolicyFunc is a function adapter for TrustPolicy.
type TrustPolicyFunc func() (*tls.Config, error)

func (f TrustPolicyFunc) TLSConfig() (*tls.Config, error) {
	return f()
}

// StrictTrust verifies the certificate chain against the system roots and
// checks the hostname. This is the default.
func StrictTrust() TrustPolicy {
	return TrustPolicyFunc(func() (*tls.Config, error) {
		return &tls.Config{MinVersion: tls.VersionTLS12}, nil
	})
}

// PoolTrust verifies the certificate chain against the given roots instead
// of the system roots. Hostnames are still checked.
func PoolTrust(roots *x509.CertPool) TrustPolicy {
	return TrustPolicyFunc(func() (*tls.Config, error) {
		if roots == nil {
			return nil, fmt.Errorf("certificate pool must not be nil")
		}
		return &tls.Config{
			MinVersion: tls.VersionTLS12,
			RootCAs:    roots,
		}, nil
	})
}

// InsecureTrustAll accepts any certificate for any host. It exists for test
// and staging setups only.
func InsecureTrustAll() TrustPolicy {
	return TrustPolicyFunc(func() (*tls.Config, error) {
		//nolint:gosec
		return &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true,
		}, nil
	})
}
