package transport

import (
	"net/http"
	"time"

	"github.com/lestrrat-go/option"
	"github.com/sirupsen/logrus"
)

// Option configures a Manager.
type Option = option.Interface

type identHTTPClient struct{}

func (identHTTPClient) String() string { return "WithHTTPClient" }

type identTrustPolicy struct{}

func (identTrustPolicy) String() string { return "WithTrustPolicy" }

type identMaxConns struct{}

func (identMaxConns) String() string { return "WithMaxConns" }

type identTimeout struct{}

func (identTimeout) String() string { return "WithTimeout" }

type identMaxBodySize struct{}

func (identMaxBodySize) String() string { return "WithMaxBodySize" }

type identLogger struct{}

func (identLogger) String() string { return "WithLogger" }

// WithHTTPClient uses the given client instead of building one. The trust
// policy, timeout and pool sizing options are ignored in that case, but the
// concurrency bound and body size limit still apply.
func WithHTTPClient(client *http.Client) Option {
	return option.New(identHTTPClient{}, client)
}

// WithTrustPolicy sets the server certificate trust policy.
func WithTrustPolicy(policy TrustPolicy) Option {
	return option.New(identTrustPolicy{}, policy)
}

// WithMaxConns sets the bound on concurrent requests.
func WithMaxConns(n int) Option {
	return option.New(identMaxConns{}, n)
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return option.New(identTimeout{}, d)
}

// WithMaxBodySize sets the largest response body Execute accepts. Zero
// disables the limit.
func WithMaxBodySize(n int64) Option {
	return option.New(identMaxBodySize{}, n)
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger logrus.FieldLogger) Option {
	return option.New(identLogger{}, logger)
}
