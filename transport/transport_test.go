package transport_test

import (
	"context"
	"crypto/x509"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/payright/transport"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestExecute(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Echo", r.Header.Get("X-Echo"))
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadRequest)
		}
		_, _ = w.Write(body)
	}))
	defer server.Close()

	mgr, err := transport.New(transport.WithLogger(quietLogger()))
	require.NoError(t, err)
	require.Equal(t, transport.DefaultMaxConns, mgr.MaxConns())

	t.Run("Request with body", func(t *testing.T) {
		hdr := http.Header{}
		hdr.Set("X-Echo", "hello")
		status, body, err := mgr.Execute(context.Background(), http.MethodPost, server.URL+"/echo", hdr, []byte(`{"a":1}`))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, `{"a":1}`, string(body))
	})

	t.Run("Request without body", func(t *testing.T) {
		status, body, err := mgr.Execute(context.Background(), http.MethodGet, server.URL+"/echo", nil, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)
		require.Empty(t, body)
	})

	t.Run("Error status is not a transport error", func(t *testing.T) {
		status, body, err := mgr.Execute(context.Background(), http.MethodPost, server.URL+"/fail", nil, []byte(`{"err":"bad"}`))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, `{"err":"bad"}`, string(body))
	})

	t.Run("Caller headers are not mutated", func(t *testing.T) {
		hdr := http.Header{}
		hdr.Set("X-Echo", "x")
		_, _, err := mgr.Execute(context.Background(), http.MethodGet, server.URL, hdr, nil)
		require.NoError(t, err)
		require.Len(t, hdr, 1)
	})

	t.Run("Connection failure", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		url := dead.URL
		dead.Close()

		_, _, err := mgr.Execute(context.Background(), http.MethodGet, url, nil, nil)
		require.Error(t, err)
	})

	t.Run("Malformed URL", func(t *testing.T) {
		_, _, err := mgr.Execute(context.Background(), http.MethodGet, "://nope", nil, nil)
		require.Error(t, err)
	})
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := transport.New(transport.WithMaxConns(0), transport.WithLogger(quietLogger()))
	require.Error(t, err)

	_, err = transport.New(transport.WithTrustPolicy(transport.PoolTrust(nil)), transport.WithLogger(quietLogger()))
	require.Error(t, err)

	_, err = transport.New(transport.WithMaxBodySize(-1), transport.WithLogger(quietLogger()))
	require.Error(t, err)

	t.Run("Nil values are errors", func(t *testing.T) {
		require.NotPanics(t, func() {
			_, err := transport.New(transport.WithTrustPolicy(nil), transport.WithLogger(quietLogger()))
			require.Error(t, err)
		})
		require.NotPanics(t, func() {
			_, err := transport.New(transport.WithHTTPClient(nil), transport.WithLogger(quietLogger()))
			require.Error(t, err)
		})
	})
}

func TestMaxBodySize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 64))
	}))
	defer server.Close()

	testcases := []struct {
		Name  string
		Limit int64
		Error bool
	}{
		{Name: "Body within limit", Limit: 64},
		{Name: "Body over limit", Limit: 63, Error: true},
		{Name: "Limit disabled", Limit: 0},
	}

	for _, tc := range testcases {
		t.Run(tc.Name, func(t *testing.T) {
			mgr, err := transport.New(transport.WithMaxBodySize(tc.Limit), transport.WithLogger(quietLogger()))
			require.NoError(t, err)

			status, body, err := mgr.Execute(context.Background(), http.MethodGet, server.URL, nil, nil)
			require.Equal(t, http.StatusOK, status)
			if tc.Error {
				require.Error(t, err)
				require.Nil(t, body)
				return
			}
			require.NoError(t, err)
			require.Len(t, body, 64)
		})
	}
}

func TestTrustPolicy(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	t.Run("Strict rejects unknown authority", func(t *testing.T) {
		mgr, err := transport.New(transport.WithLogger(quietLogger()))
		require.NoError(t, err)

		_, _, err = mgr.Execute(context.Background(), http.MethodGet, server.URL, nil, nil)
		require.Error(t, err)
	})

	t.Run("Pool trusts the given root", func(t *testing.T) {
		roots := x509.NewCertPool()
		roots.AddCert(server.Certificate())

		mgr, err := transport.New(transport.WithTrustPolicy(transport.PoolTrust(roots)), transport.WithLogger(quietLogger()))
		require.NoError(t, err)

		status, body, err := mgr.Execute(context.Background(), http.MethodGet, server.URL, nil, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "ok", string(body))
	})

	t.Run("Insecure accepts anything and warns", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		mgr, err := transport.New(transport.WithTrustPolicy(transport.InsecureTrustAll()), transport.WithLogger(logger))
		require.NoError(t, err)
		require.NotNil(t, hook.LastEntry())
		require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

		status, _, err := mgr.Execute(context.Background(), http.MethodGet, server.URL, nil, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)
	})
}

func TestConcurrencyBound(t *testing.T) {
	t.Parallel()

	const maxConns = 2
	const callers = maxConns + 1

	var inFlight, peak, served atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		served.Add(1)
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	mgr, err := transport.New(transport.WithMaxConns(maxConns), transport.WithLogger(quietLogger()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := mgr.Execute(context.Background(), http.MethodGet, server.URL, nil, nil)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return inFlight.Load() == maxConns }, 5*time.Second, 10*time.Millisecond)

	// The extra caller must be waiting, not failing
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(maxConns), inFlight.Load())
	require.Empty(t, errs)

	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(callers), served.Load())
	require.Equal(t, int32(maxConns), peak.Load())
}

func TestAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	mgr, err := transport.New(transport.WithMaxConns(1), transport.WithLogger(quietLogger()))
	require.NoError(t, err)

	started := make(chan struct{})
	go func() {
		close(started)
		_, _, _ = mgr.Execute(context.Background(), http.MethodGet, server.URL, nil, nil)
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, _, err = mgr.Execute(ctx, http.MethodGet, server.URL, nil, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
