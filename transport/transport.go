// Package transport provides the pooled HTTP(S) client that carries payright
// requests.
//
// A Manager owns one *http.Client and bounds the number of requests it has in
// flight. Callers past the bound block until a slot frees up or their context
// is done. A Manager is safe for concurrent use and is meant to be created once
// by the application and shared by every client that talks to the service.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultMaxConns is the default bound on concurrent requests.
	DefaultMaxConns = 500

	// DefaultTimeout bounds a whole request, including reading the body.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize bounds the response body read into memory.
	DefaultMaxBodySize = 10 << 20
)

// Manager executes HTTP requests over a shared, bounded connection pool.
type Manager struct {
	client   *http.Client
	slots    *semaphore.Weighted
	maxConns int64
	maxBody  int64
	logger   logrus.FieldLogger
}

// New creates a Manager. Without options it verifies server certificates
// against the system roots, allows DefaultMaxConns concurrent requests and
// applies DefaultTimeout.
func New(options ...Option) (*Manager, error) {
	var client *http.Client
	var logger logrus.FieldLogger = logrus.StandardLogger()
	policy := StrictTrust()
	maxConns := int64(DefaultMaxConns)
	timeout := DefaultTimeout
	maxBody := int64(DefaultMaxBodySize)

	for _, option := range options {
		switch option.Ident() {
		case identHTTPClient{}:
			v, ok := option.Value().(*http.Client)
			if !ok || v == nil {
				return nil, fmt.Errorf("HTTP client must not be nil")
			}
			client = v
		case identTrustPolicy{}:
			v, _ := option.Value().(TrustPolicy)
			policy = v
		case identMaxConns{}:
			maxConns = int64(option.Value().(int))
		case identTimeout{}:
			timeout = option.Value().(time.Duration)
		case identMaxBodySize{}:
			maxBody = option.Value().(int64)
		case identLogger{}:
			if l, ok := option.Value().(logrus.FieldLogger); ok && l != nil {
				logger = l
			}
		}
	}

	if maxConns <= 0 {
		return nil, fmt.Errorf("max connections must be positive, got %d", maxConns)
	}
	if maxBody < 0 {
		return nil, fmt.Errorf("max body size must not be negative, got %d", maxBody)
	}

	if client == nil {
		if policy == nil {
			return nil, fmt.Errorf("trust policy must not be nil")
		}
		tlsConfig, err := policy.TLSConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS configuration: %w", err)
		}
		if tlsConfig.InsecureSkipVerify {
			logger.Warn("transport: server certificate verification is disabled; do not use this configuration in production")
		}

		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = tlsConfig
		tr.MaxConnsPerHost = int(maxConns)
		tr.MaxIdleConns = int(maxConns)
		tr.MaxIdleConnsPerHost = int(maxConns)

		client = &http.Client{
			Transport: tr,
			Timeout:   timeout,
		}
	}

	return &Manager{
		client:   client,
		slots:    semaphore.NewWeighted(maxConns),
		maxConns: maxConns,
		maxBody:  maxBody,
		logger:   logger,
	}, nil
}

// MaxConns returns the bound on concurrent requests.
func (m *Manager) MaxConns() int {
	return int(m.maxConns)
}

// Execute sends a single request and returns the status code and the full
// response body. A nil body sends no request body at all.
//
// Bodies larger than the configured maximum are rejected with an error.
// The call blocks while MaxConns requests are already in flight. The response
// body is always drained and closed, and the slot is always released, whether
// the call succeeds or not.
func (m *Manager) Execute(ctx context.Context, method, url string, header http.Header, body []byte) (int, []byte, error) {
	if err := m.slots.Acquire(ctx, 1); err != nil {
		return 0, nil, fmt.Errorf("failed to acquire connection slot: %w", err)
	}
	defer m.slots.Release(1)

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if header != nil {
		req.Header = header.Clone()
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	var src io.Reader = resp.Body
	if m.maxBody > 0 {
		src = io.LimitReader(resp.Body, m.maxBody+1)
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if m.maxBody > 0 && int64(len(raw)) > m.maxBody {
		return resp.StatusCode, nil, fmt.Errorf("response body exceeds %d bytes", m.maxBody)
	}

	m.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    url,
		"status": resp.StatusCode,
		"bytes":  len(raw),
	}).Debug("transport: request completed")

	return resp.StatusCode, raw, nil
}

// CloseIdleConnections closes pooled connections that are not in use.
func (m *Manager) CloseIdleConnections() {
	m.client.CloseIdleConnections()
}
