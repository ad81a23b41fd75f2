// Package fingerprint describes the environment a payright client runs in.
//
// The description is sent to the service as an informational header on every
// call. It carries no security meaning: the service must never rely on it for
// authentication or authorization.
package fingerprint

import (
	"context"
	"fmt"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/shirou/gopsutil/host"
)

const (
	DefaultLang      = "Go"
	DefaultPublisher = "Payright"
	runtimeVendor    = "The Go Authors"
)

// Environment lists the attributes that make up a client fingerprint.
type Environment struct {
	OSName         string `json:"os.name"`
	OSVersion      string `json:"os.version,omitempty"`
	OSArch         string `json:"os.arch"`
	RuntimeVersion string `json:"runtime.version"`
	RuntimeVendor  string `json:"runtime.vendor"`
	Lang           string `json:"lang"`
	Publisher      string `json:"publisher"`
}

// Static returns an Environment built only from values compiled into the
// binary. It never touches the host.
func Static() Environment {
	return Environment{
		OSName:         runtime.GOOS,
		OSArch:         runtime.GOARCH,
		RuntimeVersion: runtime.Version(),
		RuntimeVendor:  runtimeVendor,
		Lang:           DefaultLang,
		Publisher:      DefaultPublisher,
	}
}

// Current returns the Static environment enriched with the host platform
// name and version. Probe failures are not fatal; the static values are
// returned along with the error.
func Current(ctx context.Context) (Environment, error) {
	env := Static()

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return env, fmt.Errorf("failed to probe host information: %w", err)
	}

	if info.Platform != "" {
		env.OSName = info.OS + "/" + info.Platform
	}
	switch {
	case info.PlatformVersion != "":
		env.OSVersion = info.PlatformVersion
	case info.KernelVersion != "":
		env.OSVersion = info.KernelVersion
	}
	return env, nil
}

// Header renders env as the JSON value of the fingerprint header.
func Header(env Environment) (string, error) {
	buf, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to encode client fingerprint: %w", err)
	}
	return string(buf), nil
}
