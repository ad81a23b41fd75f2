// Package config loads payright client settings from the environment.
//
// Values are read with cleanenv. When a path is given, the file is first
// loaded into the process environment with godotenv, so a .env file and real
// environment variables can be mixed.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/lestrrat-go/payright"
	"github.com/lestrrat-go/payright/fingerprint"
	"github.com/lestrrat-go/payright/sign"
	"github.com/lestrrat-go/payright/transport"
	"github.com/sirupsen/logrus"
)

type KeysConfig struct {
	SecretKey      string `env:"PAYRIGHT_SECRET_KEY"`
	PrivateKey     string `env:"PAYRIGHT_PRIVATE_KEY"`
	PrivateKeyFile string `env:"PAYRIGHT_PRIVATE_KEY_FILE"`
	PublicKey      string `env:"PAYRIGHT_PUBLIC_KEY"`
	PublicKeyFile  string `env:"PAYRIGHT_PUBLIC_KEY_FILE"`
}

type WireConfig struct {
	Charset           string `env:"PAYRIGHT_CHARSET" env-default:"UTF-8" validate:"required"`
	SignatureHeader   string `env:"PAYRIGHT_SIGNATURE_HEADER" env-default:"X-Signature" validate:"required"`
	FingerprintHeader string `env:"PAYRIGHT_FINGERPRINT_HEADER" env-default:"X-Client-Fingerprint" validate:"required"`
	DataField         string `env:"PAYRIGHT_DATA_FIELD" env-default:"data" validate:"required"`
	SignatureField    string `env:"PAYRIGHT_SIGNATURE_FIELD" env-default:"signature" validate:"required,nefield=DataField"`
	Algorithm         string `env:"PAYRIGHT_ALGORITHM" env-default:"RS256" validate:"oneof=RS256 RS384 RS512 PS256 PS384 PS512"`
	RequireVerified   bool   `env:"PAYRIGHT_REQUIRE_VERIFIED" env-default:"false"`
	ProbeHost         bool   `env:"PAYRIGHT_PROBE_HOST" env-default:"true"`
}

type TransportConfig struct {
	MaxConns           int           `env:"PAYRIGHT_MAX_CONNS" env-default:"500" validate:"gte=1"`
	Timeout            time.Duration `env:"PAYRIGHT_TIMEOUT" env-default:"30s" validate:"gte=0"`
	MaxBodySize        int64         `env:"PAYRIGHT_MAX_BODY_SIZE" env-default:"10485760" validate:"gte=0"`
	InsecureSkipVerify bool          `env:"PAYRIGHT_INSECURE_SKIP_VERIFY" env-default:"false"`
}

type Config struct {
	Keys      KeysConfig
	Wire      WireConfig
	Transport TransportConfig
}

// Load reads the configuration. If path is not empty the file is loaded
// into the environment first; variables already set take precedence.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	if err := cfg.resolveKeyFiles(); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// resolveKeyFiles fills inline keys from their *_FILE counterparts. Setting
// both for the same key is an error.
func (c *Config) resolveKeyFiles() error {
	resolve := func(name string, inline *string, file string) error {
		if file == "" {
			return nil
		}
		if strings.TrimSpace(*inline) != "" {
			return fmt.Errorf("both %s and %s_FILE are set", name, name)
		}
		buf, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s_FILE: %w", name, err)
		}
		*inline = string(buf)
		return nil
	}

	if err := resolve("PAYRIGHT_PRIVATE_KEY", &c.Keys.PrivateKey, c.Keys.PrivateKeyFile); err != nil {
		return err
	}
	return resolve("PAYRIGHT_PUBLIC_KEY", &c.Keys.PublicKey, c.Keys.PublicKeyFile)
}

// Credentials returns the key material as payright credentials.
func (c *Config) Credentials() payright.Credentials {
	return payright.Credentials{
		SecretKey:             c.Keys.SecretKey,
		PrivateKey:            c.Keys.PrivateKey,
		CounterpartyPublicKey: c.Keys.PublicKey,
	}
}

// TrustPolicy returns the certificate trust policy selected by the
// configuration.
func (c *Config) TrustPolicy() transport.TrustPolicy {
	if c.Transport.InsecureSkipVerify {
		return transport.InsecureTrustAll()
	}
	return transport.StrictTrust()
}

// NewTransport builds a transport.Manager from the configuration.
func (c *Config) NewTransport(logger logrus.FieldLogger) (*transport.Manager, error) {
	return transport.New(
		transport.WithMaxConns(c.Transport.MaxConns),
		transport.WithTimeout(c.Transport.Timeout),
		transport.WithMaxBodySize(c.Transport.MaxBodySize),
		transport.WithTrustPolicy(c.TrustPolicy()),
		transport.WithLogger(logger),
	)
}

// ClientOptions returns the payright options matching the wire settings.
func (c *Config) ClientOptions() []payright.Option {
	return []payright.Option{
		payright.WithCharset(c.Wire.Charset),
		payright.WithSignatureHeader(c.Wire.SignatureHeader),
		payright.WithFingerprintHeader(c.Wire.FingerprintHeader),
		payright.WithEnvelopeFields(c.Wire.DataField, c.Wire.SignatureField),
		payright.WithAlgorithm(sign.Algorithm(c.Wire.Algorithm)),
		payright.WithRequireVerified(c.Wire.RequireVerified),
	}
}

// Environment returns the fingerprint environment. With ProbeHost set the
// host is queried; a failed probe is logged and the static values are used.
func (c *Config) Environment(ctx context.Context, logger logrus.FieldLogger) fingerprint.Environment {
	if !c.Wire.ProbeHost {
		return fingerprint.Static()
	}
	env, err := fingerprint.Current(ctx)
	if err != nil && logger != nil {
		logger.WithError(err).Debug("config: host probe failed, using static fingerprint")
	}
	return env
}

// NewClient builds a client that uses exec, or a new transport built from
// the configuration when exec is nil.
func (c *Config) NewClient(ctx context.Context, exec payright.Executor, logger logrus.FieldLogger) (*payright.Client, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if exec == nil {
		mgr, err := c.NewTransport(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create transport: %w", err)
		}
		exec = mgr
	}

	options := append(c.ClientOptions(),
		payright.WithExecutor(exec),
		payright.WithLogger(logger),
		payright.WithEnvironment(c.Environment(ctx, logger)),
	)
	return payright.New(c.Credentials(), options...)
}
