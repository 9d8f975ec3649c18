package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prasenjit/go-pact/internal/pactspec"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Admin   AdminConfig   `yaml:"admin"`
	Pact    PactConfig    `yaml:"pact"`
	Storage StorageConfig `yaml:"storage"`
	Tracing TracingConfig `yaml:"tracing"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the mock server
type ServerConfig struct {
	// Port 0 picks a free port
	Port         int           `yaml:"port"`
	Host         string        `yaml:"host"`
	TLS          TLSConfig     `yaml:"tls"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Enabled      bool   `yaml:"enabled"`
	CertFile     string `yaml:"certFile"`
	KeyFile      string `yaml:"keyFile"`
	AutoGenerate bool   `yaml:"autoGenerate"` // self-signed cert when no files are given
	StorePath    string `yaml:"storePath"`    // empty means storage.path/certs
}

// AdminConfig configures the admin API
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// PactConfig controls how pact files are read and written
type PactConfig struct {
	SpecVersion    string `yaml:"specVersion"`
	Dir            string `yaml:"dir"`
	WriteOnSuccess bool   `yaml:"writeOnSuccess"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type string `yaml:"type"` // "memory" or "file"
	Path string `yaml:"path"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	MaxTraces int `yaml:"maxTraces"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig toggles the Prometheus endpoint on the admin API
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
			TLS: TLSConfig{
				AutoGenerate: true,
			},
			ReadTimeout:  30 * time.Second,
			MaxBodyBytes: 10 << 20,
		},
		Admin: AdminConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8081,
		},
		Pact: PactConfig{
			SpecVersion: pactspec.Default.String(),
			Dir:         "./pacts",
		},
		Storage: StorageConfig{
			Type: "memory",
			Path: "./data",
		},
		Tracing: TracingConfig{
			MaxTraces: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Admin.Enabled && (c.Admin.Port < 0 || c.Admin.Port > 65535) {
		errs = append(errs, fmt.Errorf("admin.port %d out of range", c.Admin.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.maxBodyBytes must be positive"))
	}
	if _, err := pactspec.Parse(c.Pact.SpecVersion); err != nil {
		errs = append(errs, fmt.Errorf("pact.specVersion: %w", err))
	}
	switch c.Storage.Type {
	case "memory":
	case "file":
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for file storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type %q must be memory or file", c.Storage.Type))
	}
	if c.Server.TLS.Enabled && !c.Server.TLS.AutoGenerate && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls needs certFile and keyFile when autoGenerate is off"))
	}
	if c.Tracing.MaxTraces < 0 {
		errs = append(errs, errors.New("tracing.maxTraces must not be negative"))
	}
	return errors.Join(errs...)
}

// SpecVersion returns the configured pact specification version
func (c *Config) SpecVersion() pactspec.Version {
	v, err := pactspec.Parse(c.Pact.SpecVersion)
	if err != nil {
		return pactspec.Default
	}
	return v
}
