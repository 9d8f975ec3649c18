// Package tlsutil provides certificates for mock servers running over TLS.
package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/prasenjit/go-pact/internal/config"
	"github.com/prasenjit/go-pact/internal/logging"
)

const (
	certFileName = "server.crt"
	keyFileName  = "server.key"

	certValidity = 365 * 24 * time.Hour
	// stored certificates closer than this to expiry are replaced
	renewBefore = 24 * time.Hour
)

// ErrNoCertificate is returned when no certificate exists and generation is off
var ErrNoCertificate = errors.New("no TLS certificate found and auto-generation is disabled")

// Options selects where the mock server certificate comes from
type Options struct {
	// CertFile and KeyFile name a key pair to use as is
	CertFile string
	KeyFile  string
	// StorePath holds the self-signed pair between runs
	StorePath    string
	AutoGenerate bool
	// Hosts are the names and addresses clients use to reach the mock
	// server. localhost and the loopback addresses are always covered.
	Hosts []string
}

// OptionsFromConfig maps the mock server settings. An empty store path
// falls back to <storageDir>/certs and the listen host is added to Hosts.
func OptionsFromConfig(server config.ServerConfig, storageDir string) Options {
	storePath := server.TLS.StorePath
	if storePath == "" {
		storePath = filepath.Join(storageDir, "certs")
	}
	return Options{
		CertFile:     server.TLS.CertFile,
		KeyFile:      server.TLS.KeyFile,
		StorePath:    storePath,
		AutoGenerate: server.TLS.AutoGenerate,
		Hosts:        []string{server.Host},
	}
}

// CertificateManager loads a configured key pair, or reuses or creates a
// self-signed one under the store path
type CertificateManager struct {
	opts   Options
	logger *slog.Logger
}

// NewCertificateManager creates a certificate manager
func NewCertificateManager(opts Options, logger *slog.Logger) *CertificateManager {
	return &CertificateManager{
		opts:   opts,
		logger: logging.OrNop(logger).With("component", "tls"),
	}
}

// Certificate returns the configured key pair when one is set. Otherwise a
// stored self-signed pair is reused while it is valid for every host and
// not about to expire; a stale or missing pair is regenerated when
// AutoGenerate is on.
func (cm *CertificateManager) Certificate() (*tls.Certificate, error) {
	if cm.configured() {
		cert, err := tls.LoadX509KeyPair(cm.opts.CertFile, cm.opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load certificate from %s and %s: %w", cm.opts.CertFile, cm.opts.KeyFile, err)
		}
		return &cert, nil
	}

	certPath, keyPath := cm.Paths()
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	switch {
	case err == nil && cm.covers(&cert):
		cm.logger.Debug("reusing stored certificate", "cert", certPath)
		return &cert, nil
	case err == nil && !cm.opts.AutoGenerate:
		cm.logger.Warn("stored certificate does not cover every host or expires soon", "cert", certPath)
		return &cert, nil
	case err != nil && !cm.opts.AutoGenerate:
		return nil, ErrNoCertificate
	case err == nil:
		cm.logger.Info("replacing stored certificate", "cert", certPath)
	}
	return cm.generate()
}

// ServerConfig builds the TLS configuration of the mock server listener
func (cm *CertificateManager) ServerConfig() (*tls.Config, error) {
	cert, err := cm.Certificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// CertPool returns a pool trusting the mock server certificate, for clients
// talking to a self-signed server
func (cm *CertificateManager) CertPool() (*x509.CertPool, error) {
	cert, err := cm.Certificate()
	if err != nil {
		return nil, err
	}
	leaf, err := leafOf(cert)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return pool, nil
}

// Paths returns where the key pair is read from or written to
func (cm *CertificateManager) Paths() (certPath, keyPath string) {
	if cm.configured() {
		return cm.opts.CertFile, cm.opts.KeyFile
	}
	return filepath.Join(cm.opts.StorePath, certFileName), filepath.Join(cm.opts.StorePath, keyFileName)
}

func (cm *CertificateManager) configured() bool {
	return cm.opts.CertFile != "" && cm.opts.KeyFile != ""
}

// hosts returns the names a certificate must be valid for. Wildcard listen
// addresses are reached through the loopback names.
func (cm *CertificateManager) hosts() []string {
	out := []string{"localhost", "127.0.0.1"}
	for _, h := range cm.opts.Hosts {
		if ip := net.ParseIP(h); h == "" || (ip != nil && ip.IsUnspecified()) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func (cm *CertificateManager) covers(cert *tls.Certificate) bool {
	leaf, err := leafOf(cert)
	if err != nil {
		return false
	}
	if time.Now().Add(renewBefore).After(leaf.NotAfter) {
		return false
	}
	for _, h := range cm.hosts() {
		if leaf.VerifyHostname(h) != nil {
			return false
		}
	}
	return true
}

func leafOf(cert *tls.Certificate) (*x509.Certificate, error) {
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	if len(cert.Certificate) == 0 {
		return nil, errors.New("certificate chain is empty")
	}
	return x509.ParseCertificate(cert.Certificate[0])
}

func (cm *CertificateManager) generate() (*tls.Certificate, error) {
	if err := os.MkdirAll(cm.opts.StorePath, 0o700); err != nil {
		return nil, fmt.Errorf("create certificate store: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}

	now := time.Now()
	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"go-pact"},
			CommonName:   "go-pact mock server",
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv6loopback},
	}
	for _, h := range cm.hosts() {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	certPath, keyPath := cm.Paths()
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return nil, fmt.Errorf("save private key: %w", err)
	}
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return nil, fmt.Errorf("save certificate: %w", err)
	}
	cm.logger.Info("generated self-signed certificate",
		"cert", certPath, "hosts", cm.hosts(), "expires", tmpl.NotAfter)

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse generated certificate: %w", err)
	}
	return &cert, nil
}
