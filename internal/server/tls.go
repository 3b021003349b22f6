package server

import (
	"crypto/tls"
	"fmt"

	"golang.org/x/crypto/acme/autocert"
)

// LoadTLSConfig builds a server TLS configuration from a PEM certificate
// and key. Missing, malformed or mismatched files are an error; there is
// no plaintext fallback.
func LoadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ACMETLSConfig builds a TLS configuration that obtains certificates for
// host from Let's Encrypt, caching them in cacheDir. Challenges are
// answered over TLS-ALPN on the same listener.
func ACMETLSConfig(host, cacheDir string) *tls.Config {
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(host),
		Cache:      autocert.DirCache(cacheDir),
	}
	cfg := m.TLSConfig()
	cfg.MinVersion = tls.VersionTLS12
	return cfg
}

// buildTLSConfig picks the certificate source for the configuration.
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	if s.config.ACMEHost != "" {
		s.logger.Info("using ACME certificates",
			"host", s.config.ACMEHost,
			"cache", s.config.ACMECacheDir,
		)
		return ACMETLSConfig(s.config.ACMEHost, s.config.ACMECacheDir), nil
	}
	return LoadTLSConfig(s.config.CertFile, s.config.KeyFile)
}
