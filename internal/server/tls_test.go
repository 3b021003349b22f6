package server

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"devhttps/internal/certengine"
)

func TestLoadTLSConfig(t *testing.T) {
	certFile, keyFile := writePair(t, t.TempDir())

	cfg, err := LoadTLSConfig(certFile, keyFile)
	if err != nil {
		t.Fatalf("LoadTLSConfig: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Fatalf("Certificates = %d, want 1", len(cfg.Certificates))
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}
}

func TestLoadTLSConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writePair(t, dir)
	otherCert, _ := writePair(t, filepath.Join(dir, "other"))
	garbage := filepath.Join(dir, "garbage.pem")
	os.WriteFile(garbage, []byte("not pem"), 0644)

	tests := []struct {
		name string
		cert string
		key  string
	}{
		{"missing cert", filepath.Join(dir, "nope.pem"), keyFile},
		{"missing key", certFile, filepath.Join(dir, "nope.pem")},
		{"malformed cert", garbage, keyFile},
		{"malformed key", certFile, garbage},
		{"mismatched pair", otherCert, keyFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadTLSConfig(tt.cert, tt.key); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestACMETLSConfig(t *testing.T) {
	cfg := ACMETLSConfig("files.example.com", t.TempDir())
	if cfg.GetCertificate == nil {
		t.Fatal("GetCertificate is nil")
	}
	if !slices.Contains(cfg.NextProtos, "acme-tls/1") {
		t.Errorf("NextProtos = %v, want acme-tls/1 for TLS-ALPN challenges", cfg.NextProtos)
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}

	// Hosts outside the whitelist are refused without contacting the CA.
	_, err := cfg.GetCertificate(&tls.ClientHelloInfo{ServerName: "other.example.com"})
	if err == nil {
		t.Error("expected error for host outside the whitelist")
	}
}

// writePair generates a self-signed pair into dir and returns its paths.
func writePair(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()
	certFile = filepath.Join(dir, certengine.DefaultCertFile)
	keyFile = filepath.Join(dir, certengine.DefaultKeyFile)
	pair, err := certengine.GenerateSelfSigned(certengine.Params{})
	if err != nil {
		t.Fatalf("GenerateSelfSigned: %v", err)
	}
	if err := certengine.NewStore(certFile, keyFile).Save(pair); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return certFile, keyFile
}
