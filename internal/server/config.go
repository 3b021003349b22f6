// Package server runs the HTTPS static file server: it provisions
// certificate material when asked to, builds the TLS configuration, binds
// the listener and serves until interrupted.
package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"devhttps/internal/certengine"
)

// Config holds the configuration for the file server. It is built once at
// startup and not modified afterwards.
type Config struct {
	// Addr is the TCP address to listen on.
	// Example: ":8080" (all interfaces) or "127.0.0.1:8443"
	Addr string

	// Root is the directory whose contents are served.
	Root string

	// CertFile and KeyFile are the PEM certificate and private key paths.
	CertFile string
	KeyFile  string

	// AutoProvision generates a self-signed pair when either file is
	// missing. When false, both files must already exist.
	AutoProvision bool

	// Generator selects how certificates are generated: "builtin" or
	// "openssl". Ignored when CertGenerator is set.
	Generator string

	// CertGenerator overrides Generator with a concrete implementation.
	CertGenerator certengine.Generator

	// Hosts are the SANs put into generated certificates.
	Hosts []string

	// Subject is the distinguished name of generated certificates.
	// Zero fields fall back to certengine defaults.
	Subject certengine.SubjectParams

	// ACMEHost, when set, obtains certificates for that host name from
	// Let's Encrypt instead of using CertFile/KeyFile. The TLS-ALPN challenge
	// is answered on the listener itself, so Addr must use port 443.
	ACMEHost string

	// ACMECacheDir stores ACME account keys and certificates. Required with
	// ACMEHost. Keep it outside Root, or the cache is served.
	ACMECacheDir string

	// ShutdownTimeout bounds how long in-flight requests may take to finish
	// after an interrupt.
	ShutdownTimeout time.Duration

	// LogLevel is the minimum level written to Stderr.
	LogLevel slog.Level

	// Stdout receives the startup banner and shutdown notice. Default os.Stdout.
	Stdout io.Writer

	// Stderr receives structured logs. Default os.Stderr.
	Stderr io.Writer
}

// DefaultConfig returns a Config with the defaults: serve the working
// directory on port 8080 using cert.pem/key.pem, generating them if needed.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Root:            ".",
		CertFile:        certengine.DefaultCertFile,
		KeyFile:         certengine.DefaultKeyFile,
		AutoProvision:   true,
		Generator:       "builtin",
		Hosts:           append([]string(nil), certengine.DefaultHosts...),
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        slog.LevelInfo,
	}
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	_, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Addr, err)
	}

	fi, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("serve root: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("serve root %s is not a directory", c.Root)
	}

	if c.ShutdownTimeout < 0 {
		return errors.New("shutdown timeout must not be negative")
	}

	if c.ACMEHost != "" {
		if c.ACMECacheDir == "" {
			return errors.New("an ACME cache directory is required with an ACME host")
		}
		if port != "443" {
			return fmt.Errorf("an ACME host needs a listen address on port 443, got %q", c.Addr)
		}
		return nil
	}

	if c.CertFile == "" || c.KeyFile == "" {
		return errors.New("certificate and key file paths are required")
	}
	if c.CertGenerator == nil {
		if _, err := certengine.NewGenerator(c.Generator); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

func (c Config) stderr() io.Writer {
	if c.Stderr != nil {
		return c.Stderr
	}
	return os.Stderr
}
