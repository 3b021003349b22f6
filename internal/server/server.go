package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devhttps/internal/certengine"
	"devhttps/internal/fileserver"
	"devhttps/internal/version"
)

// Server is the HTTPS file server. It provisions certificate material (if
// configured to), then serves Config.Root over TLS until interrupted.
type Server struct {
	config      Config
	provisioner *certengine.Provisioner // nil when provisioning is off
	handler     http.Handler
	logger      *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(cfg.stderr(), &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	s := &Server{
		config:  cfg,
		handler: fileserver.WithAccessLog(fileserver.New(cfg.Root, logger), logger),
		logger:  logger,
	}

	if cfg.AutoProvision && cfg.ACMEHost == "" {
		gen := cfg.CertGenerator
		if gen == nil {
			var err error
			if gen, err = certengine.NewGenerator(cfg.Generator); err != nil {
				return nil, err
			}
		}
		s.provisioner = certengine.NewProvisioner(
			certengine.NewStore(cfg.CertFile, cfg.KeyFile),
			gen,
			certengine.Params{Subject: cfg.Subject, Hosts: cfg.Hosts},
			logger,
		)
	}

	return s, nil
}

// Run provisions certificates, binds the listener and serves until ctx is
// cancelled or the process receives SIGINT or SIGTERM. Startup failures
// (generation, certificate load, bind) are returned before anything is
// served. A signal-driven shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	// Merge the parent context with OS signals for shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info("devhttps starting",
		"version", version.Version,
		"root", s.config.Root,
		"addr", s.config.Addr,
		"autoProvision", s.provisioner != nil,
	)

	if s.provisioner != nil {
		if _, err := s.provisioner.Ensure(ctx); err != nil {
			return fmt.Errorf("provision certificate: %w", err)
		}
	}

	tlsConfig, err := s.buildTLSConfig()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	s.logger.Info("serving HTTPS", "addr", ln.Addr().String())
	s.printBanner(s.config.stdout(), ln.Addr())

	return s.listenAndShutdown(ctx, srv, func() error {
		// TLSConfig already carries the certificate, so pass empty paths.
		return srv.ServeTLS(ln, "", "")
	})
}

// listenAndShutdown runs listenFn and shuts srv down gracefully once ctx
// is done.
func (s *Server) listenAndShutdown(ctx context.Context, srv *http.Server, listenFn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		if err := listenFn(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or serve error.
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// In-flight requests did not finish in time; cut them off.
			srv.Close()
			s.logger.Warn("forced shutdown", "error", err)
		}
		fmt.Fprintln(s.config.stdout(), "\nServer stopped")
		s.logger.Info("shutdown complete")
	}

	return nil
}
