package certengine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Provisioner makes sure certificate material exists before the server
// starts. It never touches a pair that is already on disk.
type Provisioner struct {
	store  *Store
	gen    Generator
	params Params
	logger *slog.Logger
}

// NewProvisioner creates a Provisioner that fills in missing material in
// store using gen. A nil logger discards log output.
func NewProvisioner(store *Store, gen Generator, params Params, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Provisioner{
		store:  store,
		gen:    gen,
		params: params.WithDefaults(),
		logger: logger,
	}
}

// Ensure generates a new pair if either file is missing and reports whether
// it did. A partial pair is regenerated as a whole; the leftover file is
// overwritten. After generation the pair must load cleanly, otherwise
// Ensure fails.
func (p *Provisioner) Ensure(ctx context.Context) (bool, error) {
	state := p.store.State()
	if state == Present {
		return false, nil
	}

	certPath, keyPath := p.store.Paths()
	p.logger.Info("generating self-signed certificate",
		"state", state.String(),
		"cert", certPath,
		"key", keyPath,
		"subject", p.params.Subject.OpenSSLSubject(),
		"validityDays", p.params.ValidityDays(),
	)

	if err := p.gen.Generate(ctx, p.store, p.params); err != nil {
		return false, fmt.Errorf("generate certificate: %w", err)
	}

	if got := p.store.State(); got != Present {
		return true, fmt.Errorf("generate certificate: material still %s after generation", got)
	}
	pair, err := p.store.Load()
	if err != nil {
		return true, fmt.Errorf("verify generated certificate: %w", err)
	}

	p.logger.Info("certificate generated",
		"notAfter", pair.Cert.NotAfter,
		"dnsNames", pair.Cert.DNSNames,
		"ipAddresses", pair.Cert.IPAddresses,
	)
	return true, nil
}
