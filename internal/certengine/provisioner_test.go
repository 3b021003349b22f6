package certengine

import (
	"context"
	"errors"
	"os"
	"testing"
)

// countingGenerator wraps a Generator and records how often it ran.
type countingGenerator struct {
	inner Generator
	calls int
}

func (g *countingGenerator) Generate(ctx context.Context, store *Store, params Params) error {
	g.calls++
	if g.inner == nil {
		return nil
	}
	return g.inner.Generate(ctx, store, params)
}

type failingGenerator struct{ err error }

func (g failingGenerator) Generate(context.Context, *Store, Params) error { return g.err }

func TestProvisioner_GeneratesWhenMissing(t *testing.T) {
	store := tempStore(t)
	gen := &countingGenerator{inner: Builtin{}}
	p := NewProvisioner(store, gen, Params{}, nil)

	generated, err := p.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !generated {
		t.Error("Ensure reported no generation for a fresh directory")
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	if _, err := store.Load(); err != nil {
		t.Errorf("Load after Ensure: %v", err)
	}
}

func TestProvisioner_NoOpWhenPresent(t *testing.T) {
	store := tempStore(t)
	if err := store.Save(generate(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	gen := &countingGenerator{inner: Builtin{}}
	p := NewProvisioner(store, gen, Params{}, nil)

	generated, err := p.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if generated || gen.calls != 0 {
		t.Errorf("generated = %v, calls = %d; want no generation", generated, gen.calls)
	}
}

// A restart after a successful first run must keep the existing material.
func TestProvisioner_SecondRunSkipsGeneration(t *testing.T) {
	store := tempStore(t)
	gen := &countingGenerator{inner: Builtin{}}

	if _, err := NewProvisioner(store, gen, Params{}, nil).Ensure(context.Background()); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	first, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := NewProvisioner(store, gen, Params{}, nil).Ensure(context.Background()); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	second, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.Cert.SerialNumber.Cmp(second.Cert.SerialNumber) != 0 {
		t.Error("certificate was regenerated on second run")
	}
}

func TestProvisioner_RegeneratesIncompletePair(t *testing.T) {
	store := tempStore(t)
	if err := store.Save(generate(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, keyPath := store.Paths()
	os.Remove(keyPath)

	gen := &countingGenerator{inner: Builtin{}}
	generated, err := NewProvisioner(store, gen, Params{}, nil).Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !generated || gen.calls != 1 {
		t.Errorf("generated = %v, calls = %d; want one generation", generated, gen.calls)
	}
	if _, err := store.Load(); err != nil {
		t.Errorf("Load after Ensure: %v", err)
	}
}

func TestProvisioner_PropagatesGeneratorError(t *testing.T) {
	store := tempStore(t)
	boom := errors.New("boom")
	_, err := NewProvisioner(store, failingGenerator{err: boom}, Params{}, nil).Ensure(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Ensure error = %v, want wrapped boom", err)
	}
}

func TestProvisioner_FailsWhenGeneratorWritesNothing(t *testing.T) {
	store := tempStore(t)
	gen := &countingGenerator{}
	_, err := NewProvisioner(store, gen, Params{}, nil).Ensure(context.Background())
	if err == nil {
		t.Fatal("expected error when generator left no files behind")
	}
}

func TestProvisioner_FailsWhenGeneratedPairIsInvalid(t *testing.T) {
	store := tempStore(t)
	certPath, keyPath := store.Paths()
	gen := generatorFunc(func(context.Context, *Store, Params) error {
		os.WriteFile(certPath, []byte("garbage"), 0644)
		os.WriteFile(keyPath, []byte("garbage"), 0600)
		return nil
	})
	if _, err := NewProvisioner(store, gen, Params{}, nil).Ensure(context.Background()); err == nil {
		t.Fatal("expected error for unparsable generated material")
	}
}

type generatorFunc func(context.Context, *Store, Params) error

func (f generatorFunc) Generate(ctx context.Context, s *Store, p Params) error { return f(ctx, s, p) }
