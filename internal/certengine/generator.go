package certengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
)

// ErrGeneratorUnavailable is returned when the external certificate tool
// cannot be found.
var ErrGeneratorUnavailable = errors.New("certificate generator unavailable")

// Generator creates a fresh certificate/key pair at the store's paths.
type Generator interface {
	Generate(ctx context.Context, store *Store, params Params) error
}

// Builtin generates the pair in-process.
type Builtin struct{}

// Generate implements Generator.
func (Builtin) Generate(ctx context.Context, store *Store, params Params) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pair, err := GenerateSelfSigned(params)
	if err != nil {
		return err
	}
	return store.Save(pair)
}

// OpenSSL generates the pair by running `openssl req`.
type OpenSSL struct {
	// Path is the openssl binary. Default: "openssl", looked up in $PATH.
	Path string
}

// GenerateError reports a non-zero exit from the external tool.
type GenerateError struct {
	Args     []string
	ExitCode int
	Output   string
}

func (e *GenerateError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// Args returns the full command line used for the given store and params.
func (o OpenSSL) Args(store *Store, params Params) []string {
	params = params.WithDefaults()
	certPath, keyPath := store.Paths()

	bin := o.Path
	if bin == "" {
		bin = "openssl"
	}
	args := []string{
		bin, "req", "-new", "-x509",
		"-keyout", keyPath,
		"-out", certPath,
		"-days", strconv.Itoa(params.ValidityDays()),
		"-nodes",
		"-subj", params.Subject.OpenSSLSubject(),
	}
	if san := subjectAltName(params.Hosts); san != "" {
		args = append(args, "-addext", "subjectAltName="+san)
	}
	return args
}

// Generate implements Generator.
func (o OpenSSL) Generate(ctx context.Context, store *Store, params Params) error {
	args := o.Args(store, params)

	bin, err := exec.LookPath(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args[1:]...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &GenerateError{Args: args, ExitCode: exitErr.ExitCode(), Output: out.String()}
		}
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	return nil
}

func subjectAltName(hosts []string) string {
	var parts []string
	for _, h := range hosts {
		if net.ParseIP(h) != nil {
			parts = append(parts, "IP:"+h)
		} else {
			parts = append(parts, "DNS:"+h)
		}
	}
	return strings.Join(parts, ",")
}

// NewGenerator returns the generator registered under name.
func NewGenerator(name string) (Generator, error) {
	switch name {
	case "", "builtin":
		return Builtin{}, nil
	case "openssl":
		return OpenSSL{}, nil
	default:
		return nil, fmt.Errorf("unknown certificate generator %q (want builtin or openssl)", name)
	}
}
