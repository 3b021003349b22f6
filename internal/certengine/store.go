package certengine

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kabukky/httpscerts"
)

// On-disk layout, relative to the working directory by default:
//
//   cert.pem   (0644)  PEM "CERTIFICATE"
//   key.pem    (0600)  PEM "PRIVATE KEY" (PKCS#8, unencrypted)
//
// Keys written by other tools are accepted in SEC1 ("EC PRIVATE KEY") and
// PKCS#1 ("RSA PRIVATE KEY") form as well.

const (
	keyFilePerms = 0600
	certPerms    = 0644
)

// ErrEncryptedKey is returned when the private key is passphrase-protected.
// The server has no way to ask for the passphrase.
var ErrEncryptedKey = errors.New("private key is encrypted")

// State describes which parts of the certificate material exist on disk.
type State int

const (
	// Missing means neither file exists.
	Missing State = iota

	// Incomplete means exactly one of the two files exists.
	Incomplete

	// Present means both files exist. They may still fail to load.
	Present
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Missing:
		return "missing"
	case Incomplete:
		return "incomplete"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// Store handles reading and writing the certificate/key pair.
type Store struct {
	certPath string
	keyPath  string
}

// NewStore creates a Store for the given certificate and key paths.
func NewStore(certPath, keyPath string) *Store {
	return &Store{certPath: certPath, keyPath: keyPath}
}

// Paths returns the certificate and key file paths.
func (s *Store) Paths() (certPath, keyPath string) {
	return s.certPath, s.keyPath
}

// State reports which files currently exist.
func (s *Store) State() State {
	if httpscerts.Check(s.certPath, s.keyPath) == nil {
		return Present
	}
	if fileExists(s.certPath) || fileExists(s.keyPath) {
		return Incomplete
	}
	return Missing
}

// Save writes the pair to disk, replacing whatever is there. Both files are
// staged before either is moved into place, so a failed write leaves the
// previous pair untouched. A failed rename never leaves a new key beside an
// old certificate.
func (s *Store) Save(p *Pair) error {
	for _, path := range []string{s.certPath, s.keyPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("create directory %s: %w", dir, err)
			}
		}
	}

	keyPEM, err := encodeKey(p.Key)
	if err != nil {
		return fmt.Errorf("save key: %w", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: p.Raw})

	keyTmp, certTmp := s.keyPath+".tmp", s.certPath+".tmp"
	defer os.Remove(keyTmp)
	defer os.Remove(certTmp)

	if err := os.WriteFile(keyTmp, keyPEM, keyFilePerms); err != nil {
		return fmt.Errorf("save key: write %s: %w", keyTmp, err)
	}
	if err := os.WriteFile(certTmp, certPEM, certPerms); err != nil {
		return fmt.Errorf("save cert: write %s: %w", certTmp, err)
	}

	if err := os.Rename(keyTmp, s.keyPath); err != nil {
		return fmt.Errorf("save key: rename %s -> %s: %w", keyTmp, s.keyPath, err)
	}
	if err := os.Rename(certTmp, s.certPath); err != nil {
		// The old certificate cannot match the new key. Drop the key so the
		// next start sees Incomplete material and generates again.
		os.Remove(s.keyPath)
		return fmt.Errorf("save cert: rename %s -> %s: %w", certTmp, s.certPath, err)
	}
	return nil
}

// Load reads the pair from disk and checks that the key belongs to the
// certificate.
func (s *Store) Load() (*Pair, error) {
	key, err := readKey(s.keyPath)
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	raw, cert, err := readCert(s.certPath)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	if err := validateKeyMatchesCert(key, cert); err != nil {
		return nil, fmt.Errorf("key/cert mismatch: %w", err)
	}
	return &Pair{Key: key, Cert: cert, Raw: raw}, nil
}

// --- PEM helpers ---

func encodeKey(key crypto.Signer) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

func readKey(path string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	if block.Type == "ENCRYPTED PRIVATE KEY" || block.Headers["Proc-Type"] != "" {
		return nil, fmt.Errorf("%s: %w", path, ErrEncryptedKey)
	}

	var key any
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("parse key from %s: %w", path, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported key type %T in %s", key, path)
	}
	return signer, nil
}

// readCert returns the first CERTIFICATE block in the file. Any further
// blocks (intermediates) are left to the TLS library.
func readCert(path string) ([]byte, *x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, nil, fmt.Errorf("no CERTIFICATE PEM block found in %s", path)
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("parse cert from %s: %w", path, err)
		}
		return block.Bytes, cert, nil
	}
}

func validateKeyMatchesCert(key crypto.Signer, cert *x509.Certificate) error {
	pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return fmt.Errorf("unsupported public key type %T", key.Public())
	}
	if !pub.Equal(cert.PublicKey) {
		return fmt.Errorf("private key does not match certificate public key")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
