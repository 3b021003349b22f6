package certengine

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"math/big"
	"net"
	"time"
)

// Pair holds a certificate and the private key it was issued for.
type Pair struct {
	Key  crypto.Signer
	Cert *x509.Certificate
	Raw  []byte // DER-encoded certificate
}

// GenerateSelfSigned creates a new self-signed certificate and ECDSA P-256
// key. Hosts that parse as IP addresses become IP SANs, everything else a
// DNS SAN.
func GenerateSelfSigned(params Params) (*Pair, error) {
	params = params.WithDefaults()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               params.Subject.Name(),
		NotBefore:             now,
		NotAfter:              now.Add(params.Validity),
		KeyUsage:              KeyUsages,
		ExtKeyUsage:           ExtKeyUsages,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, h := range params.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	// Self-signed: issuer = subject, signed with own key.
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	return &Pair{Key: key, Cert: cert, Raw: der}, nil
}

// randomSerial generates a random 128-bit serial number.
func randomSerial() (*big.Int, error) {
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, fmt.Errorf("generate random serial: %w", err)
	}
	return serial, nil
}
