// Package certengine provisions the self-signed certificate material the
// HTTPS file server runs on. It has no HTTP concerns; it only knows about
// the certificate/key pair on disk and how to create it.
package certengine

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"strings"
	"time"
)

// Default file locations, relative to the working directory.
const (
	DefaultCertFile = "cert.pem"
	DefaultKeyFile  = "key.pem"
)

// DefaultValidity is how long a generated certificate is valid.
const DefaultValidity = 365 * 24 * time.Hour

// Default subject fields for generated certificates. These are placeholders;
// the certificate is only meant for local development.
const (
	DefaultCountry      = "US"
	DefaultProvince     = "State"
	DefaultLocality     = "City"
	DefaultOrganization = "Organization"
	DefaultCommonName   = "localhost"
)

// DefaultHosts are the subject alternative names put into generated
// certificates. Go and current browsers ignore the CN, so without SANs the
// certificate could never verify.
var DefaultHosts = []string{"localhost", "127.0.0.1", "::1"}

// SubjectParams holds the distinguished-name fields of a generated
// certificate. Zero values are replaced with defaults via WithDefaults().
type SubjectParams struct {
	Country      string
	Province     string
	Locality     string
	Organization string
	CommonName   string
}

// WithDefaults returns a copy of p with zero-value fields replaced by defaults.
func (p SubjectParams) WithDefaults() SubjectParams {
	if p.Country == "" {
		p.Country = DefaultCountry
	}
	if p.Province == "" {
		p.Province = DefaultProvince
	}
	if p.Locality == "" {
		p.Locality = DefaultLocality
	}
	if p.Organization == "" {
		p.Organization = DefaultOrganization
	}
	if p.CommonName == "" {
		p.CommonName = DefaultCommonName
	}
	return p
}

// Name converts the params into a pkix.Name.
func (p SubjectParams) Name() pkix.Name {
	return pkix.Name{
		Country:      []string{p.Country},
		Province:     []string{p.Province},
		Locality:     []string{p.Locality},
		Organization: []string{p.Organization},
		CommonName:   p.CommonName,
	}
}

// OpenSSLSubject renders the params in the slash-separated form accepted by
// `openssl req -subj`, e.g. "/C=US/ST=State/L=City/O=Organization/CN=localhost".
func (p SubjectParams) OpenSSLSubject() string {
	var b strings.Builder
	for _, f := range []struct{ key, val string }{
		{"C", p.Country},
		{"ST", p.Province},
		{"L", p.Locality},
		{"O", p.Organization},
		{"CN", p.CommonName},
	} {
		if f.val == "" {
			continue
		}
		b.WriteString("/")
		b.WriteString(f.key)
		b.WriteString("=")
		// Slashes inside a value must be escaped for openssl.
		b.WriteString(strings.ReplaceAll(f.val, "/", `\/`))
	}
	return b.String()
}

// Params groups everything a Generator needs to produce a certificate.
type Params struct {
	Subject  SubjectParams
	Hosts    []string
	Validity time.Duration
}

// WithDefaults returns a copy of p with zero-value fields replaced by defaults.
func (p Params) WithDefaults() Params {
	p.Subject = p.Subject.WithDefaults()
	if len(p.Hosts) == 0 {
		p.Hosts = append([]string(nil), DefaultHosts...)
	}
	if p.Validity <= 0 {
		p.Validity = DefaultValidity
	}
	return p
}

// ValidityDays returns the validity rounded up to whole days, the unit
// openssl takes.
func (p Params) ValidityDays() int {
	day := 24 * time.Hour
	return int((p.Validity + day - 1) / day)
}

// KeyUsages for generated certificates. The certificate signs itself, so it
// carries CertSign next to DigitalSignature (required for ECDSA handshakes).
const KeyUsages = x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign

// ExtKeyUsages restricts generated certificates to TLS server identity.
var ExtKeyUsages = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
