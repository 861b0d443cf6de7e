package certprovider

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"
)

const (
	ECPrivateKeyBlockType = "EC PRIVATE KEY"
	issuer                = "Realia"
)

// SelfSignedCertificateProvider issues a throwaway CA and a serving certificate for local
// deployments that want https without a real certificate authority.
type SelfSignedCertificateProvider struct {
	org   string
	hosts []string
}

func NewSelfSignedCertificateProvider(org string, hosts ...string) *SelfSignedCertificateProvider {
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1"}
	}
	return &SelfSignedCertificateProvider{org: org, hosts: hosts}
}

func serialNumber() (*big.Int, error) {
	return rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
}

func (s *SelfSignedCertificateProvider) GetCACertificate(expire time.Time) (*x509.Certificate, *ecdsa.PrivateKey, error) {
	serial, err := serialNumber()
	if err != nil {
		return nil, nil, err
	}
	ca := &x509.Certificate{
		SerialNumber: serial,
		Issuer: pkix.Name{
			Organization: []string{issuer},
		},
		Subject: pkix.Name{
			Organization: []string{s.org},
			CommonName:   s.org + " local CA",
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              expire,
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ca key: %w", err)
	}

	caBytes, err := x509.CreateCertificate(rand.Reader, ca, ca, caKey.Public(), caKey)
	if err != nil {
		return nil, nil, err
	}

	caCert, err := x509.ParseCertificate(caBytes)
	if err != nil {
		return nil, nil, err
	}

	return caCert, caKey, nil
}

// GetCertificate signs a serving certificate for the provider hosts with the given CA.
func (s *SelfSignedCertificateProvider) GetCertificate(caCert *x509.Certificate, caKey *ecdsa.PrivateKey) (*x509.Certificate, *ecdsa.PrivateKey, error) {
	serial, err := serialNumber()
	if err != nil {
		return nil, nil, err
	}
	cert := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: caCert.Subject.Organization,
			CommonName:   s.hosts[0],
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              caCert.NotAfter,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	for _, h := range s.hosts {
		if ip := net.ParseIP(h); ip != nil {
			cert.IPAddresses = append(cert.IPAddresses, ip)
		} else {
			cert.DNSNames = append(cert.DNSNames, h)
		}
	}

	certKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serving key: %w", err)
	}

	certBytes, err := x509.CreateCertificate(rand.Reader, cert, caCert, certKey.Public(), caKey)
	if err != nil {
		return nil, nil, err
	}

	c, err := x509.ParseCertificate(certBytes)
	if err != nil {
		return nil, nil, err
	}

	return c, certKey, nil
}

func (s *SelfSignedCertificateProvider) ConvertToPEM(cert *x509.Certificate, key *ecdsa.PrivateKey) ([]byte, []byte, error) {
	certPEM := new(bytes.Buffer)
	if err := pem.Encode(certPEM, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}); err != nil {
		return nil, nil, err
	}

	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, err
	}
	keyPEM := new(bytes.Buffer)
	if err := pem.Encode(keyPEM, &pem.Block{Type: ECPrivateKeyBlockType, Bytes: der}); err != nil {
		return nil, nil, err
	}

	return certPEM.Bytes(), keyPEM.Bytes(), nil
}

// TLSConfig returns a server config holding a fresh certificate valid until expire.
func (s *SelfSignedCertificateProvider) TLSConfig(expire time.Time) (*tls.Config, error) {
	caCert, caKey, err := s.GetCACertificate(expire)
	if err != nil {
		return nil, err
	}
	cert, key, err := s.GetCertificate(caCert, caKey)
	if err != nil {
		return nil, err
	}
	certPEM, keyPEM, err := s.ConvertToPEM(cert, key)
	if err != nil {
		return nil, err
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
