// Package tlstest issues throwaway certificates for tests.
package tlstest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	stdtls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"sync/atomic"
	"time"
)

var serial atomic.Int64

// Issued is a certificate with its key, in DER and PEM.
type Issued struct {
	Cert    *x509.Certificate
	CertDER []byte
	Key     crypto.Signer

	CertPEM []byte
	KeyPEM  []byte // PKCS8
}

func (is *Issued) TLSCertificate() stdtls.Certificate {
	return stdtls.Certificate{
		Certificate: [][]byte{is.CertDER},
		PrivateKey:  is.Key,
		Leaf:        is.Cert,
	}
}

// Pool holds only this certificate.
func (is *Issued) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(is.Cert)
	return pool
}

// KeyPEMAs encodes the key as PKCS1 (RSA), SEC1 (EC) or PKCS8 by block type.
func (is *Issued) KeyPEMAs(blockType string) []byte {
	var der []byte
	var err error

	switch blockType {
	case "RSA PRIVATE KEY":
		der = x509.MarshalPKCS1PrivateKey(is.Key.(*rsa.PrivateKey))
	case "EC PRIVATE KEY":
		der, err = x509.MarshalECPrivateKey(is.Key.(*ecdsa.PrivateKey))
	default:
		der, err = x509.MarshalPKCS8PrivateKey(is.Key)
	}
	if err != nil {
		panic(err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

func NewRootCA(name string, now time.Time) *Issued {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(serial.Add(1)),
		Subject: pkix.Name{
			CommonName:   name,
			Organization: []string{"Example Org"},
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
	}

	return issue(template, nil, nil, newECKey())
}

// IssueServer issues a certificate valid for localhost and the loopback addresses.
func IssueServer(parent *Issued, now time.Time) *Issued {
	template := leafTemplate("localhost", now, x509.ExtKeyUsageServerAuth)
	template.DNSNames = []string{"localhost"}
	template.IPAddresses = []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}

	return issue(template, parent.Cert, parent.Key, newECKey())
}

func IssueClient(parent *Issued, name string, now time.Time) *Issued {
	return issue(leafTemplate(name, now, x509.ExtKeyUsageClientAuth), parent.Cert, parent.Key, newECKey())
}

// IssueClientRSA is like IssueClient with an RSA key.
func IssueClientRSA(parent *Issued, name string, now time.Time) *Issued {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return issue(leafTemplate(name, now, x509.ExtKeyUsageClientAuth), parent.Cert, parent.Key, key)
}

func leafTemplate(name string, now time.Time, usage x509.ExtKeyUsage) *x509.Certificate {
	return &x509.Certificate{
		SerialNumber: big.NewInt(serial.Add(1)),
		Subject: pkix.Name{
			CommonName:   name,
			Organization: []string{"Example Org"},
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{usage},
		BasicConstraintsValid: true,
	}
}

func newECKey() crypto.Signer {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}
	return priv
}

// issue self-signs when parent is nil.
func issue(template, parent *x509.Certificate, parentKey, key crypto.Signer) *Issued {
	if parent == nil {
		parent, parentKey = template, key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, key.Public(), parentKey)
	if err != nil {
		panic(err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		panic(err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		panic(err)
	}

	return &Issued{
		Cert:    cert,
		CertDER: der,
		Key:     key,
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}
}
