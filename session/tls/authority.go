package tls

import (
	"crypto/x509"
	"encoding/pem"

	"silq/lib/fault"
)

// CertificateAuthority is the only root trusted when set on a policy.
type CertificateAuthority struct {
	der  []byte
	cert *x509.Certificate
}

func CertificateAuthorityFromPEM(caPEM []byte) (*CertificateAuthority, error) {
	blocks, err := decodeBlocks(caPEM, "certificate")
	if err != nil {
		return nil, err
	}
	if blocks[0].Type != blockCertificate {
		return nil, fault.Newf(fault.Certificate, "unexpected PEM block %q, want %q", blocks[0].Type, blockCertificate)
	}

	return CertificateAuthorityFromBytes(blocks[0].Bytes)
}

func CertificateAuthorityFromBase64PEM(caB64 string) (*CertificateAuthority, error) {
	caPEM, err := decodeBase64(caB64, "certificate")
	if err != nil {
		return nil, err
	}
	return CertificateAuthorityFromPEM(caPEM)
}

func CertificateAuthorityFromBytes(der []byte) (*CertificateAuthority, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fault.Wrap(fault.Certificate, err, "parsing certificate")
	}

	return &CertificateAuthority{der: clone(der), cert: cert}, nil
}

func (ca *CertificateAuthority) CertificateDER() []byte { return clone(ca.der) }

func (ca *CertificateAuthority) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockCertificate, Bytes: ca.der})
}

func (ca *CertificateAuthority) Certificate() *x509.Certificate { return ca.cert }

// Pool returns a fresh pool holding only this certificate.
func (ca *CertificateAuthority) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(ca.cert)
	return pool
}
