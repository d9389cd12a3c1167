package tls

import (
	"crypto"
	stdtls "crypto/tls"
	"crypto/x509"
	"encoding/pem"

	"silq/lib/fault"

	"github.com/pkg/errors"
)

// KeyKind is the encoding of a private key.
type KeyKind uint8

const (
	KeyPKCS8 KeyKind = iota
	KeyPKCS1
	KeySEC1
)

var keyBlockTypes = map[KeyKind]string{
	KeyPKCS8: "PRIVATE KEY",
	KeyPKCS1: "RSA PRIVATE KEY",
	KeySEC1:  "EC PRIVATE KEY",
}

func (k KeyKind) BlockType() string { return keyBlockTypes[k] }

func keyKindOf(blockType string) (KeyKind, bool) {
	for kind, typ := range keyBlockTypes {
		if typ == blockType {
			return kind, true
		}
	}
	return 0, false
}

// ClientIdentity is a certificate and its private key,
// presented to servers that ask for client authentication.
// It is immutable once made.
type ClientIdentity struct {
	certDER []byte
	keyDER  []byte
	keyKind KeyKind

	cert stdtls.Certificate
}

func ClientIdentityFromPEM(certPEM, keyPEM []byte) (*ClientIdentity, error) {
	certBlocks, err := decodeBlocks(certPEM, "certificate")
	if err != nil {
		return nil, err
	}
	if certBlocks[0].Type != blockCertificate {
		return nil, fault.Newf(fault.Certificate, "unexpected PEM block %q, want %q", certBlocks[0].Type, blockCertificate)
	}

	keyBlocks, err := decodeBlocks(keyPEM, "private key")
	if err != nil {
		return nil, err
	}

	kind, ok := keyKindOf(keyBlocks[0].Type)
	if !ok {
		return nil, fault.Newf(fault.Certificate, "unrecognized private key type %q", keyBlocks[0].Type)
	}

	if _, err := parseKey(kind, keyBlocks[0].Bytes); err != nil {
		return nil, fault.Wrapf(fault.Certificate, err, "parsing %s", kind.BlockType())
	}

	return newClientIdentity(certBlocks[0].Bytes, keyBlocks[0].Bytes, kind)
}

func ClientIdentityFromBase64PEM(certB64, keyB64 string) (*ClientIdentity, error) {
	certPEM, err := decodeBase64(certB64, "certificate")
	if err != nil {
		return nil, err
	}

	keyPEM, err := decodeBase64(keyB64, "private key")
	if err != nil {
		return nil, err
	}

	return ClientIdentityFromPEM(certPEM, keyPEM)
}

// ClientIdentityFromBytes takes DER directly.
// The key is tried as PKCS8, then PKCS1, then SEC1.
func ClientIdentityFromBytes(certDER, keyDER []byte) (*ClientIdentity, error) {
	for _, kind := range []KeyKind{KeyPKCS8, KeyPKCS1, KeySEC1} {
		if _, err := parseKey(kind, keyDER); err == nil {
			return newClientIdentity(certDER, keyDER, kind)
		}
	}

	return nil, fault.New(fault.Certificate, "unrecognized private key encoding")
}

func newClientIdentity(certDER, keyDER []byte, kind KeyKind) (*ClientIdentity, error) {
	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fault.Wrap(fault.Certificate, err, "parsing certificate")
	}

	key, err := parseKey(kind, keyDER)
	if err != nil {
		return nil, fault.Wrapf(fault.Certificate, err, "parsing %s", kind.BlockType())
	}

	if err := matchKey(leaf, key); err != nil {
		return nil, fault.Wrap(fault.Certificate, err, "checking key pair")
	}

	id := &ClientIdentity{
		certDER: clone(certDER),
		keyDER:  clone(keyDER),
		keyKind: kind,
	}
	id.cert = stdtls.Certificate{
		Certificate: [][]byte{id.certDER},
		PrivateKey:  key,
		Leaf:        leaf,
	}

	return id, nil
}

func (id *ClientIdentity) KeyKind() KeyKind       { return id.keyKind }
func (id *ClientIdentity) CertificateDER() []byte { return clone(id.certDER) }
func (id *ClientIdentity) PrivateKeyDER() []byte  { return clone(id.keyDER) }

func (id *ClientIdentity) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockCertificate, Bytes: id.certDER})
}

// PrivateKeyPEM encodes the key with the block type it was read with.
func (id *ClientIdentity) PrivateKeyPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: id.keyKind.BlockType(), Bytes: id.keyDER})
}

func (id *ClientIdentity) TLSCertificate() stdtls.Certificate { return id.cert }

func parseKey(kind KeyKind, der []byte) (crypto.Signer, error) {
	var (
		key any
		err error
	)

	switch kind {
	case KeyPKCS1:
		key, err = x509.ParsePKCS1PrivateKey(der)
	case KeySEC1:
		key, err = x509.ParseECPrivateKey(der)
	default:
		key, err = x509.ParsePKCS8PrivateKey(der)
	}
	if err != nil {
		return nil, err
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.Errorf("unsupported private key %T", key)
	}
	return signer, nil
}

func matchKey(leaf *x509.Certificate, key crypto.Signer) error {
	pub, ok := leaf.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return errors.Errorf("unsupported public key %T", leaf.PublicKey)
	}
	if !pub.Equal(key.Public()) {
		return errors.New("private key does not match certificate")
	}
	return nil
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }
