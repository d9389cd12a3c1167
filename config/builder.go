package config

import (
	"os"

	"silq/application/http/actor/client"
	"silq/lib/executor"
	"silq/lib/fault"
	"silq/session/tls"
)

// Options returns the engine defaults overridden by f.
func (f *File) Options() client.Options {
	opts := client.DefaultOptions()

	decode := &opts.Receive.Decode
	if f.Decode.MaxStatusLineLength > 0 {
		decode.MaxStatusLineLength = f.Decode.MaxStatusLineLength
	}
	if f.Decode.MaxFieldLineLength > 0 {
		decode.MaxFieldLineLength = f.Decode.MaxFieldLineLength
	}
	decode.AllowSoleLF = f.Decode.AllowSoleLF

	if f.MaxFrameSize > 0 {
		opts.Frame.MaxFrameSize = f.MaxFrameSize
	}

	return opts
}

// Identity loads the client identity, or returns nil without client_auth.
func (f *File) Identity() (*tls.ClientIdentity, error) {
	ca := f.ClientAuth
	if ca == nil {
		return nil, nil
	}

	if ca.CertPEMBase64 != "" {
		return tls.ClientIdentityFromBase64PEM(ca.CertPEMBase64, ca.KeyPEMBase64)
	}

	certPEM, err := os.ReadFile(ca.CertFile)
	if err != nil {
		return nil, fault.Wrap(fault.Configuration, err, "reading client certificate")
	}
	keyPEM, err := os.ReadFile(ca.KeyFile)
	if err != nil {
		return nil, fault.Wrap(fault.Configuration, err, "reading client key")
	}

	return tls.ClientIdentityFromPEM(certPEM, keyPEM)
}

// Authority loads the trusted authority, or returns nil without server_auth.
func (f *File) Authority() (*tls.CertificateAuthority, error) {
	sa := f.ServerAuth
	if sa == nil {
		return nil, nil
	}

	if sa.CAPEMBase64 != "" {
		return tls.CertificateAuthorityFromBase64PEM(sa.CAPEMBase64)
	}

	caPEM, err := os.ReadFile(sa.CAFile)
	if err != nil {
		return nil, fault.Wrap(fault.Configuration, err, "reading certificate authority")
	}

	return tls.CertificateAuthorityFromPEM(caPEM)
}

// Builder prepares a client builder carrying every setting of f.
// Certificate material is loaded here, so a bad file fails early.
func (f *File) Builder(ex *executor.Executor) (*client.Builder, error) {
	id, err := f.Identity()
	if err != nil {
		return nil, err
	}
	ca, err := f.Authority()
	if err != nil {
		return nil, err
	}

	b := client.NewBuilder(ex).
		AllowUnsecure(f.AllowUnsecure).
		WithOptions(f.Options())
	if id != nil {
		b = b.WithClientAuthentication(id)
	}
	if ca != nil {
		b = b.WithServerAuthentication(ca)
	}

	return b, nil
}
