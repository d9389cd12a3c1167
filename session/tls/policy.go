package tls

import (
	stdtls "crypto/tls"

	"silq/lib/fault"
)

type Mode uint8

const (
	ModeSecureOnly Mode = iota
	ModeAllowUnsecure
)

func (m Mode) String() string {
	if m == ModeAllowUnsecure {
		return "allow-unsecure"
	}
	return "secure-only"
}

// TransportSecurity is only made by [PolicyBuilder.Build],
// so an AllowUnsecure policy never carries identity material.
type TransportSecurity struct {
	mode     Mode
	identity *ClientIdentity
	ca       *CertificateAuthority
}

func (ts TransportSecurity) Mode() Mode                       { return ts.mode }
func (ts TransportSecurity) AllowsUnsecure() bool             { return ts.mode == ModeAllowUnsecure }
func (ts TransportSecurity) Identity() *ClientIdentity        { return ts.identity }
func (ts TransportSecurity) Authority() *CertificateAuthority { return ts.ca }

// ClientConfig builds the handshake configuration for serverName.
// Without an authority the platform roots are trusted.
func (ts TransportSecurity) ClientConfig(serverName string) *stdtls.Config {
	cfg := &stdtls.Config{
		ServerName: serverName,
		MinVersion: stdtls.VersionTLS12,
	}

	if ts.ca != nil {
		cfg.RootCAs = ts.ca.Pool()
	}
	if ts.identity != nil {
		cfg.Certificates = []stdtls.Certificate{ts.identity.TLSCertificate()}
	}

	return cfg
}

type PolicyBuilder struct {
	AllowUnsecure bool
	Identity      *ClientIdentity
	CA            *CertificateAuthority
}

func (pb PolicyBuilder) Build() (TransportSecurity, error) {
	if !pb.AllowUnsecure {
		return TransportSecurity{
			mode:     ModeSecureOnly,
			identity: pb.Identity,
			ca:       pb.CA,
		}, nil
	}

	if pb.Identity != nil || pb.CA != nil {
		return TransportSecurity{}, fault.New(fault.Configuration,
			"allowing unsecure connections and client/server authentication are mutually exclusive")
	}

	return TransportSecurity{mode: ModeAllowUnsecure}, nil
}
