package tls

import (
	"context"
	stdtls "crypto/tls"
	"io"
	"testing"
	"time"

	"silq/session/tls/tlstest"
	"silq/transport"
	"silq/transport/tcp"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type HandshakeTestSuite struct {
	suite.Suite

	root   *tlstest.Issued
	server *tlstest.Issued
	client *tlstest.Issued
}

func TestHandshakeTestSuite(t *testing.T) {
	suite.Run(t, new(HandshakeTestSuite))
}

func (s *HandshakeTestSuite) SetupSuite() {
	now := time.Now()
	s.root = tlstest.NewRootCA("root", now)
	s.server = tlstest.IssueServer(s.root, now)
	s.client = tlstest.IssueClient(s.root, "client", now)
}

func (s *HandshakeTestSuite) TearDownTest() {
	goleak.VerifyNone(s.T())
}

// serve accepts one conn, runs a server handshake on it and writes "hi" back.
func (s *HandshakeTestSuite) serve(lis *tcp.Listener, cfg *stdtls.Config) <-chan error {
	done := make(chan error, 1)
	go func() {
		conn, err := lis.Accept(context.Background())
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()

		srv := stdtls.Server(conn, cfg)
		if err := srv.Handshake(); err != nil {
			done <- err
			return
		}
		_, err = srv.Write([]byte("hi"))
		done <- err
	}()
	return done
}

func (s *HandshakeTestSuite) serverConfig(clientAuth stdtls.ClientAuthType) *stdtls.Config {
	return &stdtls.Config{
		Certificates: []stdtls.Certificate{s.server.TLSCertificate()},
		ClientAuth:   clientAuth,
		ClientCAs:    s.root.Pool(),
	}
}

func (s *HandshakeTestSuite) TestHandshake() {
	ca, err := CertificateAuthorityFromPEM(s.root.CertPEM)
	s.Require().NoError(err)
	id, err := ClientIdentityFromPEM(s.client.CertPEM, s.client.KeyPEM)
	s.Require().NoError(err)
	stranger := tlstest.NewRootCA("stranger", time.Now())
	strangerCA, err := CertificateAuthorityFromPEM(stranger.CertPEM)
	s.Require().NoError(err)

	testcases := []struct {
		desc       string
		builder    PolicyBuilder
		clientAuth stdtls.ClientAuthType
		wantErr    bool
	}{
		{desc: "server auth", builder: PolicyBuilder{CA: ca}, clientAuth: stdtls.NoClientCert},
		{desc: "mutual auth", builder: PolicyBuilder{CA: ca, Identity: id}, clientAuth: stdtls.RequireAndVerifyClientCert},
		{desc: "unknown issuer", builder: PolicyBuilder{CA: strangerCA}, clientAuth: stdtls.NoClientCert, wantErr: true},
		{desc: "missing identity", builder: PolicyBuilder{CA: ca}, clientAuth: stdtls.RequireAndVerifyClientCert, wantErr: true},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			policy, err := tc.builder.Build()
			s.Require().NoError(err)

			lis, err := tcp.Listen(transport.Addr{Host: "127.0.0.1"})
			s.Require().NoError(err)
			defer lis.Close()
			done := s.serve(lis, s.serverConfig(tc.clientAuth))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			raw, err := tcp.NewDialer(tcp.Options{}).Dial(ctx, lis.Addr())
			s.Require().NoError(err)

			b := make([]byte, 2)
			conn, err := Handshake(ctx, raw, policy.ClientConfig("localhost"))
			if err == nil {
				defer conn.Close()
				_, err = io.ReadFull(conn, b)
			}

			if tc.wantErr {
				// TLS 1.3 servers reject a client certificate after the
				// client considers the handshake done.
				s.Error(err)
				s.Error(<-done)
				return
			}
			s.Require().NoError(err)
			s.Equal("hi", string(b))
			s.NoError(<-done)
		})
	}
}
