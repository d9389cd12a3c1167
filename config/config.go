// Package config loads client settings from YAML or TOML files.
package config

// File is the on-disk shape of a client configuration.
// Zero values keep the engine defaults.
type File struct {
	AllowUnsecure bool `yaml:"allow_unsecure" toml:"allow_unsecure"`

	ClientAuth *ClientAuthSection `yaml:"client_auth" toml:"client_auth"`
	ServerAuth *ServerAuthSection `yaml:"server_auth" toml:"server_auth"`

	Decode DecodeSection `yaml:"decode" toml:"decode"`

	MaxFrameSize uint `yaml:"max_frame_size" toml:"max_frame_size"`
}

// ClientAuthSection holds the client identity, either as two PEM files or as
// two base64 encoded PEM strings.
type ClientAuthSection struct {
	CertFile string `yaml:"cert_file" toml:"cert_file"`
	KeyFile  string `yaml:"key_file" toml:"key_file"`

	CertPEMBase64 string `yaml:"cert_pem_base64" toml:"cert_pem_base64"`
	KeyPEMBase64  string `yaml:"key_pem_base64" toml:"key_pem_base64"`
}

// ServerAuthSection holds the authority trusted for server certificates.
type ServerAuthSection struct {
	CAFile      string `yaml:"ca_file" toml:"ca_file"`
	CAPEMBase64 string `yaml:"ca_pem_base64" toml:"ca_pem_base64"`
}

type DecodeSection struct {
	MaxStatusLineLength uint `yaml:"max_status_line_length" toml:"max_status_line_length"`
	MaxFieldLineLength  uint `yaml:"max_field_line_length" toml:"max_field_line_length"`
	AllowSoleLF         bool `yaml:"allow_sole_lf" toml:"allow_sole_lf"`
}
