package config

import "silq/lib/fault"

// Validate checks that every section is given in exactly one form.
// Policy conflicts are left to the client builder.
func (f *File) Validate() error {
	if ca := f.ClientAuth; ca != nil {
		files := ca.CertFile != "" || ca.KeyFile != ""
		inline := ca.CertPEMBase64 != "" || ca.KeyPEMBase64 != ""

		switch {
		case files && inline:
			return fault.New(fault.Configuration, "client_auth: files and base64 pem are mutually exclusive")
		case files && (ca.CertFile == "" || ca.KeyFile == ""):
			return fault.New(fault.Configuration, "client_auth: cert_file and key_file must be set together")
		case inline && (ca.CertPEMBase64 == "" || ca.KeyPEMBase64 == ""):
			return fault.New(fault.Configuration, "client_auth: cert_pem_base64 and key_pem_base64 must be set together")
		case !files && !inline:
			return fault.New(fault.Configuration, "client_auth: no identity given")
		}
	}

	if sa := f.ServerAuth; sa != nil {
		switch {
		case sa.CAFile != "" && sa.CAPEMBase64 != "":
			return fault.New(fault.Configuration, "server_auth: ca_file and ca_pem_base64 are mutually exclusive")
		case sa.CAFile == "" && sa.CAPEMBase64 == "":
			return fault.New(fault.Configuration, "server_auth: no authority given")
		}
	}

	return nil
}
