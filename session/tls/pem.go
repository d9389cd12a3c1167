package tls

import (
	"encoding/base64"
	"encoding/pem"

	"silq/lib/fault"
)

const (
	blockCertificate  = "CERTIFICATE"
	blockECParameters = "EC PARAMETERS"
)

// decodeBlocks splits data into PEM blocks, dropping EC PARAMETERS.
// Text outside blocks is ignored, but data without any block is an error.
func decodeBlocks(data []byte, what string) ([]*pem.Block, error) {
	var blocks []*pem.Block
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		data = rest

		if block.Type == blockECParameters {
			continue
		}
		blocks = append(blocks, block)
	}

	switch len(blocks) {
	case 0:
		return nil, fault.Newf(fault.Certificate, "no %s found in PEM", what)
	case 1:
		return blocks, nil
	default:
		return nil, fault.Newf(fault.Certificate, "expected exactly one %s in PEM, found %d", what, len(blocks))
	}
}

func decodeBase64(s, what string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fault.Wrapf(fault.Certificate, err, "decoding base64 %s", what)
	}
	return b, nil
}
