package transfer

import (
	"io"
	"strings"

	"silq/application/http"

	"github.com/pkg/errors"
)

type Coding string

const (
	CodingChunked Coding = "chunked"
)

type Coder interface {
	Coding() Coding
	NewReader(r io.Reader) io.Reader
	NewWriter(w io.WriteCloser) io.WriteCloser
}

// ParseCodings splits Transfer-Encoding field values into codings,
// in the order they were applied.
func ParseCodings(values []string) []Coding {
	codings := make([]Coding, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			// Drop transfer-parameters, if any.
			part, _, _ = strings.Cut(part, ";")
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			codings = append(codings, Coding(part))
		}
	}
	return codings
}

type CodingPipeliner struct{ coders map[Coding]Coder }

func NewCodingPipeliner(customs []Coder) *CodingPipeliner {
	cp := &CodingPipeliner{}
	cp.coders = map[Coding]Coder{
		CodingChunked: NewChunkedCoder(),
	}

	for _, coder := range customs {
		cp.coders[coder.Coding()] = coder
	}

	return cp
}

var ErrUnsupportedCoding = errors.New("coding is unsupported")

// Decode stacks readers so the last applied coding is undone first.
// onTrailer receives non-empty trailer sections of a chunked body.
func (cp *CodingPipeliner) Decode(r io.Reader, codings []Coding, onTrailer func(f []http.Field)) (io.Reader, error) {
	for idx := len(codings) - 1; idx >= 0; idx-- {
		coding := codings[idx]
		coder, ok := cp.coders[coding]
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedCoding, "%q", coding)
		}

		r = coder.NewReader(r)
		if chunked, ok := r.(*ChunkedReader); ok && onTrailer != nil {
			chunked.SetOnTrailerReceived(func(f []http.Field) {
				if len(f) == 0 {
					return
				}
				onTrailer(f)
			})
		}
	}

	return r, nil
}

func (cp *CodingPipeliner) Encode(w io.WriteCloser, codings []Coding, sendTrailers func() []http.Field) (io.WriteCloser, error) {
	for idx := len(codings) - 1; idx >= 0; idx-- {
		coding := codings[idx]
		coder, ok := cp.coders[coding]
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedCoding, "%q", coding)
		}

		w = coder.NewWriter(w)
		if chunked, ok := w.(*ChunkedWriter); ok && sendTrailers != nil {
			chunked.SetSendTrailers(sendTrailers)
		}
	}

	return w, nil
}
