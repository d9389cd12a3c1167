package semantic

import (
	"io"
	"strings"
	"testing"

	"silq/application/http"
	"silq/application/http/transfer"
	"silq/lib/types/pointer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMessage(t *testing.T) {
	testcases := []struct {
		desc      string
		headers   map[string]string
		body      string
		length    *uint
		codings   []transfer.Coding
		chunked   bool
		bodyAfter string
		wantErr   bool
	}{
		{
			desc:      "transfer encoding wins",
			headers:   map[string]string{"Transfer-Encoding": "chunked", "Content-Length": "5"},
			body:      "raw body",
			codings:   []transfer.Coding{transfer.CodingChunked},
			chunked:   true,
			bodyAfter: "raw body",
		},
		{
			desc:      "content length cuts body",
			headers:   map[string]string{"Content-Length": "5"},
			body:      "Hello, World",
			length:    pointer.To(uint(5)),
			bodyAfter: "Hello",
		},
		{
			desc:      "chunked not last",
			headers:   map[string]string{"Transfer-Encoding": "chunked, gzip"},
			codings:   []transfer.Coding{transfer.CodingChunked, "gzip"},
			bodyAfter: "",
		},
		{desc: "no framing", body: "until close", bodyAfter: "until close"},
		{desc: "negative length", headers: map[string]string{"Content-Length": "-1"}, wantErr: true},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			var fields []http.Field
			for name, value := range tc.headers {
				fields = append(fields, http.Field{Name: []byte(name), Value: []byte(value)})
			}

			msg, err := createMessage(http.Version11, fields, strings.NewReader(tc.body))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, http.Version11, msg.Version)
			assert.Equal(t, len(tc.headers), msg.Headers.Len())
			assert.Equal(t, tc.length, msg.ContentLength)
			assert.Equal(t, tc.codings, msg.TransferEncoding)
			assert.Equal(t, tc.chunked, msg.IsChunked())

			b, err := io.ReadAll(msg.Body)
			assert.NoError(t, err)
			assert.Equal(t, tc.bodyAfter, string(b))
		})
	}
}

func TestExtractContentLength(t *testing.T) {
	testcases := []struct {
		desc     string
		values   []string
		expected *uint
		wantErr  bool
	}{
		{desc: "absent"},
		{desc: "single", values: []string{"1"}, expected: pointer.To(uint(1))},
		{desc: "agreeing list", values: []string{"42, 42"}, expected: pointer.To(uint(42))},
		{desc: "agreeing fields", values: []string{"7", "7"}, expected: pointer.To(uint(7))},
		{desc: "conflicting", values: []string{"7", "8"}, wantErr: true},
		{desc: "conflict after agreement", values: []string{"7, 7", "8"}, wantErr: true},
		{desc: "empty member", values: []string{"7,"}, wantErr: true},
		{desc: "not a number", values: []string{"haha"}, wantErr: true},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			var h Headers
			for _, v := range tc.values {
				h.Add("Content-Length", v)
			}

			l, err := extractContentLength(h)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, l)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, l)
		})
	}
}

func TestEnsureHeadersSet(t *testing.T) {
	var h Headers
	h.Add("Content-Length", "1")
	h.Add("Transfer-Encoding", "gzip")
	h.Add("Transfer-Encoding", "identity")

	msg := Message{
		Headers:          h,
		ContentLength:    pointer.To(uint(12)),
		TransferEncoding: []transfer.Coding{transfer.CodingChunked},
	}
	msg.EnsureHeadersSet()

	assert.Equal(t, []Field{
		{"Content-Length", "12"},
		{"Transfer-Encoding", "chunked"},
	}, msg.Headers.Fields())
}
