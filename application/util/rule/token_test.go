package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidToken(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected bool
	}{
		{
			desc:     "valid token with alphabets",
			input:    "Token",
			expected: true,
		},
		{
			desc:     "valid token with digits",
			input:    "Token123",
			expected: true,
		},
		{
			desc:     "valid token with special characters",
			input:    "Token-._~",
			expected: true,
		},
		{
			desc:     "invalid token with space",
			input:    "Token 123",
			expected: false,
		},
		{
			desc:     "invalid token with special characters",
			input:    "Token@123",
			expected: false,
		},
		{
			desc:     "empty token",
			input:    "",
			expected: false,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsValidToken(tc.input))
		})
	}
}

func TestIsValidField(t *testing.T) {
	testcases := []struct {
		desc    string
		name    string
		value   string
		nameOK  bool
		valueOK bool
	}{
		{
			desc:    "plain header",
			name:    "X-Custom-Header1",
			value:   "some value",
			nameOK:  true,
			valueOK: true,
		},
		{
			desc:    "value with semicolon and tab",
			name:    "x-custom-header2",
			value:   "some value with ;\t",
			nameOK:  true,
			valueOK: true,
		},
		{
			desc:    "name with space",
			name:    "Bad Name",
			value:   "v",
			nameOK:  false,
			valueOK: true,
		},
		{
			desc:    "value with CRLF",
			name:    "X-Injected",
			value:   "a\r\nSet-Cookie: b",
			nameOK:  true,
			valueOK: false,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.nameOK, IsValidFieldName(tc.name))
			assert.Equal(t, tc.valueOK, IsValidFieldValue(tc.value))
		})
	}
}

func TestUnquote(t *testing.T) {
	testcases := []struct {
		input    string
		expected string
	}{
		{input: `foo`, expected: `foo`},
		{input: `"foo"`, expected: `foo`},
		{input: `"a \"b\""`, expected: `a "b"`},
		{input: `"back\\slash"`, expected: `back\slash`},
		{input: `"`, expected: `"`},
		{input: `"unterminated`, expected: `"unterminated`},
	}

	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, string(Unquote([]byte(tc.input))))
		})
	}
}
