package uri

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHexRoundTrip(t *testing.T) {
	for _, c := range []byte{0x00, 0x31, 0x7F, 0xFF} {
		assert.Equal(t, c, unhex(hex(c)))
	}
	assert.Equal(t, [2]byte{'F', 'F'}, hex(0xFF))
	assert.Equal(t, byte(0xAB), unhex([2]byte{'a', 'b'}))
}

func TestShouldEscape(t *testing.T) {
	testcases := []struct {
		mode    encodeMode
		kept    string
		escaped string
	}{
		{mode: encodeUserInfo, kept: "a3-._~;:!$", escaped: "/@?# "},
		{mode: encodeHost, kept: ";[]:", escaped: "/@?#"},
		{mode: encodePath, kept: ";:@/", escaped: "?#[] "},
		{mode: encodeQuery, kept: ";:@/?", escaped: "#[]"},
		{mode: encodeFragment, kept: ";:@/?", escaped: "#[]"},
		{mode: encodeComponent, kept: "a3-._~", escaped: " ;=/:&+"},
		{mode: encodeForm, kept: "a3*-._", escaped: "~&=/+"},
	}
	for _, tc := range testcases {
		for _, c := range []byte(tc.kept) {
			assert.Falsef(t, shouldEscape(c, tc.mode), "mode %d should keep %q", tc.mode, c)
		}
		for _, c := range []byte(tc.escaped) {
			assert.Truef(t, shouldEscape(c, tc.mode), "mode %d should escape %q", tc.mode, c)
		}
	}
}

func TestEscape(t *testing.T) {
	testcases := []struct {
		input    string
		mode     encodeMode
		expected string
	}{
		{input: "foo:password/bar", mode: encodeUserInfo, expected: "foo:password%2Fbar"},
		{input: "한글.com", mode: encodeHost, expected: "%ED%95%9C%EA%B8%80.com"},
		{input: "/path/to/#1", mode: encodePath, expected: "/path/to/%231"},
		{input: "thisis[query]", mode: encodeQuery, expected: "thisis%5Bquery%5D"},
		{input: "2 x;y=z", mode: encodeComponent, expected: "2%20x%3By%3Dz"},
		{input: "a b&c=d~", mode: encodeForm, expected: "a+b%26c%3Dd%7E"},
	}
	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, escape(tc.input, tc.mode))
		})
	}

	assert.Equal(t, "a%20b", EscapeComponent("a b"))
	assert.Equal(t, "a+b", EscapeForm("a b"))
}

func TestUnescape(t *testing.T) {
	testcases := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "hey %5Bthere%5D", expected: "hey [there]"},
		{input: "hey %5bthere%5d", expected: "hey [there]"},
		{input: "%ED%95%9C", expected: "한"},
		{input: "plain", expected: "plain"},
		{input: "hey %5bthere%5", wantErr: true},
		{input: "hey %5bthere%5Z", wantErr: true},
		{input: "100%", wantErr: true},
	}
	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			s, err := unescape(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, s)
		})
	}
}
