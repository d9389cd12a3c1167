package transport

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddrString(t *testing.T) {
	testcases := []struct {
		desc     string
		addr     Addr
		expected string
	}{
		{desc: "ipv4", addr: Addr{Host: "127.0.0.1", Port: 80}, expected: "127.0.0.1:80"},
		{desc: "ipv6", addr: Addr{Host: "::1", Port: 443}, expected: "[::1]:443"},
		{desc: "name", addr: Addr{Host: "example.com", Port: 8080}, expected: "example.com:8080"},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.addr.String())
		})
	}
}

func TestAddrFrom(t *testing.T) {
	addr := AddrFrom(netip.MustParseAddrPort("[2001:db8::1]:8443"))
	assert.Equal(t, Addr{Host: "2001:db8::1", Port: 8443}, addr)
}
