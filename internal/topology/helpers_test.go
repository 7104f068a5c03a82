package topology

import (
	"net/netip"
	"testing"
)

func mustPrefix(t *testing.T, s string) netip.Prefix {
	t.Helper()
	p, err := netip.ParsePrefix(s)
	if err != nil {
		t.Fatalf("mustPrefix(%q): %v", s, err)
	}
	return p
}

func prefix24(addr netip.Addr) string {
	p := netip.PrefixFrom(addr, 24).Masked()
	return p.String()
}
