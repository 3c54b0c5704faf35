// Package ipallow matches source addresses against a configured set of
// literal addresses and CIDR ranges. An empty configuration disables
// the feature entirely (allow all); it never means deny all.
package ipallow

import (
	"fmt"
	"net/netip"
	"strings"
)

// List is a parsed allowlist. The zero value and a nil *List both allow
// every address.
type List struct {
	addrs    []netip.Addr
	prefixes []netip.Prefix
}

// Parse builds a List from a comma-separated string of addresses and
// CIDR ranges, e.g. "10.0.0.5, 192.168.1.0/24". Empty input yields an
// empty (allow-all) list. Any unparseable entry is a configuration
// error.
func Parse(raw string) (*List, error) {
	l := &List{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.Contains(field, "/") {
			p, err := netip.ParsePrefix(field)
			if err != nil {
				return nil, fmt.Errorf("allowlist entry %q: %w", field, err)
			}
			l.prefixes = append(l.prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(field)
		if err != nil {
			return nil, fmt.Errorf("allowlist entry %q: %w", field, err)
		}
		l.addrs = append(l.addrs, a.Unmap())
	}
	return l, nil
}

// Empty reports whether the list has no entries.
func (l *List) Empty() bool {
	return l == nil || (len(l.addrs) == 0 && len(l.prefixes) == 0)
}

// Allowed reports whether addr passes the allowlist. Ranges use real
// prefix-bit matching at the configured prefix length. An address that
// does not parse fails closed (unless the list is empty and the check
// is disabled altogether).
func (l *List) Allowed(addr string) bool {
	if l.Empty() {
		return true
	}

	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	ip = ip.Unmap()

	for _, a := range l.addrs {
		if ip == a {
			return true
		}
	}
	for _, p := range l.prefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}
