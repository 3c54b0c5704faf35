package ipallow

import "testing"

func mustParse(t *testing.T, raw string) *List {
	t.Helper()
	l, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	return l
}

func TestEmptyListAllowsEverything(t *testing.T) {
	l := mustParse(t, "")
	for _, addr := range []string{"10.0.0.5", "203.0.113.9", "::1", "garbage"} {
		if !l.Allowed(addr) {
			t.Fatalf("empty list rejected %q", addr)
		}
	}

	var nilList *List
	if !nilList.Allowed("10.0.0.5") {
		t.Fatal("nil list rejected an address")
	}
}

func TestLiteralMatch(t *testing.T) {
	l := mustParse(t, "10.0.0.5")

	if !l.Allowed("10.0.0.5") {
		t.Fatal("exact literal rejected")
	}
	if l.Allowed("10.0.0.6") {
		t.Fatal("neighbouring address accepted")
	}
}

func TestPrefixMatchHonoursPrefixLength(t *testing.T) {
	// A /27 must not behave like a /24. The original panel truncated
	// CIDRs to a textual /24-style prefix; this implementation does
	// real prefix-bit matching instead.
	l := mustParse(t, "192.168.1.0/27")

	if !l.Allowed("192.168.1.30") {
		t.Fatal("address inside /27 rejected")
	}
	if l.Allowed("192.168.1.40") {
		t.Fatal("address outside /27 but inside /24 accepted")
	}
}

func TestWidePrefixMatch(t *testing.T) {
	l := mustParse(t, "10.0.0.0/8")

	if !l.Allowed("10.200.3.4") {
		t.Fatal("address inside /8 rejected")
	}
	if l.Allowed("11.0.0.1") {
		t.Fatal("address outside /8 accepted")
	}
}

func TestMixedEntries(t *testing.T) {
	l := mustParse(t, " 10.0.0.5 , 192.168.1.0/24 ,, ::1 ")

	cases := []struct {
		addr string
		want bool
	}{
		{"10.0.0.5", true},
		{"10.0.0.6", false},
		{"192.168.1.200", true},
		{"192.168.2.1", false},
		{"::1", true},
		{"::2", false},
	}
	for _, tc := range cases {
		if got := l.Allowed(tc.addr); got != tc.want {
			t.Fatalf("Allowed(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func TestUnparseableAddressFailsClosed(t *testing.T) {
	l := mustParse(t, "10.0.0.0/8")

	for _, addr := range []string{"", "unknown", "10.0.0", "not-an-ip"} {
		if l.Allowed(addr) {
			t.Fatalf("unparseable address %q accepted", addr)
		}
	}
}

func TestMappedIPv4Literal(t *testing.T) {
	l := mustParse(t, "10.0.0.5")

	if !l.Allowed("::ffff:10.0.0.5") {
		t.Fatal("IPv4-mapped form of a listed literal rejected")
	}
}

func TestParseRejectsBadEntries(t *testing.T) {
	for _, raw := range []string{"10.0.0.999", "10.0.0.0/40", "hosts.example.com"} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("Parse(%q) succeeded, want error", raw)
		}
	}
}
