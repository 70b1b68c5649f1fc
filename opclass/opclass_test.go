package opclass

import "testing"

func TestParseClass_CaseInsensitive(t *testing.T) {
	cases := map[string]Class{
		"stat": Stat, "STAT": Stat, "Stat": Stat,
		"read": Read, "READ": Read,
		"write": Write, "Write": Write,
		"list": List, "LIST": List,
		"delete": Delete, "Delete": Delete,
	}
	for in, want := range cases {
		got, err := ParseClass(in)
		if err != nil {
			t.Fatalf("ParseClass(%q): unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseClass(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseClass_Unknown(t *testing.T) {
	if _, err := ParseClass("bogus"); err == nil {
		t.Fatal("expected an error for an unknown class")
	}
}

func TestString_RoundTrips(t *testing.T) {
	for _, c := range All() {
		s := c.String()
		got, err := ParseClass(s)
		if err != nil {
			t.Fatalf("ParseClass(%q) after String(): %v", s, err)
		}
		if got != c {
			t.Fatalf("round trip mismatch: %v -> %q -> %v", c, s, got)
		}
	}
}

func TestSupportsBurst(t *testing.T) {
	if !Read.SupportsBurst() || !Write.SupportsBurst() {
		t.Fatal("Read and Write must support burst")
	}
	for _, c := range []Class{Stat, List, Delete} {
		if c.SupportsBurst() {
			t.Fatalf("%v must not support burst", c)
		}
	}
}
