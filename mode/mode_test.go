package mode

import "testing"

func TestParse_Aliases(t *testing.T) {
	cases := map[string]Mode{
		"blocking": Blocking, "BLOCKING": Blocking, "block": Blocking, "Block": Blocking,
		"non_blocking": NonBlocking, "non-blocking": NonBlocking, "nonblocking": NonBlocking,
		"NON_BLOCKING": NonBlocking,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParse_Unknown(t *testing.T) {
	if _, err := Parse("sideways"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}
