package audit

import (
	"context"
	"testing"
)

func TestMemoryStore_RecentMostRecentFirst(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()

	for _, backend := range []string{"a", "b", "c"} {
		if err := s.Record(ctx, Record{Backend: backend, Outcome: RateLimited}); err != nil {
			t.Fatalf("Record(%s): %v", backend, err)
		}
	}

	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []string{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("Recent returned %d records, want %d", len(got), len(want))
	}
	for i, backend := range want {
		if got[i].Backend != backend {
			t.Errorf("Recent[%d].Backend = %q, want %q", i, got[i].Backend, backend)
		}
	}
}

func TestMemoryStore_WrapsAtCapacity(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	for _, backend := range []string{"a", "b", "c"} {
		if err := s.Record(ctx, Record{Backend: backend, Outcome: ExceedsBurst}); err != nil {
			t.Fatalf("Record(%s): %v", backend, err)
		}
	}

	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []string{"c", "b"}
	if len(got) != len(want) {
		t.Fatalf("Recent returned %d records, want %d", len(got), len(want))
	}
	for i, backend := range want {
		if got[i].Backend != backend {
			t.Errorf("Recent[%d].Backend = %q, want %q", i, got[i].Backend, backend)
		}
	}
}

func TestMemoryStore_RecentRespectsLimit(t *testing.T) {
	s := NewMemoryStore(5)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = s.Record(ctx, Record{Backend: "x", Outcome: RateLimited})
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(limit=2) returned %d records, want 2", len(got))
	}
}

func TestNewMemoryStore_NonPositiveCapacityClampsToOne(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	_ = s.Record(ctx, Record{Backend: "a", Outcome: RateLimited})
	_ = s.Record(ctx, Record{Backend: "b", Outcome: RateLimited})

	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Backend != "b" {
		t.Fatalf("Recent = %+v, want single record for backend b", got)
	}
}
