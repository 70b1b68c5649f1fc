package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kadirpekel/throttlefs/opclass"
	"github.com/kadirpekel/throttlefs/registry"
)

func TestLoad_ExpandsEnvBeforeParsing(t *testing.T) {
	t.Setenv("THROTTLEFS_TEST_RATE", "42")

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	doc := "quotas:\n  - backend: s3\n    op: read\n    rate: ${THROTTLEFS_TEST_RATE}\n    burst: 10\n    mode: blocking\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Quotas) != 1 || p.Quotas[0].Rate != 42 {
		t.Fatalf("Quotas = %+v, want rate=42", p.Quotas)
	}
}

func TestValidate_RejectsUnknownOp(t *testing.T) {
	p := &Policy{Quotas: []Quota{{Backend: "s3", Op: "bogus", Rate: 1}}}
	if err := p.Validate(); err == nil {
		t.Fatal("expected a validation error for an unknown op")
	}
}

func TestApply_PushesIntoRegistry(t *testing.T) {
	p := &Policy{Quotas: []Quota{
		{Backend: "s3", Op: "read", Rate: 10, Burst: 20, Mode: "blocking"},
		{Backend: "s3", Op: "write", Rate: 5, Mode: "non_blocking"},
	}}
	reg := registry.New()
	if err := p.Apply(reg); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	view, ok := reg.Get("s3", opclass.Read)
	if !ok || view.Rate != 10 || view.Burst != 20 {
		t.Fatalf("s3/read view = %+v, ok=%v", view, ok)
	}
	if _, ok := reg.Get("s3", opclass.Write); !ok {
		t.Fatal("expected s3/write to be configured")
	}
}
