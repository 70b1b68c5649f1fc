// Package config implements the declarative bootstrap layer on top of the
// programmatic registry API: a YAML policy document, loaded once at
// startup and re-applied whenever the file changes on disk. Nothing here
// reads state back out of the registry to persist it — the registry
// remains the sole in-memory source of truth, and the file is only ever a
// write-once-per-change input, mirrored to Set calls, exactly like a
// command-line flag would be.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/throttlefs/mode"
	"github.com/kadirpekel/throttlefs/opclass"
	"github.com/kadirpekel/throttlefs/registry"
)

// Quota is one declared (backend, op) policy line in a Policy document.
type Quota struct {
	Backend string  `yaml:"backend"`
	Op      string  `yaml:"op"`
	Rate    float64 `yaml:"rate"`
	Burst   int64   `yaml:"burst"`
	Mode    string  `yaml:"mode"`
}

// Policy is the top-level YAML document shape.
type Policy struct {
	Quotas []Quota `yaml:"quotas"`
}

// Load reads and parses a Policy document from path, expanding
// ${VAR}/${VAR:-default}/$VAR references against the process environment
// first.
func Load(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded := ExpandEnv(string(raw))

	var p Policy
	if err := yaml.Unmarshal([]byte(expanded), &p); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks every quota line parses to valid op/mode values before
// any of them are applied, so a single typo doesn't leave the registry
// half-configured.
func (p *Policy) Validate() error {
	for i, q := range p.Quotas {
		if _, err := opclass.ParseClass(q.Op); err != nil {
			return fmt.Errorf("config: quota[%d]: %w", i, err)
		}
		if q.Mode != "" {
			if _, err := mode.Parse(q.Mode); err != nil {
				return fmt.Errorf("config: quota[%d]: %w", i, err)
			}
		}
		if q.Rate < 0 {
			return fmt.Errorf("config: quota[%d]: rate must be non-negative", i)
		}
		if q.Burst < 0 {
			return fmt.Errorf("config: quota[%d]: burst must be non-negative", i)
		}
	}
	return nil
}

// Apply pushes every quota line in p into reg. Rate is always applied
// (even when the document sets it to 0, an explicit "clear the rate but
// keep the burst" is meaningful); burst is only applied for lines that
// set a non-zero value, since burst is only legal on read/write ops and a
// STAT/LIST/DELETE line naming a burst would otherwise fail spuriously
// for a document that just wants a burstless rate limit on that class.
func (p *Policy) Apply(reg *registry.Registry) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, q := range p.Quotas {
		op, err := opclass.ParseClass(q.Op)
		if err != nil {
			return err
		}
		m := mode.Blocking
		if q.Mode != "" {
			m, err = mode.Parse(q.Mode)
			if err != nil {
				return err
			}
		}
		if err := reg.SetRate(q.Backend, op, q.Rate, m); err != nil {
			return fmt.Errorf("config: applying quota for %s/%s: %w", q.Backend, q.Op, err)
		}
		if q.Burst != 0 {
			if err := reg.SetBurst(q.Backend, op, q.Burst); err != nil {
				return fmt.Errorf("config: applying burst for %s/%s: %w", q.Backend, q.Op, err)
			}
		}
	}
	return nil
}
