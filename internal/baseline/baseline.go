// Package baseline stores accepted findings so that known cycles do not fail
// a check while new ones do.
package baseline

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"modgraph/internal/cycles"
	"modgraph/internal/paths"
)

// CurrentVersion is the baseline file format version
const CurrentVersion = 1

// Baseline is the set of accepted findings stored in .modgraph/baseline.toml
type Baseline struct {
	Version int `toml:"version"`

	// ID changes every time the baseline is rewritten from a check
	ID string `toml:"id"`

	CreatedAt time.Time `toml:"created_at"`
	UpdatedAt time.Time `toml:"updated_at"`

	Entries []Entry `toml:"finding"`
}

// Entry is one accepted finding
type Entry struct {
	Fingerprint string    `toml:"fingerprint"`
	Kind        string    `toml:"kind"`
	Module      string    `toml:"module,omitempty"`
	Members     []string  `toml:"members"`
	Reason      string    `toml:"reason,omitempty"`
	AcceptedAt  time.Time `toml:"accepted_at"`
}

// New creates an empty baseline
func New() *Baseline {
	now := time.Now().UTC()
	return &Baseline{
		Version:   CurrentVersion,
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FromFindings creates a baseline accepting every given violation
func FromFindings(findings []cycles.Finding, reason string) *Baseline {
	b := New()
	for _, f := range findings {
		b.Add(f, reason)
	}
	return b
}

// Add accepts a finding. Adding an accepted finding again is a no-op.
func (b *Baseline) Add(f cycles.Finding, reason string) bool {
	fp := f.Fingerprint()
	if b.Contains(fp) {
		return false
	}
	b.Entries = append(b.Entries, Entry{
		Fingerprint: fp,
		Kind:        string(f.Kind),
		Module:      f.Module,
		Members:     append([]string(nil), f.Members...),
		Reason:      reason,
		AcceptedAt:  time.Now().UTC(),
	})
	sort.SliceStable(b.Entries, func(i, j int) bool {
		a, c := b.Entries[i], b.Entries[j]
		if a.Kind != c.Kind {
			return a.Kind < c.Kind
		}
		if a.Module != c.Module {
			return a.Module < c.Module
		}
		return a.Fingerprint < c.Fingerprint
	})
	b.UpdatedAt = time.Now().UTC()
	return true
}

// Contains reports whether a fingerprint is accepted
func (b *Baseline) Contains(fingerprint string) bool {
	if b == nil {
		return false
	}
	for _, e := range b.Entries {
		if e.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}

// Mark sets Baselined on every accepted finding and returns how many were
// marked
func (b *Baseline) Mark(findings []cycles.Finding) int {
	n := 0
	for i := range findings {
		if b.Contains(findings[i].Fingerprint()) {
			findings[i].Baselined = true
			n++
		}
	}
	return n
}

// Stale returns entries that no longer match any of the findings
func (b *Baseline) Stale(findings []cycles.Finding) []Entry {
	if b == nil {
		return nil
	}
	current := make(map[string]bool, len(findings))
	for _, f := range findings {
		current[f.Fingerprint()] = true
	}
	var out []Entry
	for _, e := range b.Entries {
		if !current[e.Fingerprint] {
			out = append(out, e)
		}
	}
	return out
}

// Prune removes entries that no longer match any of the findings and returns
// how many were removed
func (b *Baseline) Prune(findings []cycles.Finding) int {
	stale := make(map[string]bool)
	for _, e := range b.Stale(findings) {
		stale[e.Fingerprint] = true
	}
	kept := b.Entries[:0]
	for _, e := range b.Entries {
		if !stale[e.Fingerprint] {
			kept = append(kept, e)
		}
	}
	removed := len(b.Entries) - len(kept)
	b.Entries = kept
	return removed
}

// Load reads the baseline of a repository. A missing file yields an empty
// baseline.
func Load(repoRoot string) (*Baseline, error) {
	return LoadFile(paths.GetBaselinePath(repoRoot))
}

// LoadFile reads a baseline file. A missing file yields an empty baseline.
func LoadFile(path string) (*Baseline, error) {
	var b Baseline
	if _, err := toml.DecodeFile(path, &b); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to parse baseline %s: %w", path, err)
	}
	if b.Version > CurrentVersion {
		return nil, fmt.Errorf("baseline %s has unsupported version %d", path, b.Version)
	}
	return &b, nil
}

// Save writes the baseline to .modgraph/baseline.toml
func (b *Baseline) Save(repoRoot string) error {
	if _, err := paths.EnsureDataDir(repoRoot); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return b.SaveFile(paths.GetBaselinePath(repoRoot))
}

// SaveFile writes the baseline to path
func (b *Baseline) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create baseline file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(b); err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}
	return nil
}
