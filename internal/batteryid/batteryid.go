// Package batteryid maps external-facing custom battery ids to real
// supplier-side ids. The map is a build-time artifact loaded once at
// startup; an id missing from it must fail before any network call.
package batteryid

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrUnmapped is returned for ids absent from the static map.
var ErrUnmapped = errors.New("battery id not configured")

// Ref is the supplier-side identity behind a custom id.
type Ref struct {
	RealID   string `json:"realId"`
	Supplier string `json:"supplier"`
}

// Map resolves custom battery ids. The externally visible id never equals
// the internal supplier id.
type Map struct {
	entries map[string]Ref
}

// LoadFile reads the static mapping file. Entries whose real id equals the
// custom id are rejected to keep the indirection intact.
func LoadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading battery id map: %w", err)
	}
	return Parse(data)
}

// Parse builds a Map from raw JSON of the form
// {"CB-001": {"realId": "...", "supplier": "energo"}}.
func Parse(data []byte) (*Map, error) {
	var entries map[string]Ref
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding battery id map: %w", err)
	}

	for custom, ref := range entries {
		if ref.RealID == "" || ref.Supplier == "" {
			return nil, fmt.Errorf("battery id map entry %q is incomplete", custom)
		}
		if ref.RealID == custom {
			return nil, fmt.Errorf("battery id map entry %q must not equal its real id", custom)
		}
	}

	return &Map{entries: entries}, nil
}

// Empty returns a map with no entries.
func Empty() *Map {
	return &Map{entries: map[string]Ref{}}
}

// Resolve returns the supplier reference for a custom id, or ErrUnmapped.
func (m *Map) Resolve(customID string) (Ref, error) {
	ref, ok := m.entries[customID]
	if !ok {
		return Ref{}, fmt.Errorf("%w: %s", ErrUnmapped, customID)
	}
	return ref, nil
}

// Len reports the number of configured ids.
func (m *Map) Len() int {
	return len(m.entries)
}
