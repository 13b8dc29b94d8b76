// Package metadata holds static station metadata: display name, address,
// coordinates and opening hours. Seeded from a JSON file at startup,
// extendable at runtime through the admin endpoints.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/rs/zerolog"

	"swapmap/internal/station"
)

// Meta is the static side of a station record.
type Meta struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Address     string                `json:"address"`
	Coordinates [2]float64            `json:"coordinates"` // [lon, lat]
	Hours       *station.OpeningHours `json:"hours,omitempty"`
}

// Registry is a concurrency-safe metadata store.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Meta

	geocodeKey string
	log        zerolog.Logger
}

func NewRegistry(log zerolog.Logger, geocodeKey string) *Registry {
	return &Registry{
		entries:    make(map[string]Meta),
		geocodeKey: geocodeKey,
		log:        log,
	}
}

// LoadFile seeds the registry from a JSON array of Meta records. A missing
// file is not an error; the registry just starts empty.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.log.Warn().Str("path", path).Msg("station metadata file missing; starting empty")
			return nil
		}
		return fmt.Errorf("reading station metadata: %w", err)
	}

	var metas []Meta
	if err := json.Unmarshal(data, &metas); err != nil {
		return fmt.Errorf("decoding station metadata: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range metas {
		if m.ID == "" {
			return fmt.Errorf("station metadata entry without id")
		}
		r.entries[m.ID] = m
	}
	return nil
}

// Get returns the metadata for a station id.
func (r *Registry) Get(id string) (Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.entries[id]
	return m, ok
}

// List returns all metadata sorted by station id.
func (r *Registry) List() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Meta, 0, len(r.entries))
	for _, m := range r.entries {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup implements station.MetadataSource for the merge logic.
func (r *Registry) Lookup(id string) (station.Metadata, bool) {
	m, ok := r.Get(id)
	if !ok {
		return station.Metadata{}, false
	}
	return station.Metadata{
		Name:        m.Name,
		Address:     m.Address,
		Coordinates: m.Coordinates,
		Hours:       m.Hours,
	}, true
}

// Upsert inserts or replaces a station's metadata. When the record carries
// an address but zero coordinates and a geocoder key is configured, the
// address is geocoded; geocoding failures keep the record with [0,0].
func (r *Registry) Upsert(m Meta) (Meta, error) {
	if m.ID == "" {
		return Meta{}, fmt.Errorf("station id is required")
	}

	if m.Address != "" && m.Coordinates == [2]float64{} && r.geocodeKey != "" {
		if loc, err := r.geocode(m.Address); err != nil {
			r.log.Warn().Err(err).Str("station_id", m.ID).Msg("geocoding failed; keeping zero coordinates")
		} else {
			m.Coordinates = loc
		}
	}

	r.mu.Lock()
	r.entries[m.ID] = m
	r.mu.Unlock()
	return m, nil
}

func (r *Registry) geocode(address string) ([2]float64, error) {
	geocoder.ApiKey = r.geocodeKey

	loc, err := geocoder.Geocoding(geocoder.Address{Street: address})
	if err != nil {
		return [2]float64{}, fmt.Errorf("geocoding %q: %w", address, err)
	}
	return [2]float64{loc.Longitude, loc.Latitude}, nil
}
