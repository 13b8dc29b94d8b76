package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapmap/internal/station"
)

func TestLoadFileSeedsRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "EG-1", "name": "Main Square", "address": "1 Main St", "coordinates": [30.52, 50.45],
		 "hours": {"open": "08:00", "close": "20:00"}}
	]`), 0o644))

	r := NewRegistry(zerolog.Nop(), "")
	require.NoError(t, r.LoadFile(path))

	m, ok := r.Get("EG-1")
	require.True(t, ok)
	assert.Equal(t, "Main Square", m.Name)
	require.NotNil(t, m.Hours)
	assert.Equal(t, "08:00", m.Hours.Open)
}

func TestLoadFileMissingIsNotFatal(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), "")
	assert.NoError(t, r.LoadFile(filepath.Join(t.TempDir(), "absent.json")))
	assert.Empty(t, r.List())
}

func TestUpsertAndLookup(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), "")

	_, err := r.Upsert(Meta{
		ID:          "BW-2",
		Name:        "Harbor",
		Coordinates: [2]float64{30.1, 50.2},
		Hours:       &station.OpeningHours{Open: "06:00", Close: "23:00"},
	})
	require.NoError(t, err)

	meta, ok := r.Lookup("BW-2")
	require.True(t, ok)
	assert.Equal(t, "Harbor", meta.Name)
	assert.Equal(t, [2]float64{30.1, 50.2}, meta.Coordinates)

	_, ok = r.Lookup("BW-404")
	assert.False(t, ok)
}

func TestUpsertRequiresID(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), "")
	_, err := r.Upsert(Meta{Name: "nameless"})
	assert.Error(t, err)
}

func TestUpsertWithoutGeocoderKeepsZeroCoordinates(t *testing.T) {
	// No geocoder key configured: the address is stored as-is.
	r := NewRegistry(zerolog.Nop(), "")

	m, err := r.Upsert(Meta{ID: "EG-9", Address: "5 Dock Rd"})
	require.NoError(t, err)
	assert.Equal(t, [2]float64{0, 0}, m.Coordinates)
}

func TestListSortedByID(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), "")
	_, _ = r.Upsert(Meta{ID: "EG-2"})
	_, _ = r.Upsert(Meta{ID: "BW-1"})

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "BW-1", list[0].ID)
	assert.Equal(t, "EG-2", list[1].ID)
}
