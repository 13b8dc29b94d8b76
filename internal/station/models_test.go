package station

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestOpeningHoursDaytime(t *testing.T) {
	h := &OpeningHours{Open: "08:00", Close: "20:00"}

	assert.False(t, h.IsOpenAt(at(7, 59)))
	assert.True(t, h.IsOpenAt(at(8, 0)))
	assert.True(t, h.IsOpenAt(at(19, 59)))
	assert.False(t, h.IsOpenAt(at(20, 0)))
}

func TestOpeningHoursOvernight(t *testing.T) {
	h := &OpeningHours{Open: "22:00", Close: "06:00"}

	assert.True(t, h.IsOpenAt(at(23, 30)))
	assert.True(t, h.IsOpenAt(at(2, 0)))
	assert.False(t, h.IsOpenAt(at(12, 0)))
}

func TestOpeningHoursMalformedMeansOpen(t *testing.T) {
	h := &OpeningHours{Open: "whenever", Close: "20:00"}
	assert.True(t, h.IsOpenAt(at(3, 0)))
}

func TestDefaultStation(t *testing.T) {
	s := DefaultStation("EG-17")

	assert.Equal(t, "Station EG-17", s.Name)
	assert.Equal(t, "", s.Address)
	assert.Equal(t, [2]float64{0, 0}, s.Coordinates)
	assert.True(t, s.IsOpen)
}
