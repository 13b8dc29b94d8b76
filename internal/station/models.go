package station

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Station is the unified station view served to the map front-end.
// Coordinates are [lon, lat] to match the front-end GeoJSON convention.
type Station struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Address     string        `json:"address"`
	Coordinates [2]float64    `json:"coordinates"`
	Hours       *OpeningHours `json:"hours,omitempty"`
	IsOpen      bool          `json:"isOpen"`
	Available   int           `json:"available"`
	Occupied    int           `json:"occupied"`
	Error       string        `json:"error,omitempty"`

	// Supplier that reported the live status.
	Supplier string `json:"supplier,omitempty"`
}

// OpeningHours holds daily open/close times as "HH:MM". A close before open
// means the window spans midnight.
type OpeningHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// IsOpenAt reports whether t falls inside the opening window.
func (h *OpeningHours) IsOpenAt(t time.Time) bool {
	open, okOpen := parseClock(h.Open)
	close, okClose := parseClock(h.Close)
	if !okOpen || !okClose {
		return true
	}

	minute := t.Hour()*60 + t.Minute()
	if open == close {
		return true
	}
	if open < close {
		return minute >= open && minute < close
	}
	// Overnight window, e.g. 22:00-06:00.
	return minute >= open || minute < close
}

// parseClock converts "HH:MM" to minutes of day.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// Battery is a supplier battery record. ID holds the externally visible
// custom id once it leaves the service; suppliers fill it with the real id.
type Battery struct {
	ID              string  `json:"batteryId"`
	StationID       string  `json:"stationId"`
	Supplier        string  `json:"supplier"`
	DurationMinutes int     `json:"durationMinutes"`
	AmountPaid      float64 `json:"amountPaid"`
	ManufactureID   string  `json:"manufactureId"`
	Status          string  `json:"status"`
}

// Order is a pending battery-swap order, fetched for monitoring only.
type Order struct {
	ID        string    `json:"orderId"`
	StationID string    `json:"stationId"`
	BatteryID string    `json:"batteryId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// DefaultStation returns the placeholder used when a supplier reports a
// station we have no metadata for.
func DefaultStation(id string) Station {
	return Station{
		ID:          id,
		Name:        fmt.Sprintf("Station %s", id),
		Address:     "",
		Coordinates: [2]float64{0, 0},
		IsOpen:      true,
	}
}
