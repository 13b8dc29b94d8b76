package suppliers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapmap/internal/station"
)

func newBoltwattServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	requireKey := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}

	mux.HandleFunc("GET /api/ping", func(w http.ResponseWriter, r *http.Request) {
		if !requireKey(w, r) {
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/stations", func(w http.ResponseWriter, r *http.Request) {
		if !requireKey(w, r) {
			return
		}
		_, _ = w.Write([]byte(`{"stations": [{"id": "7", "free": 2, "occupied": 4, "fault": ""}]}`))
	})
	mux.HandleFunc("GET /api/batteries/SN-9", func(w http.ResponseWriter, r *http.Request) {
		if !requireKey(w, r) {
			return
		}
		_, _ = w.Write([]byte(`{"serialNo": "SN-9", "stationId": "7", "rentSeconds": 5400,
			"paidCents": 275, "mfgId": "MF-3", "state": "charging"}`))
	})
	mux.HandleFunc("GET /api/batteries/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/orders/open", func(w http.ResponseWriter, r *http.Request) {
		if !requireKey(w, r) {
			return
		}
		_, _ = w.Write([]byte(`[{"ref": "ORD-1", "stationId": "7", "serialNo": "SN-9",
			"state": "open", "openedAt": 1717200000}]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestBoltwatt(srv *httptest.Server) *Boltwatt {
	return NewBoltwatt(&http.Client{Timeout: 5 * time.Second}, srv.URL, "secret")
}

func TestBoltwattStationsNormalized(t *testing.T) {
	b := newTestBoltwatt(newBoltwattServer(t))

	stations, err := b.Stations(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 1)

	assert.Equal(t, "BW-7", stations[0].ID)
	assert.Equal(t, "boltwatt", stations[0].Supplier)
	assert.Equal(t, 2, stations[0].Available)
	assert.Equal(t, 4, stations[0].Occupied)
}

func TestBoltwattBatteryUnitConversion(t *testing.T) {
	b := newTestBoltwatt(newBoltwattServer(t))

	bat, err := b.Battery(context.Background(), "SN-9")
	require.NoError(t, err)
	assert.Equal(t, "SN-9", bat.ID)
	assert.Equal(t, "BW-7", bat.StationID)
	assert.Equal(t, 90, bat.DurationMinutes) // 5400s
	assert.Equal(t, 2.75, bat.AmountPaid)    // 275 cents
	assert.Equal(t, "charging", bat.Status)
}

func TestBoltwattBatteryNotFound(t *testing.T) {
	b := newTestBoltwatt(newBoltwattServer(t))

	_, err := b.Battery(context.Background(), "SN-UNKNOWN")
	assert.True(t, errors.Is(err, station.ErrNotFound))
}

func TestBoltwattPendingOrders(t *testing.T) {
	b := newTestBoltwatt(newBoltwattServer(t))

	orders, err := b.PendingOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-1", orders[0].ID)
	assert.Equal(t, "BW-7", orders[0].StationID)
	assert.Equal(t, time.Unix(1717200000, 0).UTC(), orders[0].CreatedAt)
}

func TestBoltwattOwnsStation(t *testing.T) {
	b := NewBoltwatt(http.DefaultClient, "http://example", "k")

	assert.True(t, b.OwnsStation("BW-7"))
	assert.False(t, b.OwnsStation("EG-7"))
}
