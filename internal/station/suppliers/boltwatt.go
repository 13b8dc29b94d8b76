package suppliers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"swapmap/internal/station"
)

// BoltwattIDPrefix marks station ids owned by the boltwatt supplier.
const BoltwattIDPrefix = "BW-"

// Boltwatt is the static-key supplier. No session handshake; every call
// carries the same API key header.
type Boltwatt struct {
	name    string
	baseURL string
	apiKey  string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewBoltwatt(client *http.Client, baseURL, apiKey string) *Boltwatt {
	return &Boltwatt{
		name:    "boltwatt",
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newBreaker("boltwatt"),
	}
}

func (b *Boltwatt) Name() string { return b.name }

func (b *Boltwatt) OwnsStation(stationID string) bool {
	return strings.HasPrefix(stationID, BoltwattIDPrefix)
}

func (b *Boltwatt) get(ctx context.Context, path string) (*http.Response, error) {
	return doRequestWithResilience(ctx, b.httpCfg, b.circuit, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, b.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Api-Key", b.apiKey)
		return req, nil
	})
}

func (b *Boltwatt) Stations(ctx context.Context) ([]station.Station, error) {
	resp, err := b.get(ctx, "/api/stations")
	if err != nil {
		return nil, fmt.Errorf("%w: fetching boltwatt stations: %v", station.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: boltwatt stations status %d", station.ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		Stations []struct {
			ID       string `json:"id"`
			Free     int    `json:"free"`
			Occupied int    `json:"occupied"`
			Fault    string `json:"fault"`
		} `json:"stations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding boltwatt stations: %v", station.ErrUpstream, err)
	}

	stations := make([]station.Station, len(payload.Stations))
	for i, s := range payload.Stations {
		stations[i] = station.Station{
			ID:        BoltwattIDPrefix + s.ID,
			Supplier:  b.name,
			Available: s.Free,
			Occupied:  s.Occupied,
			Error:     s.Fault,
		}
	}
	return stations, nil
}

func (b *Boltwatt) Battery(ctx context.Context, realID string) (station.Battery, error) {
	resp, err := b.get(ctx, "/api/batteries/"+realID)
	if err != nil {
		return station.Battery{}, fmt.Errorf("%w: fetching boltwatt battery: %v", station.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return station.Battery{}, fmt.Errorf("%w: boltwatt battery %s", station.ErrNotFound, realID)
	default:
		return station.Battery{}, fmt.Errorf("%w: boltwatt battery status %d", station.ErrUpstream, resp.StatusCode)
	}

	// Boltwatt reports rent duration in seconds and money in cents.
	var payload struct {
		SerialNo    string `json:"serialNo"`
		StationID   string `json:"stationId"`
		RentSeconds int    `json:"rentSeconds"`
		PaidCents   int64  `json:"paidCents"`
		MfgID       string `json:"mfgId"`
		State       string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return station.Battery{}, fmt.Errorf("%w: decoding boltwatt battery: %v", station.ErrUpstream, err)
	}

	return station.Battery{
		ID:              payload.SerialNo,
		StationID:       BoltwattIDPrefix + payload.StationID,
		Supplier:        b.name,
		DurationMinutes: payload.RentSeconds / 60,
		AmountPaid:      float64(payload.PaidCents) / 100,
		ManufactureID:   payload.MfgID,
		Status:          payload.State,
	}, nil
}

func (b *Boltwatt) PendingOrders(ctx context.Context) ([]station.Order, error) {
	resp, err := b.get(ctx, "/api/orders/open")
	if err != nil {
		return nil, fmt.Errorf("%w: fetching boltwatt orders: %v", station.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: boltwatt orders status %d", station.ErrUpstream, resp.StatusCode)
	}

	var payload []struct {
		Ref       string `json:"ref"`
		StationID string `json:"stationId"`
		SerialNo  string `json:"serialNo"`
		State     string `json:"state"`
		OpenedAt  int64  `json:"openedAt"` // unix seconds
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding boltwatt orders: %v", station.ErrUpstream, err)
	}

	orders := make([]station.Order, len(payload))
	for i, o := range payload {
		orders[i] = station.Order{
			ID:        o.Ref,
			StationID: BoltwattIDPrefix + o.StationID,
			BatteryID: o.SerialNo,
			Status:    o.State,
			CreatedAt: time.Unix(o.OpenedAt, 0).UTC(),
		}
	}
	return orders, nil
}

func (b *Boltwatt) Health(ctx context.Context) error {
	resp, err := b.get(ctx, "/api/ping")
	if err != nil {
		return fmt.Errorf("%w: boltwatt health: %v", station.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: boltwatt health status %d", station.ErrUpstream, resp.StatusCode)
	}
	return nil
}
