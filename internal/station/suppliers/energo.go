package suppliers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"swapmap/internal/station"
)

// EnergoIDPrefix marks station ids owned by the energo supplier.
const EnergoIDPrefix = "EG-"

// Energo is the session-token supplier. Every data call carries a bearer
// token obtained via login; the scheduler keeps the token alive, and a 401
// on a data call triggers one re-login plus retry.
type Energo struct {
	name     string
	baseURL  string
	login    string
	password string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	log      zerolog.Logger

	mu       sync.RWMutex
	token    string
	issuedAt time.Time
}

func NewEnergo(client *http.Client, baseURL, login, password string, log zerolog.Logger) *Energo {
	return &Energo{
		name:     "energo",
		baseURL:  strings.TrimRight(baseURL, "/"),
		login:    login,
		password: password,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newBreaker("energo"),
		log:     log,
	}
}

func (e *Energo) Name() string { return e.name }

func (e *Energo) OwnsStation(stationID string) bool {
	return strings.HasPrefix(stationID, EnergoIDPrefix)
}

// Authenticate logs in and replaces the session token.
func (e *Energo) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"login":    e.login,
		"password": e.password,
	})
	if err != nil {
		return err
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, e.baseURL+"/auth/login", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, e.httpCfg, e.circuit, buildRequest)
	if err != nil {
		return fmt.Errorf("%w: energo login: %v", station.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: energo login status %d", station.ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("%w: decoding energo login: %v", station.ErrUpstream, err)
	}
	if payload.Token == "" {
		return fmt.Errorf("%w: energo login returned empty token", station.ErrUpstream)
	}

	e.mu.Lock()
	e.token = payload.Token
	e.issuedAt = time.Now().UTC()
	e.mu.Unlock()

	e.log.Debug().Str("supplier", e.name).Msg("energo session token refreshed")
	return nil
}

// KeepAlive re-authenticates to prevent the session token from expiring.
func (e *Energo) KeepAlive(ctx context.Context) error {
	return e.Authenticate(ctx)
}

// RefreshToken forces a new session token (admin endpoint).
func (e *Energo) RefreshToken(ctx context.Context) error {
	return e.Authenticate(ctx)
}

// TokenStatus reports the masked session token for the admin endpoint.
func (e *Energo) TokenStatus() TokenStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return TokenStatus{
		Supplier: e.name,
		Token:    maskToken(e.token),
		IssuedAt: e.issuedAt,
		Valid:    e.token != "",
	}
}

func (e *Energo) currentToken() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.token
}

// getAuthed performs a GET with the session token, re-authenticating once
// on 401.
func (e *Energo) getAuthed(ctx context.Context, path string) (*http.Response, error) {
	do := func() (*http.Response, error) {
		token := e.currentToken()
		if token == "" {
			if err := e.Authenticate(ctx); err != nil {
				return nil, err
			}
			token = e.currentToken()
		}
		return doRequestWithResilience(ctx, e.httpCfg, e.circuit, func() (*http.Request, error) {
			req, err := http.NewRequest(http.MethodGet, e.baseURL+path, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			return req, nil
		})
	}

	resp, err := do()
	if errors.Is(err, errUnauthorized) {
		e.log.Debug().Str("path", path).Msg("energo session expired, re-authenticating")
		if authErr := e.Authenticate(ctx); authErr != nil {
			return nil, authErr
		}
		resp, err = do()
	}
	return resp, err
}

func (e *Energo) Stations(ctx context.Context) ([]station.Station, error) {
	resp, err := e.getAuthed(ctx, "/v1/cabinets")
	if err != nil {
		return nil, fmt.Errorf("%w: fetching energo cabinets: %v", station.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: energo cabinets status %d", station.ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		Cabinets []struct {
			CabinetID string `json:"cabinetId"`
			FreeSlots int    `json:"freeSlots"`
			BusySlots int    `json:"busySlots"`
			ErrorCode string `json:"errorCode"`
		} `json:"cabinets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding energo cabinets: %v", station.ErrUpstream, err)
	}

	stations := make([]station.Station, len(payload.Cabinets))
	for i, c := range payload.Cabinets {
		stations[i] = station.Station{
			ID:        EnergoIDPrefix + c.CabinetID,
			Supplier:  e.name,
			Available: c.FreeSlots,
			Occupied:  c.BusySlots,
			Error:     c.ErrorCode,
		}
	}
	return stations, nil
}

func (e *Energo) Battery(ctx context.Context, realID string) (station.Battery, error) {
	resp, err := e.getAuthed(ctx, "/v1/batteries/"+realID)
	if err != nil {
		return station.Battery{}, fmt.Errorf("%w: fetching energo battery: %v", station.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return station.Battery{}, fmt.Errorf("%w: energo battery %s", station.ErrNotFound, realID)
	default:
		return station.Battery{}, fmt.Errorf("%w: energo battery status %d", station.ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		BatteryID     string  `json:"batteryId"`
		CabinetID     string  `json:"cabinetId"`
		RentMinutes   int     `json:"rentMinutes"`
		AmountPaid    float64 `json:"amountPaid"`
		ManufactureID string  `json:"manufactureId"`
		Status        string  `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return station.Battery{}, fmt.Errorf("%w: decoding energo battery: %v", station.ErrUpstream, err)
	}

	return station.Battery{
		ID:              payload.BatteryID,
		StationID:       EnergoIDPrefix + payload.CabinetID,
		Supplier:        e.name,
		DurationMinutes: payload.RentMinutes,
		AmountPaid:      payload.AmountPaid,
		ManufactureID:   payload.ManufactureID,
		Status:          payload.Status,
	}, nil
}

func (e *Energo) PendingOrders(ctx context.Context) ([]station.Order, error) {
	resp, err := e.getAuthed(ctx, "/v1/orders?status=pending")
	if err != nil {
		return nil, fmt.Errorf("%w: fetching energo orders: %v", station.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: energo orders status %d", station.ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		Orders []struct {
			OrderID   string    `json:"orderId"`
			CabinetID string    `json:"cabinetId"`
			BatteryID string    `json:"batteryId"`
			Status    string    `json:"status"`
			CreatedAt time.Time `json:"createdAt"`
		} `json:"orders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding energo orders: %v", station.ErrUpstream, err)
	}

	orders := make([]station.Order, len(payload.Orders))
	for i, o := range payload.Orders {
		orders[i] = station.Order{
			ID:        o.OrderID,
			StationID: EnergoIDPrefix + o.CabinetID,
			BatteryID: o.BatteryID,
			Status:    o.Status,
			CreatedAt: o.CreatedAt,
		}
	}
	return orders, nil
}

func (e *Energo) Health(ctx context.Context) error {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, e.baseURL+"/health", nil)
	}

	resp, err := doRequestWithResilience(ctx, e.httpCfg, e.circuit, buildRequest)
	if err != nil {
		return fmt.Errorf("%w: energo health: %v", station.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: energo health status %d", station.ErrUpstream, resp.StatusCode)
	}
	return nil
}

// TokenStatus is the masked session-token view for the admin endpoint.
type TokenStatus struct {
	Supplier string    `json:"supplier"`
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issuedAt"`
	Valid    bool      `json:"valid"`
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
