package station

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"swapmap/internal/batteryid"
	"swapmap/internal/cache"
)

const stationsCacheKey = "stations:all"

// Metadata is the static side of a station record as seen by the merge.
type Metadata struct {
	Name        string
	Address     string
	Coordinates [2]float64
	Hours       *OpeningHours
}

// MetadataSource provides static metadata for a station id.
type MetadataSource interface {
	Lookup(id string) (Metadata, bool)
}

// Service joins live supplier status with static metadata and fronts both
// with the TTL cache. Handlers and the background poller share one instance.
type Service struct {
	adapter *Adapter
	cache   *cache.Cache
	meta    MetadataSource
	ids     *batteryid.Map
	log     zerolog.Logger

	now func() time.Time
}

func NewService(adapter *Adapter, c *cache.Cache, meta MetadataSource, ids *batteryid.Map, log zerolog.Logger) *Service {
	return &Service{
		adapter: adapter,
		cache:   c,
		meta:    meta,
		ids:     ids,
		log:     log,
		now:     time.Now,
	}
}

// GetStations returns the unified station list, served from cache when
// fresh, otherwise fetched from the suppliers and re-cached.
func (s *Service) GetStations(ctx context.Context) ([]Station, error) {
	if cached, ok := s.cache.Get(stationsCacheKey); ok {
		if stations, ok := cached.([]Station); ok {
			return stations, nil
		}
	}
	return s.RefreshStations(ctx)
}

// RefreshStations fetches live status from every supplier, merges the
// static metadata and replaces the shared cache entry. The poller calls
// this on its 30s schedule.
func (s *Service) RefreshStations(ctx context.Context) ([]Station, error) {
	live, err := s.adapter.AllStations(ctx)
	if err != nil {
		return nil, err
	}

	stations := make([]Station, len(live))
	for i, st := range live {
		stations[i] = s.merge(st)
	}

	s.cache.Set(stationsCacheKey, stations)
	return stations, nil
}

// merge overlays static metadata onto a live supplier record. Stations
// without metadata keep spec defaults: generated name, empty address,
// [0,0] coordinates, always open.
func (s *Service) merge(live Station) Station {
	merged := DefaultStation(live.ID)
	merged.Supplier = live.Supplier
	merged.Available = live.Available
	merged.Occupied = live.Occupied
	merged.Error = live.Error

	meta, ok := s.meta.Lookup(live.ID)
	if !ok {
		return merged
	}

	if meta.Name != "" {
		merged.Name = meta.Name
	}
	merged.Address = meta.Address
	merged.Coordinates = meta.Coordinates
	merged.Hours = meta.Hours
	if meta.Hours != nil {
		merged.IsOpen = meta.Hours.IsOpenAt(s.now())
	}
	return merged
}

// GetBattery resolves the custom battery id through the static map, then
// consults the cache and finally the owning supplier. The mapping check
// happens before any network call; the response always carries the custom
// id, never the internal supplier id.
func (s *Service) GetBattery(ctx context.Context, customID string) (Battery, error) {
	ref, err := s.ids.Resolve(customID)
	if err != nil {
		return Battery{}, err
	}

	key := "battery:" + customID
	if cached, ok := s.cache.Get(key); ok {
		if b, ok := cached.(Battery); ok {
			return b, nil
		}
	}

	b, err := s.adapter.Battery(ctx, ref.Supplier, ref.RealID)
	if err != nil {
		return Battery{}, err
	}

	b.ID = customID
	s.cache.Set(key, b)
	return b, nil
}

// PendingOrders exposes the adapter's monitoring fetch to the poller.
func (s *Service) PendingOrders(ctx context.Context) ([]Order, error) {
	return s.adapter.PendingOrders(ctx)
}

// Health probes all suppliers and returns per-supplier status strings.
func (s *Service) Health(ctx context.Context) map[string]string {
	out := make(map[string]string)
	for name, err := range s.adapter.Health(ctx) {
		if err != nil {
			out[name] = fmt.Sprintf("unhealthy: %v", err)
			continue
		}
		out[name] = "ok"
	}
	return out
}

// CacheStats exposes cache hit/miss counters for the health endpoint.
func (s *Service) CacheStats() map[string]uint64 {
	return s.cache.Stats()
}
