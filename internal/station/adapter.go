package station

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Adapter routes requests to the supplier that owns a given station and
// fans out batch fetches across all registered suppliers. A station id is
// owned by exactly one supplier; data from different suppliers is never
// mixed for the same id.
type Adapter struct {
	suppliers []Supplier
	log       zerolog.Logger
}

func NewAdapter(log zerolog.Logger, suppliers ...Supplier) *Adapter {
	return &Adapter{
		suppliers: suppliers,
		log:       log,
	}
}

// OwnerOf returns the single supplier whose id pattern matches stationID.
func (a *Adapter) OwnerOf(stationID string) (Supplier, error) {
	for _, s := range a.suppliers {
		if s.OwnsStation(stationID) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoOwner, stationID)
}

// Supplier returns the registered supplier with the given name.
func (a *Adapter) Supplier(name string) (Supplier, error) {
	for _, s := range a.suppliers {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown supplier %s", ErrNoOwner, name)
}

// AllStations fetches live status from every supplier concurrently. A
// failing supplier is logged and skipped so the map still shows the other
// side; the call fails only when every supplier fails.
func (a *Adapter) AllStations(ctx context.Context) ([]Station, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		stations []Station
		failed   int
	)

	for _, s := range a.suppliers {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()

			batch, err := s.Stations(ctx)
			if err != nil {
				a.log.Warn().Err(err).Str("supplier", s.Name()).Msg("supplier station fetch failed")
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			mu.Lock()
			stations = append(stations, batch...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if failed == len(a.suppliers) {
		return nil, fmt.Errorf("%w: all suppliers failed", ErrUpstream)
	}

	sort.Slice(stations, func(i, j int) bool { return stations[i].ID < stations[j].ID })
	return stations, nil
}

// Battery asks only the named supplier for the battery. A miss is reported
// as ErrNotFound; the other supplier is never consulted as a substitute.
func (a *Adapter) Battery(ctx context.Context, supplierName, realID string) (Battery, error) {
	s, err := a.Supplier(supplierName)
	if err != nil {
		return Battery{}, err
	}
	return s.Battery(ctx, realID)
}

// PendingOrders collects open orders from all suppliers. Failures are
// logged per supplier; partial results are returned.
func (a *Adapter) PendingOrders(ctx context.Context) ([]Order, error) {
	var all []Order
	for _, s := range a.suppliers {
		orders, err := s.PendingOrders(ctx)
		if err != nil {
			a.log.Warn().Err(err).Str("supplier", s.Name()).Msg("pending order fetch failed")
			continue
		}
		all = append(all, orders...)
	}
	return all, nil
}

// Health probes every supplier and returns the per-supplier outcome.
func (a *Adapter) Health(ctx context.Context) map[string]error {
	out := make(map[string]error, len(a.suppliers))
	for _, s := range a.suppliers {
		out[s.Name()] = s.Health(ctx)
	}
	return out
}
