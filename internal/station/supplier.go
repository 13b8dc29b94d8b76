package station

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the owning supplier has no such station or battery.
	ErrNotFound = errors.New("not found")

	// ErrUpstream wraps supplier transport or server failures.
	ErrUpstream = errors.New("upstream supplier failure")

	// ErrNoOwner means no registered supplier recognizes the station id.
	ErrNoOwner = errors.New("no supplier owns station")
)

// Supplier abstracts one vendor backend (energo, boltwatt).
type Supplier interface {
	Name() string

	// OwnsStation reports whether this supplier's id pattern matches.
	OwnsStation(stationID string) bool

	// Stations returns the live status of every station the supplier owns,
	// already normalized to the unified model.
	Stations(ctx context.Context) ([]Station, error)

	// Battery looks up a battery by its real supplier-side id. Returns
	// ErrNotFound when the supplier has no such battery.
	Battery(ctx context.Context, realID string) (Battery, error)

	// PendingOrders returns open swap orders for monitoring.
	PendingOrders(ctx context.Context) ([]Order, error)

	// Health probes the supplier backend.
	Health(ctx context.Context) error
}
