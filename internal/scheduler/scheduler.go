// Package scheduler runs the background polling loops: station refresh,
// pending-order monitoring, supplier token keep-alive, plus a periodic
// analytics flush. Loops are independent; a failed tick is logged and the
// schedule continues. Stop only prevents future ticks, in-flight fetches
// are allowed to complete.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"swapmap/internal/analytics"
	"swapmap/internal/station"
)

// StationService is the slice of the core service the loops drive.
type StationService interface {
	RefreshStations(ctx context.Context) ([]station.Station, error)
	PendingOrders(ctx context.Context) ([]station.Order, error)
}

// TokenSupplier is the session-token supplier kept alive by the scheduler.
type TokenSupplier interface {
	Health(ctx context.Context) error
	KeepAlive(ctx context.Context) error
}

type Intervals struct {
	StationPoll time.Duration
	OrderPoll   time.Duration
	KeepAlive   time.Duration
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	service   StationService
	token     TokenSupplier
	tracker   *analytics.Tracker
	intervals Intervals
	log       zerolog.Logger

	tickTimeout time.Duration

	// healthRetryDelay is the single fixed retry window after a failed
	// startup health check. No exponential backoff, no cap.
	healthRetryDelay time.Duration
}

func New(service StationService, token TokenSupplier, tracker *analytics.Tracker, intervals Intervals, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		scheduler:        gocron.NewScheduler(time.UTC),
		service:          service,
		token:            token,
		tracker:          tracker,
		intervals:        intervals,
		log:              log,
		tickTimeout:      25 * time.Second,
		healthRetryDelay: 30 * time.Second,
	}
}

// Start performs the startup health check and launches all loops. An
// unhealthy check is retried exactly once after 30 seconds; the loops start
// after the retry regardless of its outcome. The gate runs in its own
// goroutine so startup never blocks the HTTP server.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.registerJobs(); err != nil {
		return err
	}

	go func() {
		if err := s.healthGate(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Msg("supplier still unhealthy after retry; starting loops anyway")
		}
		s.scheduler.StartAsync()
		s.log.Info().
			Dur("station_poll", s.intervals.StationPoll).
			Dur("order_poll", s.intervals.OrderPoll).
			Dur("keepalive", s.intervals.KeepAlive).
			Msg("background loops started")
	}()

	return nil
}

func (s *Scheduler) healthGate(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	err := s.token.Health(hctx)
	cancel()
	if err == nil {
		return nil
	}

	s.log.Warn().Err(err).Dur("retry_in", s.healthRetryDelay).Msg("startup health check failed")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.healthRetryDelay):
	}

	hctx, cancel = context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()
	return s.token.Health(hctx)
}

func (s *Scheduler) registerJobs() error {
	if _, err := s.scheduler.Every(s.intervals.StationPoll).Do(s.stationTick); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(s.intervals.OrderPoll).Do(s.orderTick); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(s.intervals.KeepAlive).Do(s.keepAliveTick); err != nil {
		return err
	}
	// Analytics flushing piggybacks on the slowest cadence.
	if _, err := s.scheduler.Every(s.intervals.OrderPoll).Do(s.flushTick); err != nil {
		return err
	}
	return nil
}

// stationTick refreshes the shared station cache entry. Errors never stop
// the schedule.
func (s *Scheduler) stationTick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
	defer cancel()

	stations, err := s.service.RefreshStations(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("station poll failed")
		return
	}
	s.log.Debug().Int("stations", len(stations)).Msg("station cache refreshed")
}

// orderTick fetches pending orders for monitoring only; failures are logged.
func (s *Scheduler) orderTick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
	defer cancel()

	orders, err := s.service.PendingOrders(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("pending order poll failed")
		return
	}
	if len(orders) > 0 {
		s.log.Info().Int("pending", len(orders)).Msg("open battery-swap orders")
	}
}

// keepAliveTick re-authenticates against the token-requiring supplier.
func (s *Scheduler) keepAliveTick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
	defer cancel()

	if err := s.token.KeepAlive(ctx); err != nil {
		s.log.Error().Err(err).Msg("token keep-alive failed")
	}
}

func (s *Scheduler) flushTick() {
	if err := s.tracker.Flush(); err != nil {
		s.log.Error().Err(err).Msg("periodic analytics flush failed")
	}
}

// Stop stops scheduling future ticks (in-flight ticks complete) and flushes
// buffered analytics synchronously.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	if err := s.tracker.Flush(); err != nil {
		s.log.Error().Err(err).Msg("final analytics flush failed")
	}
}
