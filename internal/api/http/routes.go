package httpapi

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"swapmap/internal/analytics"
	"swapmap/internal/batteryid"
	"swapmap/internal/metadata"
	"swapmap/internal/station"
	"swapmap/internal/station/suppliers"
)

var validate = validator.New()

// TokenClient is the admin view onto the session-token supplier.
type TokenClient interface {
	TokenStatus() suppliers.TokenStatus
	RefreshToken(ctx context.Context) error
}

// Deps bundles everything the handlers need. Injected rather than ambient
// so tests can stub each collaborator.
type Deps struct {
	Service   *station.Service
	Metadata  *metadata.Registry
	Analytics *analytics.Tracker
	Token     TokenClient

	// Development switches error responses from generic to detailed.
	Development bool
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	api := app.Group("/api")

	api.Get("/stations", func(c *fiber.Ctx) error {
		stations, err := deps.Service.GetStations(c.Context())
		if err != nil {
			return deps.upstreamError(err, "failed to fetch stations")
		}
		return c.JSON(stations)
	})

	api.Get("/battery/:batteryId", func(c *fiber.Ctx) error {
		batteryID := c.Params("batteryId")
		if batteryID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "battery id is required")
		}

		b, err := deps.Service.GetBattery(c.Context(), batteryID)
		if err != nil {
			switch {
			case errors.Is(err, batteryid.ErrUnmapped):
				return fiber.NewError(fiber.StatusBadRequest, "unknown battery id")
			case errors.Is(err, station.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound, "battery not found")
			case errors.Is(err, station.ErrNoOwner):
				// The id map names a supplier we never registered. That is
				// our configuration broken, not the vendor's.
				return fiber.NewError(fiber.StatusInternalServerError, "battery id map is misconfigured")
			default:
				return deps.upstreamError(err, "failed to fetch battery")
			}
		}
		return c.JSON(b)
	})

	admin := api.Group("/admin")

	admin.Get("/stations", func(c *fiber.Ctx) error {
		return c.JSON(deps.Metadata.List())
	})

	admin.Post("/stations", func(c *fiber.Ctx) error {
		var req adminStationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		meta, err := deps.Metadata.Upsert(req.toMeta())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(meta)
	})

	api.Get("/energo-token", func(c *fiber.Ctx) error {
		return c.JSON(deps.Token.TokenStatus())
	})

	api.Post("/energo-token", func(c *fiber.Ctx) error {
		if err := deps.Token.RefreshToken(c.Context()); err != nil {
			return deps.upstreamError(err, "failed to refresh supplier token")
		}
		return c.JSON(deps.Token.TokenStatus())
	})

	api.Post("/analytics/scan", func(c *fiber.Ctx) error {
		var req scanRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		e := deps.Analytics.Record(analytics.Event{
			StationID: req.StationID,
			Source:    req.Source,
			UserAgent: c.Get(fiber.HeaderUserAgent),
		})
		return c.Status(fiber.StatusCreated).JSON(e)
	})

	api.Get("/analytics", func(c *fiber.Ctx) error {
		limit := 50
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
			}
			limit = n
		}
		return c.JSON(deps.Analytics.Recent(limit))
	})

	api.Get("/analytics/summary", func(c *fiber.Ctx) error {
		return c.JSON(deps.Analytics.Summarize())
	})
}

// upstreamError hides vendor detail in production; development gets the
// wrapped cause.
func (d Deps) upstreamError(err error, public string) *fiber.Error {
	msg := public
	if d.Development {
		msg = err.Error()
	}
	return fiber.NewError(fiber.StatusBadGateway, msg)
}

// adminStationRequest is the admin upsert body.
type adminStationRequest struct {
	ID          string                `json:"id" validate:"required"`
	Name        string                `json:"name"`
	Address     string                `json:"address"`
	Coordinates [2]float64            `json:"coordinates"`
	Hours       *station.OpeningHours `json:"hours"`
}

func (r adminStationRequest) toMeta() metadata.Meta {
	return metadata.Meta{
		ID:          r.ID,
		Name:        r.Name,
		Address:     r.Address,
		Coordinates: r.Coordinates,
		Hours:       r.Hours,
	}
}

// scanRequest is the QR-scan recording body.
type scanRequest struct {
	StationID string `json:"stationId" validate:"required"`
	Source    string `json:"source"`
}
