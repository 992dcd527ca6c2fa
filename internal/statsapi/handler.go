package statsapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/dashboard"
)

// Handler serves Endpoints from a statistics database.
type Handler struct {
	db        Querier
	logger    zerolog.Logger
	rangeDays int
	now       func() time.Time
}

func NewHandler(db Querier, rangeDays int, logger zerolog.Logger) *Handler {
	return &Handler{db: db, logger: logger, rangeDays: rangeDays, now: time.Now}
}

// RegisterRoutes mounts every endpoint on g, plus an index at /endpoints.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/endpoints", h.ListEndpoints)
	for i := range Endpoints {
		ep := Endpoints[i]
		g.GET(ep.Path, h.serve(ep))
	}
}

func (h *Handler) ListEndpoints(c echo.Context) error {
	return c.JSON(http.StatusOK, Endpoints)
}

func (h *Handler) serve(ep Endpoint) echo.HandlerFunc {
	return func(c echo.Context) error {
		var args []any
		if ep.RangeSensitive {
			r, err := dashboard.ParseRange(c.QueryParam("ini"), c.QueryParam("fim"), h.now(), h.rangeDays)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			args = []any{r.From.Format(dashboard.DateLayout), r.To.Format(dashboard.DateLayout)}
		}

		body, err := h.Evaluate(c.Request().Context(), ep, args...)
		if err != nil {
			h.logger.Error().Err(err).Str("endpoint", ep.Path).Msg("statistics query failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
		}
		return c.JSON(http.StatusOK, body)
	}
}

// Evaluate runs ep and its parts and returns the shaped result.
func (h *Handler) Evaluate(ctx context.Context, ep Endpoint, args ...any) (any, error) {
	t, err := query(ctx, h.db, ep.SQL, args...)
	if err != nil {
		return nil, err
	}
	body, err := shape(ep.Shape, t)
	if err != nil {
		return nil, err
	}
	if len(ep.Parts) == 0 {
		return body, nil
	}

	obj, _ := body.(map[string]any)
	if obj == nil {
		obj = map[string]any{}
	}
	for _, p := range ep.Parts {
		pt, err := query(ctx, h.db, p.SQL, args...)
		if err != nil {
			return nil, err
		}
		v, err := shape(p.Shape, pt)
		if err != nil {
			return nil, err
		}
		obj[p.Key] = v
	}
	return obj, nil
}
