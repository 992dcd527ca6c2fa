package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/platform/backend"
	"github.com/ehr/dashboard/internal/platform/export"
)

// rangeQuery is the date selection accepted by GET /dashboard.
type rangeQuery struct {
	Ini string `query:"ini" validate:"omitempty,datetime=2006-01-02"`
	Fim string `query:"fim" validate:"omitempty,datetime=2006-01-02"`
}

// downloadQuery names a backend-generated file by its API path.
type downloadQuery struct {
	Path string `query:"path" validate:"required,startswith=/"`
}

type Handler struct {
	dash      *Dashboard
	files     backend.Downloader
	rangeDays int
	now       func() time.Time
	logger    zerolog.Logger
}

// NewHandler exposes d over HTTP. files may be nil, in which case downloads
// answer 501.
func NewHandler(d *Dashboard, files backend.Downloader, rangeDays int, logger zerolog.Logger) *Handler {
	return &Handler{
		dash:      d,
		files:     files,
		rangeDays: rangeDays,
		now:       time.Now,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Refresh)
	g.GET("/current", h.Current)
	g.GET("/specs", h.Specs)
	g.GET("/exports", h.ListExports)
	g.GET("/export/:section", h.Export)
	g.GET("/download", h.Download)
}

// Refresh runs a fetch cycle for ?ini=&fim= and answers with that cycle's
// own view. The cycle outlives the request so a disconnecting client cannot
// turn its sections into fallbacks; only the most recent cycle is committed
// as the shared view.
func (h *Handler) Refresh(c echo.Context) error {
	var q rangeQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "ini and fim must be dates in YYYY-MM-DD format")
	}
	r, err := ParseRange(q.Ini, q.Fim, h.now(), h.rangeDays)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	vm, committed := h.dash.Refresh(context.WithoutCancel(ctx), r)
	if ctx.Err() != nil {
		h.logger.Debug().
			Str("range", r.String()).
			Bool("committed", committed).
			Msg("client left before the fetch cycle settled")
		return nil
	}
	return c.JSON(http.StatusOK, vm)
}

func (h *Handler) Current(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dash.Current())
}

func (h *Handler) Specs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dash.Specs())
}

func (h *Handler) ListExports(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"exports": ExportNames()})
}

// Export writes the named row set of the committed view as a spreadsheet.
func (h *Handler) Export(c echo.Context) error {
	ex, ok := LookupExport(c.Param("section"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown export %q", c.Param("section")))
	}

	rows := export.MapRows(ex.Rows(h.dash.Current()), ex.Rename)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, export.ContentType)
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.FileName(ex.Sheet)))
	res.WriteHeader(http.StatusOK)
	if err := export.Write(res, ex.Sheet, rows, export.Options{Columns: ex.Columns}); err != nil {
		h.logger.Error().Err(err).Str("export", ex.Name).Msg("writing spreadsheet failed")
		return err
	}
	return nil
}

// Download streams a file the backend generated itself.
func (h *Handler) Download(c echo.Context) error {
	if h.files == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "downloads are not configured")
	}

	var q downloadQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(&q); err != nil || strings.Contains(q.Path, "..") || strings.HasPrefix(q.Path, "//") {
		return echo.NewHTTPError(http.StatusBadRequest, "path must be an absolute API path")
	}

	file, err := h.files.Download(c.Request().Context(), q.Path)
	if err != nil {
		if errors.Is(err, backend.ErrDownloadUnsupported) {
			return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
		}
		h.logger.Warn().Err(err).Str("path", q.Path).Msg("download failed")
		return echo.NewHTTPError(http.StatusBadGateway, "backend download failed")
	}
	defer file.Body.Close()

	ct := file.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	if file.Disposition != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, file.Disposition)
	}
	return c.Stream(http.StatusOK, ct, file.Body)
}
