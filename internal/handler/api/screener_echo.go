package api

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"ScreenerView/internal/domain/models"
	drepo "ScreenerView/internal/domain/repository"
	"ScreenerView/internal/service/ratelimit"
	"ScreenerView/internal/usecase"
	xhttp "ScreenerView/pkg/http"
	xlogger "ScreenerView/pkg/logger"
)

// TickersResponse is the body of GET /api/tickers.
type TickersResponse struct {
	Selection string   `json:"selection"`
	Count     int      `json:"count"`
	Tickers   []string `json:"tickers"`
}

// RecordsResponse is the body of GET /api/tickers/:ticker/records.
type RecordsResponse struct {
	Ticker  string              `json:"ticker"`
	Count   int                 `json:"count"`
	Records []models.RecordView `json:"records"`
}

// FiltersResponse describes the selection after a filter command.
type FiltersResponse struct {
	Selection usecase.Selection `json:"selection"`
	Label     string            `json:"label"`
	Tickers   int               `json:"tickers"`
}

// ScreenerEchoHandler exposes the screener over HTTP.
type ScreenerEchoHandler struct {
	logger  *xlogger.Logger
	scr     *usecase.Screener
	src     drepo.Source
	limiter *ratelimit.Limiter
}

// NewScreenerEchoHandler creates the handler. src is reloaded by POST
// /api/reload; limiter may be nil to disable throttling of filter commands.
func NewScreenerEchoHandler(logger *xlogger.Logger, scr *usecase.Screener, src drepo.Source, limiter *ratelimit.Limiter) *ScreenerEchoHandler {
	return &ScreenerEchoHandler{logger: logger, scr: scr, src: src, limiter: limiter}
}

func (h *ScreenerEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/tickers", h.Tickers)
	g.GET("/tickers/:ticker/records", h.Records)
	g.GET("/flags", h.Flags)
	g.GET("/status", h.Status)
	g.GET("/filters", h.Filters)
	g.PUT("/filters/flag", h.SetFlag, h.throttle)
	g.PUT("/filters/boolean", h.SetBoolean, h.throttle)
	g.POST("/reload", h.Reload, h.throttle)
}

func (h *ScreenerEchoHandler) Tickers(c echo.Context) error {
	req := &models.TickersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tickers := h.scr.Search(req.Query)
	return xhttp.SuccessResponse(c, TickersResponse{
		Selection: h.scr.Selection().Label(),
		Count:     len(tickers),
		Tickers:   tickers,
	})
}

func (h *ScreenerEchoHandler) Records(c echo.Context) error {
	req := &models.RecordsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticker := strings.TrimSpace(req.Ticker)
	// one snapshot for both the lookup and the series
	part := h.scr.Snapshot().Partition
	if !part.Has(ticker) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("ticker %q not found", ticker))
	}

	recs := part.Records(ticker)
	if req.Limit > 0 && len(recs) > req.Limit {
		recs = recs[len(recs)-req.Limit:]
	}
	views := make([]models.RecordView, len(recs))
	for i, r := range recs {
		views[i] = models.NewRecordView(r)
	}
	return xhttp.SuccessResponse(c, RecordsResponse{Ticker: ticker, Count: len(views), Records: views})
}

func (h *ScreenerEchoHandler) Flags(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.scr.Flags())
}

func (h *ScreenerEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.scr.Status())
}

func (h *ScreenerEchoHandler) Filters(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.filtersResponse())
}

func (h *ScreenerEchoHandler) SetFlag(c echo.Context) error {
	req := &models.FlagFilterRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	mode, err := usecase.ParseFlagMode(req.Mode)
	if err == nil {
		err = h.scr.SetFlagFilter(mode, req.Value)
	}
	if err != nil {
		return h.filterError(c, "mode", err)
	}
	return xhttp.SuccessResponse(c, h.filtersResponse())
}

func (h *ScreenerEchoHandler) SetBoolean(c echo.Context) error {
	req := &models.BooleanFilterRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	state, err := usecase.ParseTriState(req.State)
	if err == nil {
		err = h.scr.SetBooleanFilter(req.Name, state)
	}
	if err != nil {
		return h.filterError(c, "state", err)
	}
	return xhttp.SuccessResponse(c, h.filtersResponse())
}

// Reload runs a full load of the configured source. The load is detached from
// the request so a dropped client does not abort it half way.
func (h *ScreenerEchoHandler) Reload(c echo.Context) error {
	if h.src == nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("no source configured"))
	}
	res, err := h.scr.Load(context.WithoutCancel(c.Request().Context()), h.src)
	if err != nil {
		h.logger.Error("reload failed", xlogger.String("source", h.src.Name()), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("Failed to load CSV.").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScreenerEchoHandler) filtersResponse() FiltersResponse {
	sel := h.scr.Selection()
	return FiltersResponse{Selection: sel, Label: sel.Label(), Tickers: len(h.scr.ListTickers())}
}

func (h *ScreenerEchoHandler) filterError(c echo.Context, field string, err error) error {
	if errors.Is(err, models.ErrInvalidFilter) {
		return xhttp.AppErrorResponse(c, xhttp.ValidationErrorf(field, "%s", err.Error()).WithError(err))
	}
	h.logger.Error("filter command failed", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func (h *ScreenerEchoHandler) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
		}
		return next(c)
	}
}
