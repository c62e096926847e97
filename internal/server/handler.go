package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metals-dashboard/internal/chat"
	"metals-dashboard/internal/config"
	"metals-dashboard/internal/export"
	"metals-dashboard/internal/logging"
	"metals-dashboard/internal/prediction"
	"metals-dashboard/internal/pricing"
	"metals-dashboard/internal/service"
	"metals-dashboard/internal/session"
)

const sessionKey = "session_id"

// Handler serves the dashboard page and its JSON API.
type Handler struct {
	svc        *service.Service
	sessions   session.Store
	cfg        *config.Config
	cookieName string
	sessionTTL time.Duration
	logger     zerolog.Logger
}

// NewHandler wires the service and session store into HTTP handlers.
func NewHandler(cfg *config.Config, svc *service.Service, sessions session.Store, logger zerolog.Logger) *Handler {
	name := cfg.Server.SessionCookie
	if name == "" {
		name = "metalsdash_session"
	}
	return &Handler{
		svc:        svc,
		sessions:   sessions,
		cfg:        cfg,
		cookieName: name,
		sessionTTL: cfg.Session.TTL,
		logger:     logging.Component(logger, "http"),
	}
}

// RegisterRoutes mounts every route on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	page := e.Group("", h.sessionCookie)
	page.GET("/", h.Index)
	page.POST("/chat", h.ChatForm)
	page.POST("/navigate", h.NavigateForm)

	api := e.Group("/api", h.sessionCookie)
	api.GET("/dashboard", h.Dashboard)
	api.GET("/dashboard/trend.png", h.DashboardTrendPNG)
	api.GET("/cities", h.Cities)
	api.GET("/city", h.City)
	api.POST("/forecast", h.Forecast)
	api.GET("/chat", h.Transcript)
	api.POST("/chat", h.Chat)
	api.GET("/chat/suggestions", h.Suggestions)
	api.POST("/navigate", h.Navigate)
	api.GET("/calculator", h.Calculator)
	api.GET("/trend", h.Trend)
	api.GET("/trend.csv", h.TrendCSV)
	api.GET("/trend.png", h.TrendPNG)
}

// sessionCookie issues a session id to callers that lack a valid one.
func (h *Handler) sessionCookie(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := ""
		if ck, err := c.Cookie(h.cookieName); err == nil && session.ValidID(ck.Value) {
			id = ck.Value
		}
		if id == "" {
			id = session.NewID()
			ck := &http.Cookie{
				Name:     h.cookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			}
			if h.sessionTTL > 0 {
				ck.MaxAge = int(h.sessionTTL.Seconds())
			}
			c.SetCookie(ck)
		}
		c.Set(sessionKey, id)
		return next(c)
	}
}

func (h *Handler) loadSession(c echo.Context) (*session.Session, error) {
	id, _ := c.Get(sessionKey).(string)
	sess, err := h.sessions.Load(c.Request().Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("session", id).Msg("load session")
		return nil, err
	}
	return sess, nil
}

func (h *Handler) saveSession(c echo.Context, sess *session.Session) error {
	if err := h.sessions.Save(c.Request().Context(), sess); err != nil {
		h.logger.Error().Err(err).Str("session", sess.ID).Msg("save session")
		return err
	}
	return nil
}

// parseAmount falls back to the configured default budget when s is empty.
func (h *Handler) parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return h.svc.DefaultBudget(), nil
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &AppError{Code: CodeBadRequest, Message: "amount must be a number", Status: http.StatusBadRequest, Err: err}
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", pricing.ErrInvalidBudget, amount)
	}
	return amount, nil
}

func (h *Handler) converse(c echo.Context, question string) (chat.Result, *session.Session, error) {
	sess, err := h.loadSession(c)
	if err != nil {
		return chat.Result{}, nil, err
	}
	res := h.svc.Converse(c.Request().Context(), sess, question)
	if res.Failed() {
		h.logger.Warn().Err(res.Err).Str("session", sess.ID).Msg("chat turn failed")
	}
	return res, sess, h.saveSession(c, sess)
}

func (h *Handler) navigate(c echo.Context, to string) (*session.Session, error) {
	sess, err := h.loadSession(c)
	if err != nil {
		return nil, err
	}
	if session.Page(to) == session.PageCity {
		sess.GoToCity()
	} else {
		sess.GoBack()
	}
	return sess, h.saveSession(c, sess)
}

func (h *Handler) snapshot(c echo.Context, rawAmount string) (*service.Dashboard, error) {
	budget, err := h.parseAmount(rawAmount)
	if err != nil {
		return nil, err
	}
	return h.svc.Snapshot(c.Request().Context(), budget)
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return SuccessResponse(c, map[string]string{"status": "ok"})
}

// Dashboard returns prices, derived metrics and the ETF trend.
func (h *Handler) Dashboard(c echo.Context) error {
	req := &dashboardRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	dash, err := h.snapshot(c, req.Amount)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, dash)
}

// Cities lists the cities with a known premium.
func (h *Handler) Cities(c echo.Context) error {
	return SuccessResponse(c, h.svc.Cities())
}

// City returns the localized silver price for one city.
func (h *Handler) City(c echo.Context) error {
	req := &cityRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	dash, err := h.snapshot(c, req.Amount)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, h.svc.CityPrice(dash, req.City))
}

type forecastResponse struct {
	Forecast   prediction.Forecast `json:"forecast"`
	Headline   string              `json:"headline"`
	TargetLine string              `json:"target_line"`
	Notified   bool                `json:"notified"`
}

// Forecast runs the silver model, optionally publishing the result.
func (h *Handler) Forecast(c echo.Context) error {
	req := &forecastRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	dash, err := h.svc.Snapshot(ctx, h.svc.DefaultBudget())
	if err != nil {
		return AppErrorResponse(c, err)
	}
	f, err := h.svc.Forecast(ctx, dash)
	if err != nil {
		h.logger.Warn().Err(err).Msg("forecast failed")
		return AppErrorResponse(c, err)
	}

	resp := forecastResponse{Forecast: f, Headline: f.Headline(), TargetLine: f.TargetLine()}
	if req.Notify {
		resp.Notified = h.svc.PublishForecast(ctx, dash, f) == nil
	}
	return SuccessResponse(c, resp)
}

type chatResponse struct {
	Reply      string         `json:"reply"`
	Failed     bool           `json:"failed"`
	Transcript []chat.Message `json:"transcript"`
}

// Chat runs one conversation turn. Failures still return 200 with the
// apology text, matching what the page shows.
func (h *Handler) Chat(c echo.Context) error {
	req := &chatRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	res, sess, err := h.converse(c, req.Question)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, chatResponse{Reply: res.Text(), Failed: res.Failed(), Transcript: sess.Transcript})
}

// Transcript returns the session's visible conversation.
func (h *Handler) Transcript(c echo.Context) error {
	sess, err := h.loadSession(c)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	transcript := sess.Transcript
	if transcript == nil {
		transcript = []chat.Message{}
	}
	return SuccessResponse(c, transcript)
}

// Suggestions returns the example questions.
func (h *Handler) Suggestions(c echo.Context) error {
	return SuccessResponse(c, chat.Suggestions())
}

// Navigate switches the session between the main and city pages.
func (h *Handler) Navigate(c echo.Context) error {
	req := &navigateRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	sess, err := h.navigate(c, req.To)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, map[string]session.Page{"page": sess.Page})
}

// Calculator divides a budget by a per-gram price.
func (h *Handler) Calculator(c echo.Context) error {
	req := &calculatorRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	price, err := decimal.NewFromString(req.PricePerGram)
	if err != nil {
		return AppErrorResponse(c, &AppError{Code: CodeBadRequest, Message: "price_per_gram must be a number", Status: http.StatusBadRequest, Err: err})
	}
	budget, err := decimal.NewFromString(req.Budget)
	if err != nil {
		return AppErrorResponse(c, &AppError{Code: CodeBadRequest, Message: "budget must be a number", Status: http.StatusBadRequest, Err: err})
	}

	grams, err := pricing.GramsForBudget(budget, price)
	switch {
	case errors.Is(err, pricing.ErrInvalidPrice):
		return BadRequestResponse(c, []ValidationError{{Code: "ERR_GT", Field: "PricePerGram", Message: "PricePerGram must be greater than 0", Params: map[string]interface{}{"value": "0"}}})
	case err != nil:
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, map[string]string{
		"price_per_gram": price.String(),
		"budget":         budget.String(),
		"grams":          grams.StringFixed(2),
	})
}

// Trend returns one symbol's closes as JSON.
func (h *Handler) Trend(c echo.Context) error {
	series, _, ok, err := h.trendSeries(c)
	if !ok {
		return err
	}
	return SuccessResponse(c, series)
}

// TrendCSV returns one symbol's closes as CSV.
func (h *Handler) TrendCSV(c echo.Context) error {
	series, name, ok, err := h.trendSeries(c)
	if !ok {
		return err
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, series); err != nil {
		return AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", name+".csv"))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// TrendPNG renders one symbol's closes as a line chart.
func (h *Handler) TrendPNG(c echo.Context) error {
	series, name, ok, err := h.trendSeries(c)
	if !ok {
		return err
	}
	return h.writePNG(c, "Market Trends: "+name, series)
}

// DashboardTrendPNG renders the silver and gold ETF comparison chart.
func (h *Handler) DashboardTrendPNG(c echo.Context) error {
	dash, err := h.svc.Snapshot(c.Request().Context(), h.svc.DefaultBudget())
	if err != nil {
		return AppErrorResponse(c, err)
	}
	series := export.DownsampleAll(export.FromTrend(dash.Trend), h.cfg.ResolveMaxPoints(0))
	return h.writePNG(c, "30-Day Trend Comparison", series)
}

// trendSeries resolves the requested series. When ok is false the error
// response has already been written and err is the result of writing it.
func (h *Handler) trendSeries(c echo.Context) (series []export.Series, name string, ok bool, err error) {
	req := &trendRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return nil, "", false, BadRequestResponse(c, verr)
	}
	symbol := req.Symbol
	if symbol == "" {
		symbol = h.cfg.Market.Symbols.SilverETF
	}

	points, err := h.svc.Trend(c.Request().Context(), symbol, req.Window)
	if err != nil {
		h.logger.Warn().Err(err).Str("symbol", symbol).Msg("trend unavailable")
		return nil, "", false, AppErrorResponse(c, err)
	}
	series = export.DownsampleAll([]export.Series{export.FromSeries(symbol, points)}, h.cfg.ResolveMaxPoints(req.MaxPoints))
	return series, symbol, true, nil
}

func (h *Handler) writePNG(c echo.Context, title string, series []export.Series) error {
	var buf bytes.Buffer
	if err := export.WritePNG(&buf, title, series); err != nil {
		h.logger.Warn().Err(err).Str("chart", title).Msg("render chart")
		return AppErrorResponse(c, fmt.Errorf("%w: %v", pricing.ErrNoPriceData, err))
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}
