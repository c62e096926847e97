package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"metals-dashboard/internal/chat"
	"metals-dashboard/internal/prediction"
	"metals-dashboard/internal/pricing"
	"metals-dashboard/internal/service"
	"metals-dashboard/internal/session"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"fixed":     func(d decimal.Decimal, places int) string { return d.StringFixed(int32(places)) },
	"grouped":   func(d decimal.Decimal, places int) string { return groupThousands(d.StringFixed(int32(places))) },
	"nullFixed": nullFixed,
}).ParseFS(templateFS, "templates/index.html"))

// pageData feeds the dashboard template.
type pageData struct {
	Page          session.Page
	Amount        string
	Error         string
	Dashboard     *service.Dashboard
	Forecast      *prediction.Forecast
	ForecastError string
	Cities        []string
	SelectedCity  string
	City          *service.CityQuote
	Calc          calcView
	Transcript    []chat.Message
	Suggestions   []string
}

type calcView struct {
	PricePerGram string
	Budget       string
	Grams        string
}

type pageRequest struct {
	Amount       string `query:"amount" validate:"omitempty,numeric"`
	City         string `query:"city" validate:"omitempty,max=64"`
	Forecast     bool   `query:"forecast"`
	PricePerGram string `query:"price_per_gram" default:"92.5" validate:"numeric"`
	Budget       string `query:"budget" default:"100000" validate:"numeric"`
}

// Index renders the HTML dashboard for the caller's session.
func (h *Handler) Index(c echo.Context) error {
	req := &pageRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	sess, err := h.loadSession(c)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	data := pageData{
		Page:        sess.Page,
		Amount:      req.Amount,
		Cities:      h.svc.Cities(),
		Transcript:  sess.Transcript,
		Suggestions: chat.Suggestions(),
		Calc:        calculatorView(req.PricePerGram, req.Budget),
	}

	budget, err := h.parseAmount(req.Amount)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if data.Amount == "" {
		data.Amount = budget.String()
	}

	dash, err := h.svc.Snapshot(ctx, budget)
	if err != nil {
		appErr := toAppError(err)
		h.logger.Error().Err(err).Msg("dashboard unavailable")
		data.Error = appErr.Message
		return h.renderPage(c, appErr.Status, data)
	}
	data.Dashboard = dash

	if sess.Page == session.PageCity {
		city := req.City
		if city == "" && len(data.Cities) > 0 {
			city = data.Cities[0]
		}
		if city != "" {
			quote := h.svc.CityPrice(dash, city)
			data.City = &quote
			data.SelectedCity = quote.City
		}
	}

	if req.Forecast {
		f, err := h.svc.Forecast(ctx, dash)
		if err != nil {
			data.ForecastError = toAppError(err).Message
		} else {
			data.Forecast = &f
		}
	}

	return h.renderPage(c, http.StatusOK, data)
}

// ChatForm handles the dashboard's chat form and redirects back.
func (h *Handler) ChatForm(c echo.Context) error {
	req := &chatRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	if _, _, err := h.converse(c, req.Question); err != nil {
		return AppErrorResponse(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// NavigateForm handles the Proceed and Back buttons.
func (h *Handler) NavigateForm(c echo.Context) error {
	req := &navigateRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	if _, err := h.navigate(c, req.To); err != nil {
		return AppErrorResponse(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) renderPage(c echo.Context, status int, data pageData) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error().Err(err).Msg("render dashboard page")
		return AppErrorResponse(c, err)
	}
	return c.HTMLBlob(status, buf.Bytes())
}

func calculatorView(pricePerGram, budget string) calcView {
	view := calcView{PricePerGram: pricePerGram, Budget: budget}
	price, err := decimal.NewFromString(pricePerGram)
	if err != nil {
		return view
	}
	amount, err := decimal.NewFromString(budget)
	if err != nil {
		return view
	}
	grams, err := pricing.GramsForBudget(amount, price)
	if err != nil {
		return view
	}
	view.Grams = grams.StringFixed(2)
	return view
}

func nullFixed(d decimal.NullDecimal, places int) string {
	if !d.Valid {
		return "n/a"
	}
	return d.Decimal.StringFixed(int32(places))
}

// groupThousands inserts comma separators into a fixed-point string.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + frac
}
