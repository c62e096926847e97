package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"metals-dashboard/internal/prediction"
	"metals-dashboard/internal/pricing"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// AppError is a domain failure mapped to an HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

const (
	CodeNoPriceData   = "ERR_NO_PRICE_DATA"
	CodeInvalidPrice  = "ERR_INVALID_PRICE"
	CodeInvalidBudget = "ERR_INVALID_BUDGET"
	CodePrediction    = "ERR_PREDICTION"
	CodeBadRequest    = "ERR_BAD_REQUEST"
	CodeUnavailable   = "ERR_UNAVAILABLE"
	CodeInternal      = "ERR_INTERNAL"
)

// toAppError classifies err. Price failures stop the whole dashboard;
// prediction failures only affect the forecast action.
func toAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, pricing.ErrNoPriceData):
		return &AppError{Code: CodeNoPriceData, Message: "Could not fetch latest price data. Please try again later.", Status: http.StatusServiceUnavailable, Err: err}
	case errors.Is(err, pricing.ErrInvalidPrice):
		return &AppError{Code: CodeInvalidPrice, Message: "The market returned an unusable price. Please try again later.", Status: http.StatusServiceUnavailable, Err: err}
	case errors.Is(err, pricing.ErrInvalidBudget):
		return &AppError{Code: CodeInvalidBudget, Message: "Investment amount cannot be negative.", Status: http.StatusBadRequest, Err: err}
	case errors.Is(err, prediction.ErrModelUnavailable), errors.Is(err, prediction.ErrCoercion):
		return &AppError{Code: CodePrediction, Message: "The forecast model could not produce a prediction.", Status: http.StatusBadGateway, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &AppError{Code: CodeUnavailable, Message: "The request timed out.", Status: http.StatusServiceUnavailable, Err: err}
	default:
		return &AppError{Code: CodeInternal, Message: "Something went wrong", Status: http.StatusInternalServerError, Err: err}
	}
}

// DataResponse writes the envelope with the given status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes a 200 envelope.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse writes a 400 envelope.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// AppErrorResponse writes err using its mapped status.
func AppErrorResponse(c echo.Context, err error) error {
	appErr := toAppError(err)
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}
