package server

// Numeric inputs are bound as strings: creasty/defaults would overwrite an
// explicit zero on numeric fields.

type dashboardRequest struct {
	Amount string `query:"amount" validate:"omitempty,numeric"`
}

type cityRequest struct {
	City   string `query:"city" validate:"required,max=64"`
	Amount string `query:"amount" validate:"omitempty,numeric"`
}

type forecastRequest struct {
	Notify bool `json:"notify" form:"notify"`
}

type chatRequest struct {
	Question string `json:"question" form:"question" validate:"required,max=1000"`
}

type navigateRequest struct {
	To string `json:"to" form:"to" validate:"required,oneof=main city"`
}

type calculatorRequest struct {
	PricePerGram string `query:"price_per_gram" default:"92.5" validate:"numeric"`
	Budget       string `query:"budget" default:"100000" validate:"numeric"`
}

type trendRequest struct {
	Symbol    string `query:"symbol" validate:"omitempty,max=16"`
	Window    string `query:"window" validate:"omitempty,oneof=5d 2wk 1mo 3mo 6mo 1y 2y 5y"`
	MaxPoints int    `query:"max_points" validate:"gte=0,lte=10000"`
}
