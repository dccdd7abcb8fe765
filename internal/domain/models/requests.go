package models

// Requests for the public API endpoints. Defined in domain for consistency and reuse.

type PricesRequest struct {
	Symbols string `query:"symbols" json:"symbols"`
}

type CandlesRequest struct {
	TF    string `query:"tf" json:"tf" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Limit int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=2000"`
}

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Status string `query:"status" json:"status" validate:"omitempty,oneof=PENDING ACTIVE FILLED CANCELLED EXPIRED"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type AnalysisRequest struct {
	TF string `query:"tf" json:"tf" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d"`
}

type MistakesRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type EvolutionRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=200"`
}

type CalendarRequest struct {
	Currency string `query:"currency" json:"currency"`
	Impact   string `query:"impact" json:"impact" validate:"omitempty,oneof=low medium high"`
}

type ChatMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

type SettingsUpdateRequest struct {
	Section string                 `json:"section" validate:"required,oneof=risk monitoring pairs providers"`
	Values  map[string]interface{} `json:"values" validate:"required"`
}
