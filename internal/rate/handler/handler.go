package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"fxsync/internal/domain"
)

// Engine is the part of rate.Engine the HTTP API talks to.
type Engine interface {
	State() domain.EngineState
	Names() domain.NameTable
	SetAmount(amount float64)
	SetSelectedCurrency(code string)
	RefreshIfNeeded(ctx context.Context) error
}

type Handler struct {
	engine Engine
}

func NewRateHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

type StateResponse struct {
	Status           domain.EngineStatus `json:"status" example:"ready"`
	IsLoading        bool                `json:"is_loading"`
	SelectedCurrency string              `json:"selected_currency" example:"USD"`
	Amount           float64             `json:"amount" example:"100"`
	Results          []domain.Conversion `json:"results"`
	LastError        *domain.ErrorKind   `json:"last_error,omitempty" swaggertype:"string" example:"too_many_requests"`
	LastRefresh      *time.Time          `json:"last_refresh,omitempty"`
}

func newStateResponse(st domain.EngineState) StateResponse {
	results := []domain.Conversion(st.Results)
	if results == nil {
		results = []domain.Conversion{}
	}
	return StateResponse{
		Status:           st.Status,
		IsLoading:        st.IsLoading,
		SelectedCurrency: st.SelectedCurrency.String(),
		Amount:           st.Amount,
		Results:          results,
		LastError:        st.LastError,
		LastRefresh:      st.LastRefresh,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, errorMsg string) {
	writeJSON(w, statusCode, errorResponse{
		Error: errorMsg,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 256)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
