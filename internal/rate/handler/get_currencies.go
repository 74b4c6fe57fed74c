package handler

import (
	"net/http"
	"slices"
	"strings"
)

type CurrencyResponse struct {
	Code string `json:"code" example:"EUR"`
	Name string `json:"name" example:"Euro"`
}

// GetCurrencies godoc
// @Summary List known currencies
// @Description Currency codes with display names, sorted by code
// @Tags Rates
// @Produce json
// @Success 200 {array} CurrencyResponse
// @Router /currencies [get]
func (h *Handler) GetCurrencies(w http.ResponseWriter, _ *http.Request) {
	names := h.engine.Names()
	res := make([]CurrencyResponse, 0, len(names))
	for code, name := range names {
		res = append(res, CurrencyResponse{Code: code.String(), Name: name})
	}
	slices.SortFunc(res, func(a, b CurrencyResponse) int {
		return strings.Compare(a.Code, b.Code)
	})
	writeJSON(w, http.StatusOK, res)
}
