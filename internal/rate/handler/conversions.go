package handler

import (
	"net/http"

	"fxsync/internal/rate"

	"github.com/sirupsen/logrus"
)

type SetAmountRequest struct {
	Amount *float64 `json:"amount" example:"12.5"`
}

type SetCurrencyRequest struct {
	Currency string `json:"currency" example:"EUR"`
}

// GetConversions godoc
// @Summary Current conversions
// @Description Amount in the selected currency expressed in every known currency, with sync status
// @Tags Conversions
// @Produce json
// @Success 200 {object} StateResponse
// @Router /conversions [get]
func (h *Handler) GetConversions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStateResponse(h.engine.State()))
}

// SetAmount godoc
// @Summary Change the amount
// @Description Recomputes conversions from the tables in memory, never calls the remote source
// @Tags Conversions
// @Accept json
// @Produce json
// @Param request body SetAmountRequest true "amount to convert"
// @Success 200 {object} StateResponse
// @Failure 400 {object} errorResponse
// @Router /conversions/amount [put]
func (h *Handler) SetAmount(w http.ResponseWriter, r *http.Request) {
	var req SetAmountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	h.engine.SetAmount(*req.Amount)
	logrus.WithFields(logrus.Fields{"handler": "SetAmount", "amount": *req.Amount}).Debug("amount changed")
	writeJSON(w, http.StatusOK, newStateResponse(h.engine.State()))
}

// SetCurrency godoc
// @Summary Change the selected currency
// @Description Codes missing from the rate table are accepted and converted as the base currency
// @Tags Conversions
// @Accept json
// @Produce json
// @Param request body SetCurrencyRequest true "currency the amount is given in"
// @Success 200 {object} StateResponse
// @Failure 400 {object} errorResponse
// @Router /conversions/currency [put]
func (h *Handler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	var req SetCurrencyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := rate.ParseCode(req.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.engine.SetSelectedCurrency(code.String())
	logrus.WithFields(logrus.Fields{"handler": "SetCurrency", "currency": code}).Debug("selected currency changed")
	writeJSON(w, http.StatusOK, newStateResponse(h.engine.State()))
}
