package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Refresh godoc
// @Summary Refresh rates if needed
// @Description Fetches from the remote source when the tables are empty or stale and waits for the cycle.
// @Description A failed fetch is reported in the returned state, not as an HTTP error.
// @Tags Rates
// @Produce json
// @Success 200 {object} StateResponse
// @Failure 504 {object} errorResponse
// @Router /rates/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RefreshIfNeeded(r.Context()); err != nil {
		logrus.WithError(err).WithField("handler", "Refresh").Warn("refresh wait interrupted")
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "refresh is still running")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "refresh wait was interrupted")
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(h.engine.State()))
}
