package handler

import (
	"errors"
	"net/http"

	"stablevault/internal/domain"

	"github.com/sirupsen/logrus"
)

type ListLiquidatableResponse struct {
	PositionIDs []uint64 `json:"position_ids" example:"1,7"`
}

// ListLiquidatable godoc
// @Summary List positions eligible for liquidation
// @Description Eligibility is computed at the current price; it is re-checked inside every liquidation attempt
// @Tags Liquidations
// @Produce json
// @Success 200 {object} ListLiquidatableResponse
// @Failure 502 {object} errorResponse "oracle failure"
// @Failure 500 {object} errorResponse
// @Router /liquidations/positions [get]
func (h *Handler) ListLiquidatable(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ListLiquidatable(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientSources) || errors.Is(err, domain.ErrPriceDeviationTooHigh) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		msg := "failed to scan positions"
		logrus.WithError(err).WithField("handler", "ListLiquidatable").Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeJSON(w, http.StatusOK, ListLiquidatableResponse{PositionIDs: ids})
}

// ListEvents godoc
// @Summary List liquidation events
// @Tags Liquidations
// @Produce json
// @Success 200 {array} LiquidationEventResponse
// @Failure 500 {object} errorResponse
// @Router /liquidations/events [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.Events(r.Context())
	if err != nil {
		msg := "failed to list liquidation events"
		logrus.WithError(err).WithField("handler", "ListEvents").Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	res := make([]LiquidationEventResponse, 0, len(events))
	for _, e := range events {
		res = append(res, eventResponse(e))
	}
	writeJSON(w, http.StatusOK, res)
}
