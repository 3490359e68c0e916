package handler

import (
	"errors"
	"math"
	"net/http"

	"stablevault/internal/domain"

	"github.com/sirupsen/logrus"
)

type HealthFactorResponse struct {
	PositionID   uint64  `json:"position_id" example:"1"`
	HealthFactor float64 `json:"health_factor" example:"1.42"`
	// Infinite is set instead of a numeric factor for a debt-free position.
	Infinite bool `json:"infinite" example:"false"`
}

type LiquidatableResponse struct {
	PositionID   uint64 `json:"position_id" example:"1"`
	Liquidatable bool   `json:"liquidatable" example:"false"`
}

// HealthFactor godoc
// @Summary Get position health factor
// @Tags Positions
// @Produce json
// @Param id path int true "Position ID"
// @Success 200 {object} HealthFactorResponse
// @Failure 404 {object} errorResponse
// @Failure 502 {object} errorResponse "oracle failure"
// @Router /positions/{id}/health [get]
func (h *Handler) HealthFactor(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	hf, err := h.service.HealthFactor(r.Context(), id)
	if err != nil {
		h.writeReadError(w, err, "HealthFactor", id)
		return
	}

	res := HealthFactorResponse{PositionID: id}
	if math.IsInf(hf, 1) {
		res.Infinite = true
	} else {
		res.HealthFactor = hf
	}
	writeJSON(w, http.StatusOK, res)
}

// IsLiquidatable godoc
// @Summary Check liquidation eligibility
// @Tags Positions
// @Produce json
// @Param id path int true "Position ID"
// @Success 200 {object} LiquidatableResponse
// @Failure 404 {object} errorResponse
// @Failure 502 {object} errorResponse "oracle failure"
// @Router /positions/{id}/liquidatable [get]
func (h *Handler) IsLiquidatable(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	eligible, err := h.service.IsLiquidatable(r.Context(), id)
	if err != nil {
		h.writeReadError(w, err, "IsLiquidatable", id)
		return
	}
	writeJSON(w, http.StatusOK, LiquidatableResponse{PositionID: id, Liquidatable: eligible})
}

func (h *Handler) writeReadError(w http.ResponseWriter, err error, handlerName string, id uint64) {
	switch {
	case errors.Is(err, domain.ErrPositionNotFound):
		writeError(w, http.StatusNotFound, "position not found")
	case errors.Is(err, domain.ErrInsufficientSources), errors.Is(err, domain.ErrPriceDeviationTooHigh):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		msg := "failed to read position risk"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": handlerName, "position_id": id}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
	}
}
