package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"stablevault/internal/domain"
	"stablevault/internal/identity"

	"github.com/sirupsen/logrus"
)

type LiquidateRequest struct {
	PositionID  uint64 `json:"position_id" example:"1"`
	DebtToCover string `json:"debt_to_cover" example:"50000000"`
}

type LiquidationEventResponse struct {
	ID               string    `json:"id" example:"77b5d9f5-0569-47e3-aee2-f659d59fbd97"`
	PositionID       uint64    `json:"position_id" example:"1"`
	DebtRepaid       string    `json:"debt_repaid" example:"50000000"`
	CollateralSeized string    `json:"collateral_seized" example:"55000000"`
	Liquidator       string    `json:"liquidator" example:"acct-liq"`
	Asset            string    `json:"asset" example:"ICP"`
	Timestamp        time.Time `json:"timestamp" example:"2025-01-02T15:04:05Z"`
}

func eventResponse(e domain.LiquidationEvent) LiquidationEventResponse {
	return LiquidationEventResponse{
		ID:               e.ID.String(),
		PositionID:       e.PositionID,
		DebtRepaid:       e.DebtRepaid.String(),
		CollateralSeized: e.CollateralSeized.String(),
		Liquidator:       e.Liquidator,
		Asset:            string(e.Asset),
		Timestamp:        e.Timestamp,
	}
}

// Liquidate godoc
// @Summary Liquidate an under-collateralized position
// @Description Settle a seizure: the caller repays part of the debt and receives discounted collateral
// @Tags Liquidations
// @Accept json
// @Produce json
// @Param request body LiquidateRequest true "Position and debt to cover"
// @Success 200 {object} LiquidationEventResponse
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse "not a whitelisted liquidator"
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse "not liquidatable"
// @Failure 422 {object} errorResponse "amount outside bounds"
// @Failure 502 {object} errorResponse "transfer or oracle failure"
// @Failure 500 {object} errorResponse
// @Router /liquidations [post]
func (h *Handler) Liquidate(w http.ResponseWriter, r *http.Request) {
	caller := identity.Caller(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "caller identity required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 256)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req LiquidateRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	debtToCover, err := parseAmount(req.DebtToCover)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.service.Liquidate(r.Context(), caller, req.PositionID, debtToCover)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorizedLiquidator):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, domain.ErrPositionNotFound):
			writeError(w, http.StatusNotFound, "position not found")
		case errors.Is(err, domain.ErrNotLiquidatable):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidLiquidationAmount):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrInconsistentSettlement):
			// Surfaced verbatim so the liquidator knows reconciliation is
			// needed, not a retry.
			logrus.WithError(err).WithFields(logrus.Fields{"handler": "Liquidate", "position_id": req.PositionID}).Error("inconsistent settlement")
			writeError(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, domain.ErrTransferFailed),
			errors.Is(err, domain.ErrInsufficientSources),
			errors.Is(err, domain.ErrPriceDeviationTooHigh):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			msg := "failed to liquidate position"
			logrus.WithError(err).WithFields(logrus.Fields{"handler": "Liquidate", "position_id": req.PositionID}).Error(msg)
			writeError(w, http.StatusInternalServerError, msg)
		}
		return
	}

	writeJSON(w, http.StatusOK, eventResponse(event))
}
