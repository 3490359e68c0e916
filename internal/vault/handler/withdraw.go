package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"stablevault/internal/domain"

	"github.com/sirupsen/logrus"
)

// Withdraw godoc
// @Summary Withdraw collateral
// @Description Reduce collateral; rejected if remaining collateral would not cover existing debt at the asset LTV limit
// @Tags Positions
// @Accept json
// @Produce json
// @Param id path int true "Position ID"
// @Param request body AmountRequest true "Amount in base units"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 422 {object} errorResponse "insufficient collateral or LTV breach"
// @Failure 502 {object} errorResponse "oracle failure"
// @Failure 500 {object} errorResponse
// @Router /positions/{id}/withdraw [post]
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 256)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req AmountRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Withdraw(r.Context(), id, amount); err != nil {
		switch {
		case errors.Is(err, domain.ErrPositionNotFound):
			writeError(w, http.StatusNotFound, "position not found")
		case errors.Is(err, domain.ErrInsufficientCollateral), errors.Is(err, domain.ErrExceedsMaxLTV):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrInsufficientSources), errors.Is(err, domain.ErrPriceDeviationTooHigh):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			msg := "failed to withdraw collateral"
			logrus.WithError(err).WithFields(logrus.Fields{"handler": "Withdraw", "position_id": id}).Error(msg)
			writeError(w, http.StatusInternalServerError, msg)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
