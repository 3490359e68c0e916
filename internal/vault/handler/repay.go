package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"stablevault/internal/domain"

	"github.com/sirupsen/logrus"
)

// Repay godoc
// @Summary Repay stable-asset debt
// @Description Burn stable asset from the owner and reduce position debt
// @Tags Positions
// @Accept json
// @Produce json
// @Param id path int true "Position ID"
// @Param request body AmountRequest true "Amount in stable-asset base units"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 422 {object} errorResponse "repayment exceeds debt"
// @Failure 502 {object} errorResponse "ledger failure"
// @Failure 500 {object} errorResponse
// @Router /positions/{id}/repay [post]
func (h *Handler) Repay(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.Repay(r.Context(), id, amount); err != nil {
		switch {
		case errors.Is(err, domain.ErrPositionNotFound):
			writeError(w, http.StatusNotFound, "position not found")
		case errors.Is(err, domain.ErrRepaymentExceedsDebt):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrTransferFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			msg := "failed to repay debt"
			logrus.WithError(err).WithFields(logrus.Fields{"handler": "Repay", "position_id": id}).Error(msg)
			writeError(w, http.StatusInternalServerError, msg)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
