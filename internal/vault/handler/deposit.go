package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"stablevault/internal/domain"

	"github.com/sirupsen/logrus"
)

type AmountRequest struct {
	Amount string `json:"amount" example:"100000000"`
}

// Deposit godoc
// @Summary Deposit collateral
// @Description Increase position collateral by the given base-unit amount
// @Tags Positions
// @Accept json
// @Produce json
// @Param id path int true "Position ID"
// @Param request body AmountRequest true "Amount in base units"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 422 {object} errorResponse "below minimum collateral"
// @Failure 500 {object} errorResponse
// @Router /positions/{id}/deposit [post]
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.Deposit(r.Context(), id, amount); err != nil {
		switch {
		case errors.Is(err, domain.ErrPositionNotFound):
			writeError(w, http.StatusNotFound, "position not found")
		case errors.Is(err, domain.ErrBelowMinimumCollateral):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			msg := "failed to deposit collateral"
			logrus.WithError(err).WithFields(logrus.Fields{"handler": "Deposit", "position_id": id}).Error(msg)
			writeError(w, http.StatusInternalServerError, msg)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
