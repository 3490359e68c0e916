package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"stablevault/internal/domain"

	"github.com/sirupsen/logrus"
)

// Mint godoc
// @Summary Mint stable asset against collateral
// @Description Issue debt; rejected if total debt would exceed the asset LTV limit
// @Tags Positions
// @Accept json
// @Produce json
// @Param id path int true "Position ID"
// @Param request body AmountRequest true "Amount in stable-asset base units"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 422 {object} errorResponse "LTV breach"
// @Failure 502 {object} errorResponse "oracle or ledger failure"
// @Failure 500 {object} errorResponse
// @Router /positions/{id}/mint [post]
func (h *Handler) Mint(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.Mint(r.Context(), id, amount); err != nil {
		switch {
		case errors.Is(err, domain.ErrPositionNotFound):
			writeError(w, http.StatusNotFound, "position not found")
		case errors.Is(err, domain.ErrExceedsMaxLTV):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrInsufficientSources),
			errors.Is(err, domain.ErrPriceDeviationTooHigh),
			errors.Is(err, domain.ErrTransferFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			msg := "failed to mint stable asset"
			logrus.WithError(err).WithFields(logrus.Fields{"handler": "Mint", "position_id": id}).Error(msg)
			writeError(w, http.StatusInternalServerError, msg)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
