package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"stablevault/internal/domain"

	"github.com/sirupsen/logrus"
)

type OpenPositionRequest struct {
	Owner string `json:"owner" example:"acct-1"`
	Asset string `json:"asset" example:"ICP"`
}

type OpenPositionResponse struct {
	PositionID uint64 `json:"position_id" example:"1"`
}

// Open godoc
// @Summary Open a new position
// @Description Create an empty collateralized debt position for an owner
// @Tags Positions
// @Accept json
// @Produce json
// @Param request body OpenPositionRequest true "Owner and collateral asset"
// @Success 201 {object} OpenPositionResponse
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /positions [post]
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 512)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req OpenPositionRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := strings.TrimSpace(req.Owner)
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	id, err := h.service.Open(r.Context(), owner, domain.CollateralAsset(strings.ToUpper(strings.TrimSpace(req.Asset))))
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedAsset) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		msg := "failed to open position"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "Open", "owner": owner}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	writeJSON(w, http.StatusCreated, OpenPositionResponse{PositionID: id})
}
