package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"stablevault/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type PositionResponse struct {
	ID          uint64    `json:"id" example:"1"`
	Owner       string    `json:"owner" example:"acct-1"`
	Asset       string    `json:"asset" example:"ICP"`
	Collateral  string    `json:"collateral" example:"100000000"`
	Debt        string    `json:"debt" example:"50000000"`
	LastUpdated time.Time `json:"last_updated" example:"2025-01-02T15:04:05Z"`
}

func positionID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

// Get godoc
// @Summary Get a position
// @Tags Positions
// @Produce json
// @Param id path int true "Position ID"
// @Success 200 {object} PositionResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /positions/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	pos, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			writeError(w, http.StatusNotFound, "position not found")
			return
		}
		msg := "failed to get position"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "Get", "position_id": id}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	writeJSON(w, http.StatusOK, PositionResponse{
		ID:          pos.ID,
		Owner:       pos.Owner,
		Asset:       string(pos.Asset),
		Collateral:  pos.Collateral.String(),
		Debt:        pos.Debt.String(),
		LastUpdated: pos.LastUpdated,
	})
}
