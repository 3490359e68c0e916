package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"stablevault/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type PriceResponse struct {
	Asset        string    `json:"asset" example:"ICP"`
	Price        float64   `json:"price" example:"10.42"`
	Timestamp    time.Time `json:"timestamp" example:"2025-01-02T15:04:05Z"`
	SourcesUsed  int       `json:"sources_used" example:"3"`
	MaxDeviation float64   `json:"max_deviation" example:"0.012"`
}

type SupportedAssetsResponse struct {
	Assets []string `json:"assets" example:"ICP,CKBTC,CKETH"`
}

// GetPrice godoc
// @Summary Get aggregated price for an asset
// @Description Median over all fresh sources; rejected when sources disagree beyond the deviation threshold
// @Tags Prices
// @Produce json
// @Param asset path string true "Collateral asset"
// @Success 200 {object} PriceResponse
// @Failure 400 {object} errorResponse
// @Failure 502 {object} errorResponse "insufficient sources or deviation too high"
// @Failure 500 {object} errorResponse
// @Router /prices/{asset} [get]
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	asset := domain.CollateralAsset(strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "asset"))))

	price, err := h.service.GetPrice(r.Context(), asset)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedAsset):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrInsufficientSources), errors.Is(err, domain.ErrPriceDeviationTooHigh):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			msg := "failed to aggregate price"
			logrus.WithError(err).WithFields(logrus.Fields{"handler": "GetPrice", "asset": asset}).Error(msg)
			writeError(w, http.StatusInternalServerError, msg)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(PriceResponse{
		Asset:        string(asset),
		Price:        price.Price,
		Timestamp:    price.Timestamp,
		SourcesUsed:  price.SourcesUsed,
		MaxDeviation: price.MaxDeviation,
	})
}

// SupportedAssets godoc
// @Summary List supported collateral assets
// @Tags Prices
// @Produce json
// @Success 200 {object} SupportedAssetsResponse
// @Router /prices/assets [get]
func (h *Handler) SupportedAssets(w http.ResponseWriter, _ *http.Request) {
	assets := h.service.SupportedAssets()
	codes := make([]string, 0, len(assets))
	for _, a := range assets {
		codes = append(codes, string(a))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(SupportedAssetsResponse{Assets: codes})
}
