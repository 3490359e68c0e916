package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"stablevault/internal/domain"
)

// OracleService is the slice of the price oracle the handlers use.
type OracleService interface {
	GetPrice(ctx context.Context, asset domain.CollateralAsset) (domain.AggregatedPrice, error)
	SupportedAssets() []domain.CollateralAsset
}

type Handler struct {
	service OracleService
}

func NewPriceHandler(service OracleService) *Handler {
	return &Handler{service: service}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, errorMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorMsg,
	})
}
