package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"stablevault/internal/domain"
)

// LiquidationService is the slice of the liquidation engine the handlers use.
type LiquidationService interface {
	Liquidate(ctx context.Context, caller string, positionID uint64, debtToCover *big.Int) (domain.LiquidationEvent, error)
	ListLiquidatable(ctx context.Context) ([]uint64, error)
	Config() domain.LiquidationConfig
	UpdateConfig(caller string, cfg domain.LiquidationConfig) error
	AddLiquidator(caller, account string) error
	Events(ctx context.Context) ([]domain.LiquidationEvent, error)
}

type Handler struct {
	service LiquidationService
}

func NewLiquidationHandler(service LiquidationService) *Handler {
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

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return v, nil
}
