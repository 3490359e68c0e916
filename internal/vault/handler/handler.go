package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"stablevault/internal/domain"
)

// PositionService is the slice of the vault service the handlers need.
type PositionService interface {
	Open(ctx context.Context, owner string, asset domain.CollateralAsset) (uint64, error)
	Get(ctx context.Context, id uint64) (domain.Position, error)
	Deposit(ctx context.Context, id uint64, amount *big.Int) error
	Withdraw(ctx context.Context, id uint64, amount *big.Int) error
	Mint(ctx context.Context, id uint64, amount *big.Int) error
	Repay(ctx context.Context, id uint64, amount *big.Int) error
	HealthFactor(ctx context.Context, id uint64) (float64, error)
	IsLiquidatable(ctx context.Context, id uint64) (bool, error)
}

type Handler struct {
	service PositionService
}

func NewPositionHandler(service PositionService) *Handler {
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

// parseAmount accepts a positive decimal string in base units.
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
