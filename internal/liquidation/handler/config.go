package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"stablevault/internal/domain"
	"stablevault/internal/identity"

	"github.com/sirupsen/logrus"
)

type ConfigResponse struct {
	BonusBps    uint32   `json:"bonus_bps" example:"1000"`
	MinAmount   string   `json:"min_amount" example:"100000000"`
	MaxAmount   string   `json:"max_amount" example:"1000000000000"`
	Liquidators []string `json:"liquidators" example:"acct-liq"`
}

type UpdateConfigRequest struct {
	BonusBps    uint32   `json:"bonus_bps"`
	MinAmount   string   `json:"min_amount"`
	MaxAmount   string   `json:"max_amount"`
	Liquidators []string `json:"liquidators"`
}

type AddLiquidatorRequest struct {
	Account string `json:"account" example:"acct-liq"`
}

// GetConfig godoc
// @Summary Get liquidation config
// @Tags Liquidations
// @Produce json
// @Success 200 {object} ConfigResponse
// @Router /liquidations/config [get]
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := h.service.Config()
	writeJSON(w, http.StatusOK, ConfigResponse{
		BonusBps:    cfg.BonusBps,
		MinAmount:   cfg.MinAmount.String(),
		MaxAmount:   cfg.MaxAmount.String(),
		Liquidators: cfg.Liquidators,
	})
}

// UpdateConfig godoc
// @Summary Replace liquidation config
// @Description Admin only; takes effect on the next liquidation attempt
// @Tags Liquidations
// @Accept json
// @Produce json
// @Param request body UpdateConfigRequest true "New config"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /liquidations/config [put]
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	caller := identity.Caller(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "caller identity required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 4096)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req UpdateConfigRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	minAmount, err := parseAmount(req.MinAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "min_amount: "+err.Error())
		return
	}
	maxAmount, err := parseAmount(req.MaxAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "max_amount: "+err.Error())
		return
	}
	if minAmount.Cmp(maxAmount) > 0 {
		writeError(w, http.StatusBadRequest, "min_amount exceeds max_amount")
		return
	}

	cfg := domain.LiquidationConfig{
		BonusBps:    req.BonusBps,
		MinAmount:   minAmount,
		MaxAmount:   maxAmount,
		Liquidators: req.Liquidators,
	}
	if err := h.service.UpdateConfig(caller, cfg); err != nil {
		if errors.Is(err, domain.ErrUnauthorizedAdmin) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		msg := "failed to update liquidation config"
		logrus.WithError(err).WithField("handler", "UpdateConfig").Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddLiquidator godoc
// @Summary Whitelist a liquidator account
// @Description Admin only
// @Tags Liquidations
// @Accept json
// @Produce json
// @Param request body AddLiquidatorRequest true "Account"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /liquidations/liquidators [post]
func (h *Handler) AddLiquidator(w http.ResponseWriter, r *http.Request) {
	caller := identity.Caller(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "caller identity required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 256)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req AddLiquidatorRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account := strings.TrimSpace(req.Account)
	if account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	if err := h.service.AddLiquidator(caller, account); err != nil {
		if errors.Is(err, domain.ErrUnauthorizedAdmin) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		msg := "failed to add liquidator"
		logrus.WithError(err).WithField("handler", "AddLiquidator").Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
