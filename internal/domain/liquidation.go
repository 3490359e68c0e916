package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// LiquidationConfig is the process-wide liquidation policy. MinAmount and
// MaxAmount bound the seizure notional in stable-asset units.
type LiquidationConfig struct {
	BonusBps    uint32
	MinAmount   *big.Int
	MaxAmount   *big.Int
	Liquidators []string
}

// HasLiquidator reports whether the account is whitelisted.
func (c LiquidationConfig) HasLiquidator(account string) bool {
	for _, l := range c.Liquidators {
		if l == account {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the config.
func (c LiquidationConfig) Clone() LiquidationConfig {
	out := LiquidationConfig{BonusBps: c.BonusBps}
	if c.MinAmount != nil {
		out.MinAmount = new(big.Int).Set(c.MinAmount)
	}
	if c.MaxAmount != nil {
		out.MaxAmount = new(big.Int).Set(c.MaxAmount)
	}
	out.Liquidators = append([]string(nil), c.Liquidators...)
	return out
}

// LiquidationEvent is the immutable record appended after a successful
// liquidation.
type LiquidationEvent struct {
	ID               uuid.UUID
	PositionID       uint64
	DebtRepaid       *big.Int
	CollateralSeized *big.Int
	Liquidator       string
	Timestamp        time.Time
	Asset            CollateralAsset
}

// SettlementState tracks a liquidation settlement through its two transfer
// legs so a crash mid-settlement stays reconcilable.
type SettlementState string

const (
	SettlementPending      SettlementState = "pending"
	SettlementAborted      SettlementState = "aborted"
	SettlementDebtSettled  SettlementState = "debt_settled"
	SettlementCompensated  SettlementState = "compensated"
	SettlementCommitted    SettlementState = "committed"
	SettlementInconsistent SettlementState = "inconsistent"
)
