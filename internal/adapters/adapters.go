package adapters

import (
	"context"
	"math/big"
	"time"

	"stablevault/internal/domain"

	"github.com/google/uuid"
)

// PriceSource is one external price feed. Quote returns the source's latest
// observation for a feed symbol ("ICP", "BTC", "ETH").
type PriceSource interface {
	Name() string
	Quote(ctx context.Context, symbol string) (domain.PriceQuote, error)
}

// PriceCache memoizes aggregated prices with a freshness bound.
type PriceCache interface {
	Get(asset domain.CollateralAsset) (domain.AggregatedPrice, bool)
	Set(asset domain.CollateralAsset, price domain.AggregatedPrice)
}

// LedgerClient is the external token service that actually moves balances.
// Mint and Burn act on the stable asset; Transfer moves either the stable
// asset or a collateral asset depending on the asset code.
type LedgerClient interface {
	Mint(ctx context.Context, account string, amount *big.Int) error
	Burn(ctx context.Context, account string, amount *big.Int) error
	Transfer(ctx context.Context, asset string, from, to string, amount *big.Int) error
}

// PositionStore owns persistence of positions. Create allocates the next
// sequential identifier.
type PositionStore interface {
	Create(ctx context.Context, p domain.Position) (uint64, error)
	Get(ctx context.Context, id uint64) (domain.Position, error)
	Update(ctx context.Context, p domain.Position) error
	List(ctx context.Context) ([]domain.Position, error)
}

// EventStore is the append-only liquidation event log.
type EventStore interface {
	Append(ctx context.Context, e domain.LiquidationEvent) error
	List(ctx context.Context) ([]domain.LiquidationEvent, error)
}

// SettlementJournal records the two-leg liquidation settlement saga. Begin
// persists a pending entry before the first transfer leg executes.
type SettlementJournal interface {
	Begin(ctx context.Context, positionID uint64, liquidator string, debtToCover, collateralToSeize *big.Int, at time.Time) (uuid.UUID, error)
	SetState(ctx context.Context, id uuid.UUID, state domain.SettlementState, at time.Time) error
}
