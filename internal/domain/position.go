package domain

import (
	"math/big"
	"time"
)

// Position is a single collateralized debt position. Collateral is in base
// units of the collateral asset, Debt is in base units of the stable asset
// (8-decimal fixed point). Both are never negative; a position with zero
// collateral and zero debt is dormant, never deleted.
type Position struct {
	ID          uint64
	Owner       string
	Asset       CollateralAsset
	Collateral  *big.Int
	Debt        *big.Int
	LastUpdated time.Time
}

// Clone returns a deep copy so callers can stage a mutation without the
// change becoming observable before commit.
func (p Position) Clone() Position {
	c := p
	if p.Collateral != nil {
		c.Collateral = new(big.Int).Set(p.Collateral)
	}
	if p.Debt != nil {
		c.Debt = new(big.Int).Set(p.Debt)
	}
	return c
}
