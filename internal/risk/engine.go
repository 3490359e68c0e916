package risk

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"stablevault/internal/domain"
	"stablevault/internal/oracle"
)

var basisPoints = big.NewInt(10_000)

// Engine computes collateral value, debt limits and liquidation eligibility.
// All arithmetic is fixed-point big.Int with truncation; the only float to
// integer conversion is the oracle price into 1e-8 USD units.
type Engine struct {
	prices oracle.PriceProvider
	params map[domain.CollateralAsset]domain.AssetParams
}

func NewEngine(prices oracle.PriceProvider, params map[domain.CollateralAsset]domain.AssetParams) *Engine {
	return &Engine{prices: prices, params: params}
}

// Params returns the risk parameters for the asset.
func (e *Engine) Params(asset domain.CollateralAsset) (domain.AssetParams, error) {
	p, ok := e.params[asset]
	if !ok {
		return domain.AssetParams{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedAsset, asset)
	}
	return p, nil
}

// CollateralValue converts a base-unit collateral amount into stable-asset
// units (8-decimal fixed point) at the current aggregated price:
// amount * priceE8 / 10^decimals, truncated.
func (e *Engine) CollateralValue(ctx context.Context, asset domain.CollateralAsset, amount *big.Int) (*big.Int, error) {
	params, err := e.Params(asset)
	if err != nil {
		return nil, err
	}

	agg, err := e.prices.GetPrice(ctx, asset)
	if err != nil {
		return nil, err
	}

	priceE8 := big.NewInt(int64(math.Trunc(agg.Price * 1e8)))
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(params.Decimals)), nil)

	value := new(big.Int).Mul(amount, priceE8)
	return value.Quo(value, unit), nil
}

// CollateralUnits converts a stable-asset value back into base units of the
// collateral asset at the current price: value * 10^decimals / priceE8,
// truncated. Used to size a liquidation seizure.
func (e *Engine) CollateralUnits(ctx context.Context, asset domain.CollateralAsset, value *big.Int) (*big.Int, error) {
	params, err := e.Params(asset)
	if err != nil {
		return nil, err
	}
	agg, err := e.prices.GetPrice(ctx, asset)
	if err != nil {
		return nil, err
	}

	priceE8 := big.NewInt(int64(math.Trunc(agg.Price * 1e8)))
	if priceE8.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive aggregated price", domain.ErrInsufficientSources)
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(params.Decimals)), nil)

	units := new(big.Int).Mul(value, unit)
	return units.Quo(units, priceE8), nil
}

// MaxDebt is the mint-time debt ceiling: collateralValue * ltvBps / 10000.
func (e *Engine) MaxDebt(asset domain.CollateralAsset, collateralValue *big.Int) (*big.Int, error) {
	params, err := e.Params(asset)
	if err != nil {
		return nil, err
	}
	max := new(big.Int).Mul(collateralValue, big.NewInt(int64(params.LTVBps)))
	return max.Quo(max, basisPoints), nil
}

// HealthFactor is collateralValue / debt; +Inf for a debt-free position.
func (e *Engine) HealthFactor(ctx context.Context, p domain.Position) (float64, error) {
	if p.Debt == nil || p.Debt.Sign() == 0 {
		return math.Inf(1), nil
	}
	value, err := e.CollateralValue(ctx, p.Asset, p.Collateral)
	if err != nil {
		return 0, err
	}
	hf, _ := new(big.Float).Quo(new(big.Float).SetInt(value), new(big.Float).SetInt(p.Debt)).Float64()
	return hf, nil
}

// IsLiquidatable reports whether debt exceeds the liquidation threshold. The
// threshold sits at 95% of the mint LTV, leaving a margin between "cannot
// mint more" and "can be seized".
func (e *Engine) IsLiquidatable(ctx context.Context, p domain.Position) (bool, error) {
	if p.Debt == nil || p.Debt.Sign() == 0 {
		return false, nil
	}
	params, err := e.Params(p.Asset)
	if err != nil {
		return false, err
	}
	value, err := e.CollateralValue(ctx, p.Asset, p.Collateral)
	if err != nil {
		return false, err
	}

	thresholdBps := big.NewInt(int64(params.LTVBps) * 95 / 100)
	limit := new(big.Int).Mul(value, thresholdBps)
	limit.Quo(limit, basisPoints)

	return p.Debt.Cmp(limit) > 0, nil
}
