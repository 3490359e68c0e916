package domain

import "math/big"

// CollateralAsset identifies one of the collateral variants accepted by the
// protocol.
type CollateralAsset string

const (
	AssetICP   CollateralAsset = "ICP"
	AssetCKBTC CollateralAsset = "CKBTC"
	AssetCKETH CollateralAsset = "CKETH"
)

// Symbol returns the ticker used by external price feeds for the asset.
func (a CollateralAsset) Symbol() string {
	switch a {
	case AssetICP:
		return "ICP"
	case AssetCKBTC:
		return "BTC"
	case AssetCKETH:
		return "ETH"
	}
	return ""
}

func (a CollateralAsset) Valid() bool {
	return a.Symbol() != ""
}

// AssetParams holds the per-asset risk configuration. MinDeposit is in base
// units of the asset, LTVBps is the mint-time loan-to-value limit in basis
// points (0..10000).
type AssetParams struct {
	Decimals   uint32
	MinDeposit *big.Int
	LTVBps     uint32
}
