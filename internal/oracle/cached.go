package oracle

import (
	"context"

	"stablevault/internal/adapters"
	"stablevault/internal/domain"
)

// PriceProvider is the read contract consumed by the risk engine.
type PriceProvider interface {
	GetPrice(ctx context.Context, asset domain.CollateralAsset) (domain.AggregatedPrice, error)
}

// CachedService memoizes aggregated prices so a burst of risk checks does not
// fan out to every external source each time. Freshness is enforced by the
// cache's TTL; a miss always falls through to live aggregation.
type CachedService struct {
	inner PriceProvider
	cache adapters.PriceCache
}

func NewCachedService(inner PriceProvider, cache adapters.PriceCache) *CachedService {
	return &CachedService{inner: inner, cache: cache}
}

func (c *CachedService) GetPrice(ctx context.Context, asset domain.CollateralAsset) (domain.AggregatedPrice, error) {
	if price, ok := c.cache.Get(asset); ok {
		return price, nil
	}
	price, err := c.inner.GetPrice(ctx, asset)
	if err != nil {
		return domain.AggregatedPrice{}, err
	}
	c.cache.Set(asset, price)
	return price, nil
}
