package cache

import (
	"fmt"
	"time"

	"stablevault/internal/domain"

	"github.com/dgraph-io/ristretto"
)

// RistrettoPriceCache memoizes aggregated prices per asset. Entries expire
// after the configured TTL so a cached price can never outlive the oracle's
// freshness bound.
type RistrettoPriceCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewPriceCache(maxItems int64, ttl time.Duration) (*RistrettoPriceCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create price cache failed: %w", err)
	}
	return &RistrettoPriceCache{cache: c, ttl: ttl}, nil
}

func (c *RistrettoPriceCache) Get(asset domain.CollateralAsset) (domain.AggregatedPrice, bool) {
	if v, ok := c.cache.Get(string(asset)); ok {
		price, ok := v.(domain.AggregatedPrice)
		return price, ok
	}
	return domain.AggregatedPrice{}, false
}

func (c *RistrettoPriceCache) Set(asset domain.CollateralAsset, price domain.AggregatedPrice) {
	c.cache.SetWithTTL(string(asset), price, 1, c.ttl)
	// Wait() makes the write visible to the next Get, which keeps the
	// memoization deterministic for back-to-back risk checks.
	c.cache.Wait()
}

func (c *RistrettoPriceCache) Close() { c.cache.Close() }
