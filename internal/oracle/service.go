package oracle

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"stablevault/internal/adapters"
	"stablevault/internal/domain"
	"stablevault/internal/observability"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxAge           = 300 * time.Second
	defaultMaxDeviation     = 0.05
	defaultMinSources       = 2
	defaultPerSourceTimeout = 5 * time.Second
)

// Options tune the aggregation policy. Zero values fall back to the
// protocol defaults (300s staleness, 5% deviation, 2 sources minimum).
type Options struct {
	MaxQuoteAge      time.Duration
	MaxDeviation     float64
	MinSources       int
	PerSourceTimeout time.Duration
}

// Service aggregates quotes from independent price sources into a single
// trusted price per asset. It is read-only with respect to protocol state.
type Service struct {
	sources []adapters.PriceSource
	assets  []domain.CollateralAsset
	opts    Options
	now     func() time.Time
}

func NewService(sources []adapters.PriceSource, assets []domain.CollateralAsset, opts Options) *Service {
	if opts.MaxQuoteAge <= 0 {
		opts.MaxQuoteAge = defaultMaxAge
	}
	if opts.MaxDeviation <= 0 {
		opts.MaxDeviation = defaultMaxDeviation
	}
	if opts.MinSources <= 0 {
		opts.MinSources = defaultMinSources
	}
	if opts.PerSourceTimeout <= 0 {
		opts.PerSourceTimeout = defaultPerSourceTimeout
	}
	return &Service{sources: sources, assets: assets, opts: opts, now: time.Now}
}

// SetNow overrides the clock, used by tests to control staleness checks.
func (s *Service) SetNow(now func() time.Time) { s.now = now }

// SupportedAssets lists the collateral assets the oracle can price.
func (s *Service) SupportedAssets() []domain.CollateralAsset {
	return append([]domain.CollateralAsset(nil), s.assets...)
}

// GetPrice queries every source concurrently, drops failed or stale quotes
// and aggregates the survivors into a median with a deviation guard.
func (s *Service) GetPrice(ctx context.Context, asset domain.CollateralAsset) (domain.AggregatedPrice, error) {
	if !asset.Valid() {
		return domain.AggregatedPrice{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedAsset, asset)
	}

	quotes := s.fetchAll(ctx, asset.Symbol())
	agg, err := s.aggregate(quotes)
	if err != nil {
		observability.OracleRequests.WithLabelValues(string(asset), "error").Inc()
		return domain.AggregatedPrice{}, err
	}
	observability.OracleRequests.WithLabelValues(string(asset), "ok").Inc()
	return agg, nil
}

// fetchAll runs every source under its own timeout. A slow or dead source is
// dropped; it never blocks the others beyond its timeout.
func (s *Service) fetchAll(ctx context.Context, symbol string) []domain.PriceQuote {
	quotesCh := make(chan domain.PriceQuote, len(s.sources))

	var wg sync.WaitGroup
	for _, src := range s.sources {
		wg.Add(1)
		go func(src adapters.PriceSource) {
			defer wg.Done()
			reqCtx, cancel := context.WithTimeout(ctx, s.opts.PerSourceTimeout)
			defer cancel()

			started := s.now()
			quote, err := src.Quote(reqCtx, symbol)
			observability.OracleFetchDuration.WithLabelValues(src.Name()).Observe(time.Since(started).Seconds())
			if err != nil {
				observability.OracleSourcesDropped.WithLabelValues(src.Name()).Inc()
				logrus.WithError(err).WithFields(logrus.Fields{"source": src.Name(), "symbol": symbol}).Warn("price source dropped")
				return
			}
			quotesCh <- quote
		}(src)
	}
	wg.Wait()
	close(quotesCh)

	quotes := make([]domain.PriceQuote, 0, len(s.sources))
	for q := range quotesCh {
		quotes = append(quotes, q)
	}
	return quotes
}

func (s *Service) aggregate(quotes []domain.PriceQuote) (domain.AggregatedPrice, error) {
	now := s.now()

	valid := quotes[:0]
	for _, q := range quotes {
		if q.Price <= 0 {
			continue
		}
		if now.Sub(q.Timestamp) > s.opts.MaxQuoteAge {
			logrus.WithFields(logrus.Fields{"source": q.Source, "age": now.Sub(q.Timestamp)}).Warn("stale quote excluded")
			continue
		}
		valid = append(valid, q)
	}

	if len(valid) < s.opts.MinSources {
		return domain.AggregatedPrice{}, fmt.Errorf("%w: got %d, need %d", domain.ErrInsufficientSources, len(valid), s.opts.MinSources)
	}

	prices := make([]float64, len(valid))
	for i, q := range valid {
		prices[i] = q.Price
	}
	sort.Float64s(prices)

	median := medianOf(prices)

	maxDeviation := 0.0
	for _, p := range prices {
		if d := math.Abs(p-median) / median; d > maxDeviation {
			maxDeviation = d
		}
	}
	if maxDeviation > s.opts.MaxDeviation {
		return domain.AggregatedPrice{}, fmt.Errorf("%w: %.4f > %.4f", domain.ErrPriceDeviationTooHigh, maxDeviation, s.opts.MaxDeviation)
	}

	return domain.AggregatedPrice{
		Price:        median,
		Timestamp:    now,
		SourcesUsed:  len(valid),
		MaxDeviation: maxDeviation,
	}, nil
}

// medianOf expects a sorted slice. Even count averages the two middle values
// so a single outlier source cannot drag the result.
func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
