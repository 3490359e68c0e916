package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"stablevault/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const wsReconnectDelay = 5 * time.Second

// BinanceStreamSource keeps a websocket subscription to the Binance
// mini-ticker streams and serves the most recent observation per symbol.
// Quote never blocks on the network; staleness of the cached observation is
// the aggregator's problem, which is why the quote carries the time it was
// received rather than the time it was asked for.
type BinanceStreamSource struct {
	url     string
	symbols []string

	mu     sync.RWMutex
	latest map[string]domain.PriceQuote

	now func() time.Time
}

// NewBinanceStreamSource prepares a streaming source for the feed symbols
// ("BTC", "ETH", ...). Run must be started for quotes to appear.
func NewBinanceStreamSource(wsURL string, symbols []string) *BinanceStreamSource {
	return &BinanceStreamSource{
		url:     wsURL,
		symbols: symbols,
		latest:  make(map[string]domain.PriceQuote),
		now:     time.Now,
	}
}

func (s *BinanceStreamSource) Name() string { return "binance-ws" }

// Quote returns the last observation received from the stream.
func (s *BinanceStreamSource) Quote(_ context.Context, symbol string) (domain.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.latest[symbol]
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("binance-ws: no observation yet for symbol %q", symbol)
	}
	return q, nil
}

// Run maintains the websocket connection until the context is canceled,
// reconnecting after read or dial failures.
func (s *BinanceStreamSource) Run(ctx context.Context) {
	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, strings.ToLower(sym)+"usdt@miniTicker")
	}
	url := s.url + "/stream?streams=" + strings.Join(streams, "/")

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			logrus.WithError(err).WithField("url", url).Warn("failed to connect to binance websocket")
			if waitForReconnect(ctx, wsReconnectDelay) {
				return
			}
			continue
		}
		logrus.WithField("streams", streams).Info("binance websocket connected")

		if err := s.readLoop(ctx, conn); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Warn("binance websocket read loop ended")
		}
		conn.Close()

		if waitForReconnect(ctx, wsReconnectDelay) {
			return
		}
	}
}

type miniTickerEnvelope struct {
	Data struct {
		Symbol string `json:"s"`
		Close  string `json:"c"`
	} `json:"data"`
}

func (s *BinanceStreamSource) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env miniTickerEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			logrus.WithError(err).Debug("skipping malformed binance stream message")
			continue
		}
		symbol := strings.TrimSuffix(env.Data.Symbol, "USDT")
		if symbol == "" || env.Data.Close == "" {
			continue
		}
		price, err := strconv.ParseFloat(env.Data.Close, 64)
		if err != nil || price <= 0 {
			continue
		}

		s.mu.Lock()
		s.latest[symbol] = domain.PriceQuote{Price: price, Timestamp: s.now(), Source: s.Name()}
		s.mu.Unlock()
	}
}

func waitForReconnect(ctx context.Context, delay time.Duration) bool {
	select {
	case <-ctx.Done():
		return true
	case <-time.After(delay):
		return false
	}
}
