package precision

import (
	"context"
	"fmt"
	"sync"
	"time"

	"futuresexecutor/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// MetadataSource fetches symbol filters from the exchange.
type MetadataSource interface {
	GetSymbolMetadata(ctx context.Context, symbol string) (*model.SymbolMetadata, error)
}

type cachedMetadata struct {
	meta      model.SymbolMetadata
	fetchedAt time.Time
}

// Engine builds Rounders from exchange metadata. Filters rarely change, so
// they are kept for ttl; when a refresh fails the stale entry is used.
type Engine struct {
	source MetadataSource
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedMetadata
}

// NewEngine returns an Engine. A ttl of zero disables caching.
func NewEngine(source MetadataSource, ttl time.Duration) *Engine {
	return &Engine{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cachedMetadata),
	}
}

func (e *Engine) Rounders(ctx context.Context, symbol string) (*Rounders, error) {
	meta, err := e.metadata(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return NewRounders(meta), nil
}

func (e *Engine) MinNotional(ctx context.Context, symbol string) (decimal.Decimal, error) {
	meta, err := e.metadata(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return meta.MinNotional, nil
}

func (e *Engine) Invalidate(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cache, symbol)
}

func (e *Engine) metadata(ctx context.Context, symbol string) (model.SymbolMetadata, error) {
	e.mu.Lock()
	cached, ok := e.cache[symbol]
	e.mu.Unlock()

	if ok && e.ttl > 0 && e.now().Sub(cached.fetchedAt) < e.ttl {
		return cached.meta, nil
	}

	fresh, err := e.source.GetSymbolMetadata(ctx, symbol)
	if err != nil {
		if ok {
			logger.WithFields(map[string]interface{}{
				"symbol":    symbol,
				"fetchedAt": cached.fetchedAt,
			}).WithError(err).Warn("symbol metadata refresh failed, using cached filters")
			return cached.meta, nil
		}
		return model.SymbolMetadata{}, fmt.Errorf("symbol metadata for %s: %w", symbol, err)
	}
	if fresh == nil {
		return model.SymbolMetadata{}, fmt.Errorf("symbol metadata for %s: empty response", symbol)
	}

	if e.ttl > 0 {
		e.mu.Lock()
		e.cache[symbol] = cachedMetadata{meta: *fresh, fetchedAt: e.now()}
		e.mu.Unlock()
	}
	return *fresh, nil
}
