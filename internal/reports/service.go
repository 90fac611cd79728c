package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	keyStockSummary = "reports:stock_summary"
	keyMovements    = "reports:movements"
	keyLorries      = "reports:lorries"
	keyTopProducts  = "reports:top_products"
)

type Service struct {
	logger  *slog.Logger
	repo    Repository
	cache   *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	printer *message.Printer
}

func NewService(logger *slog.Logger, repo Repository, cache *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		logger:  logger,
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		printer: message.NewPrinter(language.English),
	}
}

// StockSummary returns the warehouse position, cached for the configured
// TTL. Concurrent cache misses collapse into one database query.
func (s *Service) StockSummary(ctx context.Context) (StockSummary, error) {
	if cached, ok := getCached[StockSummary](ctx, s, keyStockSummary); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(keyStockSummary, func() (any, error) {
		summary, err := s.repo.StockSummary(ctx)
		if err != nil {
			return StockSummary{}, err
		}
		summary.DisplayBottles = s.printer.Sprintf("%d", summary.TotalBottles)
		summary.DisplayValue = s.printer.Sprintf("%.2f", summary.TotalValue)
		s.putCached(ctx, keyStockSummary, summary)
		return summary, nil
	})
	if err != nil {
		return StockSummary{}, err
	}
	return v.(StockSummary), nil
}

// MovementTotals aggregates the transaction log for [from, to).
func (s *Service) MovementTotals(ctx context.Context, from, to time.Time) ([]MovementTotals, error) {
	key := fmt.Sprintf("%s:%d:%d", keyMovements, from.Unix(), to.Unix())
	if cached, ok := getCached[[]MovementTotals](ctx, s, key); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		totals, err := s.repo.MovementTotals(ctx, from, to)
		if err != nil {
			return nil, err
		}
		s.putCached(ctx, key, totals)
		return totals, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]MovementTotals), nil
}

// LorryActivity counts documents per lorry for [from, to).
func (s *Service) LorryActivity(ctx context.Context, from, to time.Time) ([]LorryActivity, error) {
	key := fmt.Sprintf("%s:%d:%d", keyLorries, from.Unix(), to.Unix())
	if cached, ok := getCached[[]LorryActivity](ctx, s, key); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		activity, err := s.repo.LorryActivity(ctx, from, to)
		if err != nil {
			return nil, err
		}
		s.putCached(ctx, key, activity)
		return activity, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]LorryActivity), nil
}

// TopProducts ranks products by bottles loaded out during [from, to).
func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductLoadTotals, error) {
	if limit <= 0 {
		limit = 10
	}
	key := fmt.Sprintf("%s:%d:%d:%d", keyTopProducts, from.Unix(), to.Unix(), limit)
	if cached, ok := getCached[[]ProductLoadTotals](ctx, s, key); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		top, err := s.repo.TopProducts(ctx, from, to, limit)
		if err != nil {
			return nil, err
		}
		s.putCached(ctx, key, top)
		return top, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ProductLoadTotals), nil
}

// Warm precomputes the stock summary so the first dashboard hit is fast.
// The scheduler calls this periodically.
func (s *Service) Warm(ctx context.Context) error {
	if s.cache != nil {
		if err := s.cache.Del(ctx, keyStockSummary).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
	}
	_, err := s.StockSummary(ctx)
	return err
}

func getCached[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var zero T
	if s.cache == nil {
		return zero, false
	}
	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("report cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return zero, false
	}
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return zero, false
	}
	return out, true
}

func (s *Service) putCached(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.logger.Warn("report cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}
