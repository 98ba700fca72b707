// Package cache stores model-derived analysis results so that re-running a
// batch over the same news does not call the model again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/phuslu/log"
	"github.com/redis/go-redis/v9"

	"github.com/seenimoa/newsimpact/internal/config"
	"github.com/seenimoa/newsimpact/internal/logging"
	"github.com/seenimoa/newsimpact/pkg/models"
)

// Store is a byte-oriented key/value store with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// NewStore returns the configured store: Redis when redis_url parses and
// answers a ping, otherwise an in-memory store. A disabled cache yields nil.
func NewStore(cfg config.CacheConfig, logger *log.Logger) Store {
	if !cfg.Enabled {
		return nil
	}
	logger = logging.OrNop(logger)
	if cfg.RedisURL == "" {
		return NewMemory()
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid redis_url, using in-memory cache")
		return NewMemory()
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", opt.Addr).Msg("redis unreachable, using in-memory cache")
		client.Close()
		return NewMemory()
	}
	logger.Info().Str("addr", opt.Addr).Msg("using redis result cache")
	return NewRedis(client)
}

// Results caches AnalysisResults keyed by model and news content.
// A nil *Results is valid and caches nothing.
type Results struct {
	store  Store
	ttl    time.Duration
	logger *log.Logger
}

// NewResults wraps store. It returns nil when store is nil.
func NewResults(store Store, ttl time.Duration, logger *log.Logger) *Results {
	if store == nil {
		return nil
	}
	return &Results{store: store, ttl: ttl, logger: logging.OrNop(logger)}
}

// Key derives the cache key of item analyzed by model.
func Key(model string, item models.NewsItem) string {
	h := sha256.New()
	for _, part := range []string{model, item.Title, item.Content, item.Source} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "newsimpact:analysis:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached result. Undecodable or invalid entries are misses.
func (r *Results) Get(ctx context.Context, model string, item models.NewsItem) (models.AnalysisResult, bool) {
	if r == nil {
		return models.AnalysisResult{}, false
	}
	data, ok := r.store.Get(ctx, Key(model, item))
	if !ok {
		return models.AnalysisResult{}, false
	}
	var res models.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil || res.Validate() != nil {
		r.logger.Debug().Str("title", item.Title).Msg("discarding unusable cache entry")
		return models.AnalysisResult{}, false
	}
	return res, true
}

// Put stores a model-derived result. Fallback results are never cached so a
// later run can still reach the model. Failures are logged only.
func (r *Results) Put(ctx context.Context, model string, item models.NewsItem, res models.AnalysisResult) {
	if r == nil || res.IsFallback() {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		r.logger.Warn().Err(err).Str("title", item.Title).Msg("encode cache entry")
		return
	}
	if err := r.store.Set(ctx, Key(model, item), data, r.ttl); err != nil {
		r.logger.Warn().Err(err).Str("title", item.Title).Msg("write cache entry")
	}
}
