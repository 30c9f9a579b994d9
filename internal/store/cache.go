package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/sonolens/api/internal/model"
)

const genreSeedsKey = "spotify:genre-seeds"

// Cache memoizes image analyses and the genre-seed list in redis.
// A nil redis client turns every lookup into a miss and every write into a no-op.
type Cache struct {
	redis         *redis.Client
	analysisTTL   time.Duration
	genreSeedsTTL time.Duration
	logger        *log.Logger
}

func NewCache(redisClient *redis.Client, analysisTTL, genreSeedsTTL time.Duration, logger *log.Logger) *Cache {
	return &Cache{
		redis:         redisClient,
		analysisTTL:   analysisTTL,
		genreSeedsTTL: genreSeedsTTL,
		logger:        logger.With("component", "cache"),
	}
}

// Analysis returns a cached analysis for the image hash
func (c *Cache) Analysis(ctx context.Context, imageHash string) (*model.MoodAnalysis, bool) {
	var analysis model.MoodAnalysis
	if !c.get(ctx, "analysis:"+imageHash, &analysis) {
		return nil, false
	}
	return &analysis, true
}

// SetAnalysis caches an analysis under the image hash
func (c *Cache) SetAnalysis(ctx context.Context, imageHash string, analysis *model.MoodAnalysis) {
	c.set(ctx, "analysis:"+imageHash, analysis, c.analysisTTL)
}

// GenreSeeds returns the cached genre-seed list
func (c *Cache) GenreSeeds(ctx context.Context) ([]string, bool) {
	var genres []string
	if !c.get(ctx, genreSeedsKey, &genres) || len(genres) == 0 {
		return nil, false
	}
	return genres, true
}

func (c *Cache) SetGenreSeeds(ctx context.Context, genres []string) {
	c.set(ctx, genreSeedsKey, genres, c.genreSeedsTTL)
}

func (c *Cache) get(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("dropping corrupt cache entry", "key", key, "err", err)
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "err", err)
		return
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
}
