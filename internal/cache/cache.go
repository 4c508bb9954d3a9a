package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"wordvault-go/internal/word"
)

// SearchCache keeps public word search results in Redis, one hash per word
// keyed by nickname, with a TTL. A miss just falls through to the store.
type SearchCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(url string, ttl time.Duration, logger *slog.Logger) (*SearchCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &SearchCache{
		client: redis.NewClient(opts),
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (c *SearchCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func searchKey(w string) string {
	return "searched_word:" + w
}

// Get returns the cached hits for a word. ok is false on a miss; cache
// errors are logged and treated as misses.
func (c *SearchCache) Get(ctx context.Context, w string) ([]word.PublicWord, bool) {
	fields, err := c.client.HGetAll(ctx, searchKey(w)).Result()
	if err != nil {
		c.logger.Warn("search cache read", "word", w, "error", err)
		return nil, false
	}
	if len(fields) == 0 {
		return nil, false
	}

	hits := make([]word.PublicWord, 0, len(fields))
	for nickname, encoded := range fields {
		var hit word.PublicWord
		if err := json.Unmarshal([]byte(encoded), &hit); err != nil {
			c.logger.Warn("search cache decode", "word", w, "nickname", nickname, "error", err)
			return nil, false
		}
		hits = append(hits, hit)
	}
	return hits, true
}

// Set stores the hits for a word with the configured TTL. Nothing is written
// for an empty result.
func (c *SearchCache) Set(ctx context.Context, w string, hits []word.PublicWord) error {
	if len(hits) == 0 {
		return nil
	}

	mapping := make(map[string]string, len(hits))
	for _, hit := range hits {
		encoded, err := json.Marshal(hit)
		if err != nil {
			return fmt.Errorf("encode search hit: %w", err)
		}
		mapping[hit.Nickname] = string(encoded)
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, searchKey(w), mapping)
	pipe.Expire(ctx, searchKey(w), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write search cache for %q: %w", w, err)
	}
	return nil
}

func (c *SearchCache) Close() error {
	return c.client.Close()
}
