package devotional

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// DocumentCache stores sanitized documents keyed by passage and question count.
type DocumentCache interface {
	Get(ctx context.Context, req GenerationRequest) (*StudyDocument, error)
	Set(ctx context.Context, req GenerationRequest, doc *StudyDocument) error
	Delete(ctx context.Context, req GenerationRequest) error
}

// redisCommands is the part of *redis.Client the cache uses.
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type documentCache struct {
	client redisCommands
	ttl    time.Duration
}

// NewDocumentCache creates a redis-backed document cache
func NewDocumentCache(client *redis.Client, ttl time.Duration) DocumentCache {
	return newDocumentCache(client, ttl)
}

func newDocumentCache(client redisCommands, ttl time.Duration) *documentCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &documentCache{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func cacheKey(req GenerationRequest) string {
	passage := strings.ToLower(strings.Join(strings.Fields(req.Passage), " "))
	return fmt.Sprintf("study:%d:%s", req.NumQuestions, passage)
}

func (c *documentCache) Get(ctx context.Context, req GenerationRequest) (*StudyDocument, error) {
	data, err := c.client.Get(ctx, cacheKey(req)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached study: %w", err)
	}
	var doc StudyDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode cached study: %w", err)
	}
	return &doc, nil
}

func (c *documentCache) Set(ctx context.Context, req GenerationRequest, doc *StudyDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(req), data, c.ttl).Err()
}

func (c *documentCache) Delete(ctx context.Context, req GenerationRequest) error {
	return c.client.Del(ctx, cacheKey(req)).Err()
}
