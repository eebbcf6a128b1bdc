package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/agenthands/reviewgraph/internal/llm"
)

// Redis stores each session as a capped list of JSON messages.
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	limit     int
}

type RedisOption func(*Redis)

// WithTTL sets how long an idle session is kept.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.keyPrefix = prefix
	}
}

// WithLimit caps the number of messages kept per session.
func WithLimit(limit int) RedisOption {
	return func(r *Redis) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

func NewRedis(client *redis.Client, options ...RedisOption) *Redis {
	r := &Redis{
		client:    client,
		ttl:       24 * time.Hour,
		keyPrefix: "reviewgraph:chat:",
		limit:     DefaultLimit,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *Redis) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

func (r *Redis) Messages(ctx context.Context, sessionID string) ([]llm.Message, error) {
	raw, err := r.client.LRange(ctx, r.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	out := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var msg llm.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message of session %s: %w", sessionID, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *Redis) Append(ctx context.Context, sessionID string, messages ...llm.Message) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	key := r.key(sessionID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-r.limit), -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to session %s: %w", sessionID, err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", sessionID, err)
	}
	return nil
}
