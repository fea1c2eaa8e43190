package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jalvarez-dev/farmline-storefront/pkg/redis"
)

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RedisPersister stores the cart document under a single namespaced durable
// key, guest-cart style. No TTL: the mirror survives until replaced.
type RedisPersister struct {
	kv  kvStore
	key string
}

func NewRedisPersister(kv kvStore, key string) (*RedisPersister, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if key == "" {
		return nil, fmt.Errorf("cart key required")
	}
	return &RedisPersister{kv: kv, key: key}, nil
}

func (r *RedisPersister) Load(ctx context.Context) ([]Line, error) {
	raw, err := r.kv.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cart key: %w", err)
	}
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decoding cart document: %w", err)
	}
	return doc.lines(), nil
}

func (r *RedisPersister) Save(ctx context.Context, lines []Line) error {
	payload, err := json.Marshal(toDocument(lines))
	if err != nil {
		return fmt.Errorf("encoding cart document: %w", err)
	}
	if err := r.kv.Set(ctx, r.key, string(payload), 0); err != nil {
		return fmt.Errorf("writing cart key: %w", err)
	}
	return nil
}
