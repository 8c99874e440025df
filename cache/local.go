package cache

import (
	"time"

	"short-link-service/config"
	"short-link-service/model"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
)

// projectionCost is the admission cost charged per cached projection,
// a rough upper bound on its in-memory size.
const projectionCost = 1024

// Local is a small in-process ristretto cache in front of Redis. It only
// holds projections and uses a much shorter TTL than Redis, bounding how
// long a deleted link can outlive its synchronous Redis invalidation on
// other replicas.
type Local struct {
	client *ristretto.Cache
	ttl    time.Duration
}

// NewLocal builds the hot cache, or returns nil when disabled.
func NewLocal(cfg config.CacheConfig) (*Local, error) {
	if !cfg.LocalEnabled {
		return nil, nil
	}

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.LocalCounterSize),
		MaxCost:     int64(cfg.LocalMaxSizeMB) * 1024 * 1024,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("max_size_mb", cfg.LocalMaxSizeMB).
		Int("ttl_seconds", cfg.LocalTTLSeconds).
		Msg("Local hot cache initialized")

	return &Local{
		client: client,
		ttl:    time.Duration(cfg.LocalTTLSeconds) * time.Second,
	}, nil
}

func (l *Local) Get(shortCode string) *model.Projection {
	if l == nil || l.client == nil {
		return nil
	}
	v, found := l.client.Get(shortCode)
	if !found {
		return nil
	}
	p, ok := v.(*model.Projection)
	if !ok {
		return nil
	}
	return p
}

func (l *Local) Put(shortCode string, p *model.Projection) {
	if l == nil || l.client == nil {
		return
	}
	l.client.SetWithTTL(shortCode, p, projectionCost, l.ttl)
}

func (l *Local) Delete(shortCode string) {
	if l == nil || l.client == nil {
		return
	}
	l.client.Del(shortCode)
}

func (l *Local) Close() {
	if l == nil || l.client == nil {
		return
	}
	l.client.Close()
}
