// Package widgets caches widget definitions fetched from the backend.
// Definitions change rarely compared to widget instance content, so a
// TTL cache in front of the REST client keeps rotation cycles from
// re-fetching the same definition on every grid change.
package widgets

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/dashwall/dashwall/internal/logger"
	"github.com/dashwall/dashwall/internal/models"
	"github.com/dashwall/dashwall/pkg/backend"
)

// DefaultTTL is how long a cached definition stays fresh
const DefaultTTL = 15 * time.Minute

// Cache serves widget definitions, fetching through the backend client
// on a miss
type Cache struct {
	client backend.Client
	log    logger.Logger
	ttl    time.Duration
	cache  *ttlcache.Cache[int, *models.Widget]
}

// NewCache creates a definition cache with the given TTL. Pass zero to
// use DefaultTTL.
func NewCache(client backend.Client, ttl time.Duration, log logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache := ttlcache.New[int, *models.Widget](
		ttlcache.WithTTL[int, *models.Widget](ttl),
	)
	go cache.Start()
	return &Cache{
		client: client,
		log:    log,
		ttl:    ttl,
		cache:  cache,
	}
}

// Get returns the definition for a widget id, from cache when fresh
func (c *Cache) Get(ctx context.Context, id int) (*models.Widget, error) {
	if item := c.cache.Get(id, ttlcache.WithDisableTouchOnHit[int, *models.Widget]()); item != nil {
		return item.Value(), nil
	}
	c.log.Debug("Widget definition cache miss", "widget_id", id)
	widget, err := c.client.GetWidget(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(id, widget, c.ttl)
	return widget, nil
}

// Invalidate drops one definition; the next Get re-fetches it
func (c *Cache) Invalidate(id int) {
	c.cache.Delete(id)
}

// Stop halts the background expiry loop
func (c *Cache) Stop() {
	c.cache.Stop()
}
