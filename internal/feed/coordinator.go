package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/state"
	"github.com/2beens/liftsync/internal/telemetry/metrics"
	"github.com/2beens/liftsync/internal/telemetry/tracing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const DefaultInterval = 30 * time.Second

type source interface {
	GetFriendsFeed(ctx context.Context, userID string) ([]model.FeedItem, error)
}

// Coordinator periodically pulls the friends feed and replaces it in the
// container. It only ever writes FriendsFeed, which is never synced outbound.
type Coordinator struct {
	userID        string
	source        source
	container     *state.Container
	cache         *Cache
	interval      time.Duration
	authenticated func() bool
	metrics       *metrics.Manager
}

func NewCoordinator(
	userID string,
	source source,
	container *state.Container,
	cache *Cache,
	interval time.Duration,
	authenticated func() bool,
	metricsManager *metrics.Manager,
) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator{
		userID:        userID,
		source:        source,
		container:     container,
		cache:         cache,
		interval:      interval,
		authenticated: authenticated,
		metrics:       metricsManager,
	}
}

// Run refreshes immediately and then on every tick, until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Debugf("feed coordinator for %s stopped", c.userID)
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Coordinator) tick(ctx context.Context) {
	if !c.authenticated() {
		log.Tracef("feed refresh skipped, %s not authenticated", c.userID)
		c.observe("skipped")
		return
	}
	if err := c.Refresh(ctx); err != nil {
		log.Errorf("feed refresh for %s: %s", c.userID, err)
	}
}

// Refresh fetches the feed once and replaces FriendsFeed with it.
// On failure the current feed is left untouched.
func (c *Coordinator) Refresh(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "feed.refresh")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	items, err := c.source.GetFriendsFeed(ctx, c.userID)
	if err != nil {
		c.observe("error")
		return fmt.Errorf("get friends feed: %w", err)
	}

	if err := c.cache.Set(c.userID, items); err != nil {
		log.Warnf("feed cache for %s: %s", c.userID, err)
	}

	c.container.Apply(func(s model.AppState) model.AppState {
		s.FriendsFeed = items
		return s
	})
	c.observe("ok")
	log.Tracef("feed for %s refreshed, %d items", c.userID, len(items))
	return nil
}

// Latest returns the cached feed while it is fresh, falling back to the
// container's copy otherwise.
func (c *Coordinator) Latest() []model.FeedItem {
	if items, err := c.cache.Get(c.userID); err == nil {
		return items
	}
	return c.container.Snapshot().FriendsFeed
}

func (c *Coordinator) observe(result string) {
	c.metrics.CounterFeedRefreshes.With(prometheus.Labels{"result": result}).Inc()
}
