package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/liftsync/internal/model"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

var ErrNotCached = errors.New("feed: not cached or expired")

const defaultCacheSize = 8 * 1024 * 1024

// Cache keeps the last fetched feed per user for as long as it is considered fresh.
type Cache struct {
	cache *freecache.Cache
	ttl   time.Duration
}

func NewCache(sizeBytes int, ttl time.Duration) *Cache {
	if sizeBytes <= 0 {
		sizeBytes = defaultCacheSize
	}
	return &Cache{
		cache: freecache.NewCache(sizeBytes),
		ttl:   ttl,
	}
}

func cacheKey(userID string) []byte {
	return []byte(fmt.Sprintf("feed::%s", userID))
}

func (c *Cache) Set(userID string, items []model.FeedItem) error {
	itemsBytes, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal feed: %w", err)
	}
	expire := int(c.ttl.Seconds())
	if expire < 1 {
		expire = 1
	}
	if err := c.cache.Set(cacheKey(userID), itemsBytes, expire); err != nil {
		return fmt.Errorf("set feed cache: %w", err)
	}
	return nil
}

func (c *Cache) Get(userID string) ([]model.FeedItem, error) {
	itemsBytes, err := c.cache.Get(cacheKey(userID))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, ErrNotCached
		}
		return nil, err
	}

	var items []model.FeedItem
	if err := json.Unmarshal(itemsBytes, &items); err != nil {
		log.Errorf("failed to unmarshal cached feed for %s: %s", userID, err)
		c.cache.Del(cacheKey(userID))
		return nil, ErrNotCached
	}
	return items, nil
}
