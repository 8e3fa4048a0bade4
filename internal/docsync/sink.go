package docsync

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// CacheSink keeps the last persisted code per document in memory
type CacheSink struct {
	items *cache.Cache
}

func NewCacheSink(ttl time.Duration) *CacheSink {
	return &CacheSink{items: cache.New(ttl, 2*ttl)}
}

func (c *CacheSink) SetActiveCode(docID, code string) {
	c.items.Set(docID, code, cache.DefaultExpiration)
}

// ActiveCode returns the cached code for docID
func (c *CacheSink) ActiveCode(docID string) (string, bool) {
	v, ok := c.items.Get(docID)
	if !ok {
		return "", false
	}
	code, ok := v.(string)
	return code, ok
}
