package service

import (
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// ResponseCache keeps whole rendered listing pages for a short window so a
// repeat of the same request skips the database query and every metadata
// fetch. Entries expire on their own, eviction is lazy.
type ResponseCache struct {
	c *ttlcache.Cache
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	c := ttlcache.NewCache()
	c.SetTTL(ttl)
	c.SkipTTLExtensionOnHit(true)

	return &ResponseCache{c: c}
}

func pageKey(owner, mode, position string, perPage int) string {
	return fmt.Sprintf("%s|%s|%s|%d", owner, mode, position, perPage)
}

func (r *ResponseCache) Get(owner, mode, position string, perPage int) (*Page, bool) {
	v, err := r.c.Get(pageKey(owner, mode, position, perPage))
	if err != nil {
		return nil, false
	}

	page, ok := v.(*Page)
	return page, ok
}

func (r *ResponseCache) Set(owner, mode, position string, perPage int, page *Page) {
	r.c.Set(pageKey(owner, mode, position, perPage), page)
}
