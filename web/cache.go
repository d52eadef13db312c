package web

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nasermirzaei89/gazette/discuss"
)

const (
	defaultThreadCacheSize = 128
	defaultThreadCacheTTL  = time.Minute
)

type cachedThread struct {
	thread    *discuss.Thread
	expiresAt time.Time
}

// threadCache holds the rendered comment forest per article for a short while.
// Every write to an article's comments bumps its generation, so a thread listed
// before the write is never cached after it.
type threadCache struct {
	mu          sync.Mutex
	lruCache    *lru.Cache[string, cachedThread]
	generations map[string]uint64
	ttl         time.Duration
	now         func() time.Time
}

func newThreadCache(size int, ttl time.Duration) (*threadCache, error) {
	if size <= 0 {
		size = defaultThreadCacheSize
	}

	if ttl <= 0 {
		ttl = defaultThreadCacheTTL
	}

	l, err := lru.New[string, cachedThread](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}

	return &threadCache{
		lruCache:    l,
		generations: make(map[string]uint64),
		ttl:         ttl,
		now:         time.Now,
	}, nil
}

func (c *threadCache) get(articleID string) (*discuss.Thread, bool) {
	val, ok := c.lruCache.Get(articleID)
	if !ok {
		return nil, false
	}

	if c.now().After(val.expiresAt) {
		c.lruCache.Remove(articleID)

		return nil, false
	}

	return val.thread, true
}

func (c *threadCache) generation(articleID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generations[articleID]
}

func (c *threadCache) set(thread *discuss.Thread) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.add(thread)
}

// setIfCurrent caches the thread unless the article was written to after gen was read.
func (c *threadCache) setIfCurrent(thread *discuss.Thread, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[thread.ArticleID()] != gen {
		return false
	}

	c.add(thread)

	return true
}

func (c *threadCache) add(thread *discuss.Thread) {
	c.lruCache.Add(thread.ArticleID(), cachedThread{
		thread:    thread,
		expiresAt: c.now().Add(c.ttl),
	})
}

// remove drops the cached thread without touching the generation.
func (c *threadCache) remove(articleID string) {
	c.lruCache.Remove(articleID)
}

// invalidate drops the cached thread and fences off loads that started before.
func (c *threadCache) invalidate(articleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[articleID]++
	c.lruCache.Remove(articleID)
}

// apply inserts a freshly created comment into the cached thread.
// A thread that cannot take the comment is dropped and rebuilt on the next read.
func (c *threadCache) apply(comment *discuss.Comment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[comment.ArticleID]++

	thread, ok := c.get(comment.ArticleID)
	if !ok {
		return
	}

	if !thread.Insert(comment) {
		c.lruCache.Remove(comment.ArticleID)
	}
}
