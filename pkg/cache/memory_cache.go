package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache implements an in-memory cache with LRU eviction. It is the
// default backend: outcomes live for the duration of the process, which is
// enough to memoize within a single search run.
type MemoryCache struct {
	config    CacheConfig
	mu        sync.RWMutex
	entries   map[string]*memoryCacheEntry
	lruList   *lruList
	stats     CacheStats
	closeChan chan struct{}
	cleanupWG sync.WaitGroup
}

type memoryCacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	createdAt time.Time
	size      int64
	element   *lruElement
}

// Intrusive doubly-linked list with sentinel head and tail. Recency order
// runs front to back.
type lruElement struct {
	key  string
	prev *lruElement
	next *lruElement
}

type lruList struct {
	head *lruElement
	tail *lruElement
	size int
}

func newLRUList() *lruList {
	head := &lruElement{}
	tail := &lruElement{}
	head.next = tail
	tail.prev = head
	return &lruList{head: head, tail: tail}
}

func (l *lruList) moveToFront(elem *lruElement) {
	if elem.prev == l.head {
		return // Already at front
	}
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	elem.prev = l.head
	elem.next = l.head.next
	l.head.next.prev = elem
	l.head.next = elem
}

func (l *lruList) pushFront(key string) *lruElement {
	elem := &lruElement{key: key}
	elem.prev = l.head
	elem.next = l.head.next
	l.head.next.prev = elem
	l.head.next = elem
	l.size++
	return elem
}

func (l *lruList) removeElement(elem *lruElement) {
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	l.size--
}

func (l *lruList) back() *lruElement {
	if l.tail.prev == l.head {
		return nil
	}
	return l.tail.prev
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache(config CacheConfig) (*MemoryCache, error) {
	if config.MemoryConfig.CleanupInterval == 0 {
		config.MemoryConfig.CleanupInterval = time.Minute
	}

	cache := &MemoryCache{
		config:    config,
		entries:   make(map[string]*memoryCacheEntry),
		lruList:   newLRUList(),
		closeChan: make(chan struct{}),
		stats: CacheStats{
			MaxSize: config.MaxSize,
		},
	}

	cache.cleanupWG.Add(1)
	go cache.cleanupRoutine()

	return cache, nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, nil
	}

	// Expired entries read as misses and are dropped on the spot.
	if entry.expiresAt.After(time.Time{}) && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		c.lruList.removeElement(entry.element)
		atomic.AddInt64(&c.stats.Size, -entry.size)
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, nil
	}

	c.lruList.moveToFront(entry.element)

	atomic.AddInt64(&c.stats.Hits, 1)
	c.stats.LastAccess = time.Now() // Safe: protected by c.mu.Lock

	return entry.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	size := int64(len(value))

	if c.config.MaxSize > 0 && size > c.config.MaxSize {
		return fmt.Errorf("value size %d exceeds max cache size %d", size, c.config.MaxSize)
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	} else if c.config.DefaultTTL > 0 {
		expiresAt = time.Now().Add(c.config.DefaultTTL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.entries[key]; exists {
		atomic.AddInt64(&c.stats.Size, size-existing.size)
		existing.value = value
		existing.size = size
		existing.expiresAt = expiresAt
		c.lruList.moveToFront(existing.element)
	} else {
		currentSize := atomic.LoadInt64(&c.stats.Size)
		if c.config.MaxSize > 0 && currentSize+size > c.config.MaxSize {
			c.evictLRU(size)
		}

		element := c.lruList.pushFront(key)
		c.entries[key] = &memoryCacheEntry{
			key:       key,
			value:     value,
			expiresAt: expiresAt,
			createdAt: time.Now(),
			size:      size,
			element:   element,
		}
		atomic.AddInt64(&c.stats.Size, size)
	}

	atomic.AddInt64(&c.stats.Sets, 1)
	c.stats.LastAccess = time.Now() // Safe: protected by c.mu.Lock

	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[key]; exists {
		delete(c.entries, key)
		c.lruList.removeElement(entry.element)
		atomic.AddInt64(&c.stats.Size, -entry.size)
		atomic.AddInt64(&c.stats.Deletes, 1)
	}

	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*memoryCacheEntry)
	c.lruList = newLRUList()

	atomic.StoreInt64(&c.stats.Hits, 0)
	atomic.StoreInt64(&c.stats.Misses, 0)
	atomic.StoreInt64(&c.stats.Sets, 0)
	atomic.StoreInt64(&c.stats.Deletes, 0)
	atomic.StoreInt64(&c.stats.Size, 0)

	return nil
}

func (c *MemoryCache) Stats() CacheStats {
	c.mu.RLock()
	lastAccess := c.stats.LastAccess
	c.mu.RUnlock()

	return CacheStats{
		Hits:       atomic.LoadInt64(&c.stats.Hits),
		Misses:     atomic.LoadInt64(&c.stats.Misses),
		Sets:       atomic.LoadInt64(&c.stats.Sets),
		Deletes:    atomic.LoadInt64(&c.stats.Deletes),
		Size:       atomic.LoadInt64(&c.stats.Size),
		MaxSize:    c.config.MaxSize,
		LastAccess: lastAccess,
	}
}

func (c *MemoryCache) Close() error {
	close(c.closeChan)
	c.cleanupWG.Wait()
	return nil
}

// evictLRU removes entries from the back of the recency list until the new
// value fits. Caller holds c.mu.
func (c *MemoryCache) evictLRU(neededSpace int64) {
	currentSize := atomic.LoadInt64(&c.stats.Size)
	targetSize := c.config.MaxSize - neededSpace

	for currentSize > targetSize && c.lruList.size > 0 {
		elem := c.lruList.back()
		if elem == nil {
			break
		}

		if entry, exists := c.entries[elem.key]; exists {
			delete(c.entries, elem.key)
			c.lruList.removeElement(elem)
			currentSize -= entry.size
			atomic.AddInt64(&c.stats.Size, -entry.size)
		}
	}
}

func (c *MemoryCache) cleanupRoutine() {
	defer c.cleanupWG.Done()

	ticker := time.NewTicker(c.config.MemoryConfig.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			c.cleanupExpired()
		}
	}
}

func (c *MemoryCache) cleanupExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var keysToDelete []string
	for key, entry := range c.entries {
		if entry.expiresAt.After(time.Time{}) && now.After(entry.expiresAt) {
			keysToDelete = append(keysToDelete, key)
		}
	}

	for _, key := range keysToDelete {
		if entry, exists := c.entries[key]; exists {
			if entry.expiresAt.After(time.Time{}) && now.After(entry.expiresAt) {
				delete(c.entries, key)
				c.lruList.removeElement(entry.element)
				atomic.AddInt64(&c.stats.Size, -entry.size)
			}
		}
	}
}

// Export exports cache entries for backup/migration.
func (c *MemoryCache) Export(ctx context.Context, writer func(entry CacheEntry) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for key, entry := range c.entries {
		cacheEntry := CacheEntry{
			Key:        key,
			Value:      entry.value,
			ExpiresAt:  entry.expiresAt,
			CreatedAt:  entry.createdAt,
			AccessedAt: time.Now(), // Access times are not tracked in memory
			Size:       entry.size,
		}

		if err := writer(cacheEntry); err != nil {
			return err
		}
	}

	return nil
}

// Import imports cache entries from a source. Entries that already expired
// are skipped.
func (c *MemoryCache) Import(ctx context.Context, entries []CacheEntry) error {
	for _, entry := range entries {
		var ttl time.Duration
		if !entry.ExpiresAt.IsZero() {
			ttl = time.Until(entry.ExpiresAt)
			if ttl <= 0 {
				continue
			}
		}

		if err := c.Set(ctx, entry.Key, entry.Value, ttl); err != nil {
			return err
		}
	}

	return nil
}
