package advisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/model"
	"github.com/verdantlabs/factormatch/internal/service"
)

// cacheEntry represents a cached advisor decision.
type cacheEntry struct {
	expiry   time.Time
	override *model.DecisionOverride
}

// decisionCache provides thread-safe caching for advisor decisions.
type decisionCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	closed  bool
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &decisionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

func (c *decisionCache) get(key string) (*model.DecisionOverride, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(entry.expiry) {
		return nil, false
	}

	return entry.override, true
}

func (c *decisionCache) set(key string, override *model.DecisionOverride) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		override: override,
		expiry:   time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *decisionCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *decisionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *decisionCache) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close stops the cleanup goroutine. Idempotent.
func (c *decisionCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.stopCh)
}

// CachingAdvisor wraps an Advisor with a TTL decision cache keyed by
// invoice identity and candidate row indices.
type CachingAdvisor struct {
	inner service.Advisor
	cache *decisionCache
}

// NewCachingAdvisor wraps inner with a decision cache.
func NewCachingAdvisor(inner service.Advisor, ttl time.Duration) *CachingAdvisor {
	return &CachingAdvisor{
		inner: inner,
		cache: newDecisionCache(ttl),
	}
}

// Decide returns a cached decision when available, otherwise delegates.
// A closed advisor no longer answers.
func (a *CachingAdvisor) Decide(ctx context.Context, invoice model.InvoiceRecord, candidates []model.MatchCandidate) (*model.DecisionOverride, error) {
	if a.cache.isClosed() {
		return nil, common.ErrAdvisorDisabled
	}

	key := cacheKey(invoice, candidates)

	if override, ok := a.cache.get(key); ok {
		return override, nil
	}

	override, err := a.inner.Decide(ctx, invoice, candidates)
	if err != nil {
		return nil, err
	}

	a.cache.set(key, override)
	return override, nil
}

// Close releases the cache cleanup goroutine.
func (a *CachingAdvisor) Close() {
	a.cache.Close()
}

func cacheKey(invoice model.InvoiceRecord, candidates []model.MatchCandidate) string {
	key := fmt.Sprintf("%s|%s|%s", invoice.SourceFile, invoice.InvoiceType, invoice.Unit)
	for _, candidate := range candidates {
		key += fmt.Sprintf("|%d", candidate.Factor.RowIndex)
	}
	return key
}
