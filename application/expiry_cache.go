package application

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultExpiryTTL       = 60 * time.Second
	DefaultExpiryZeroValue = "0"
)

type ExpiryTimer interface {
	Stop() bool
}

// ExpiryHandler is called once per elapsed entry, outside the cache lock.
type ExpiryHandler func(topic string, value string)

type ExpiryCacheParams struct {
	OnExpire  ExpiryHandler
	ZeroValue string

	// for testing
	AfterFunc func(d time.Duration, f func()) ExpiryTimer
	Now       func() time.Time

	Metrics Metrics

	Log zerolog.Logger
}

func (p *ExpiryCacheParams) EnsureDefaults() {
	if p.ZeroValue == "" {
		p.ZeroValue = DefaultExpiryZeroValue
	}

	if p.AfterFunc == nil {
		p.AfterFunc = func(d time.Duration, f func()) ExpiryTimer {
			return time.AfterFunc(d, f)
		}
	}

	if p.Now == nil {
		p.Now = time.Now
	}

	if p.Metrics == nil {
		p.Metrics = nopMetrics{}
	}
}

type expiryEntry struct {
	expiresAt  time.Time
	timer      ExpiryTimer
	generation uint64
}

// ExpiryCache keeps one pending reset timer per topic. Touching a topic
// postpones its reset; a topic left untouched for its ttl is reset to the
// zero value exactly once and forgotten.
type ExpiryCache struct {
	params ExpiryCacheParams

	mu         sync.Mutex
	entries    map[string]*expiryEntry
	generation uint64
	closed     bool

	log zerolog.Logger
}

func NewExpiryCache(params ExpiryCacheParams) (*ExpiryCache, error) {
	if params.OnExpire == nil {
		return nil, fmt.Errorf("OnExpire is nil")
	}
	params.EnsureDefaults()

	return &ExpiryCache{
		params:  params,
		entries: make(map[string]*expiryEntry),
		log:     params.Log,
	}, nil
}

func (c *ExpiryCache) Touch(topic string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if e, ok := c.entries[topic]; ok {
		e.timer.Stop()
	}

	// a timer that already fired but still waits for the lock carries an
	// older generation and is ignored by expire
	c.generation++
	gen := c.generation

	c.entries[topic] = &expiryEntry{
		expiresAt:  c.params.Now().Add(ttl),
		generation: gen,
		timer: c.params.AfterFunc(ttl, func() {
			c.expire(topic, gen)
		}),
	}
	c.params.Metrics.SetPendingExpiries(len(c.entries))
}

func (c *ExpiryCache) expire(topic string, gen uint64) {
	c.mu.Lock()
	e, ok := c.entries[topic]
	if !ok || e.generation != gen || c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.entries, topic)
	c.params.Metrics.SetPendingExpiries(len(c.entries))
	c.mu.Unlock()

	c.log.Debug().Str("topic", topic).Msg("topic expired")
	c.params.Metrics.IncExpiryReset()
	c.params.OnExpire(topic, c.params.ZeroValue)
}

func (c *ExpiryCache) ExpiresAt(topic string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[topic]
	if !ok {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

func (c *ExpiryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops every pending timer without publishing resets. Later touches
// are ignored.
func (c *ExpiryCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for topic, e := range c.entries {
		e.timer.Stop()
		delete(c.entries, topic)
	}
	c.closed = true
	c.params.Metrics.SetPendingExpiries(0)
}
