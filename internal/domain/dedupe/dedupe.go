// Package dedupe tracks idempotency keys so a retried request is applied at
// most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/betpool/internal/domain/clock"
)

// Default deduper configuration constants.
const (
	defaultMaxSize = 50_000
	defaultTTL     = 24 * time.Hour
)

// Deduper records idempotency keys and the result each one produced.
type Deduper interface {
	// SeenAndRecord atomically checks key and claims it if unknown. When the
	// key is known it returns seen=true and the value recorded for it, which
	// is empty while the first request is still in flight.
	SeenAndRecord(ctx context.Context, key string) (value string, seen bool, err error)

	// Record attaches the result of a claimed key.
	Record(ctx context.Context, key, value string) error

	// Unrecord drops a key so it can be retried, e.g. after a rejected request.
	Unrecord(ctx context.Context, key string) error

	Size() int64
}

type entry struct {
	key     string
	value   string
	expires time.Time
}

// inMemoryDeduper keeps keys in insertion order; the oldest key is evicted
// once maxSize is reached and expired keys are dropped lazily.
type inMemoryDeduper struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = newest
	maxSize int
	ttl     time.Duration
	clock   clock.Clock
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
		ttl:     defaultTTL,
		clock:   clock.System{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	d.expire(now)

	if el, ok := d.entries[key]; ok {
		return el.Value.(*entry).value, true, nil
	}

	if d.maxSize > 0 && len(d.entries) >= d.maxSize {
		d.remove(d.order.Back())
	}
	d.entries[key] = d.order.PushFront(&entry{key: key, expires: now.Add(d.ttl)})
	d.size.Add(1)
	return "", false, nil
}

func (d *inMemoryDeduper) Record(_ context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.entries[key]; ok {
		el.Value.(*entry).value = value
		return nil
	}
	return ErrUnknownKey
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.entries[key]; ok {
		d.remove(el)
	}
	return nil
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// expire drops keys past their TTL, oldest first. Must be called with d.mu held.
func (d *inMemoryDeduper) expire(now time.Time) {
	for el := d.order.Back(); el != nil; el = d.order.Back() {
		if now.Before(el.Value.(*entry).expires) {
			return
		}
		d.remove(el)
	}
}

// remove must be called with d.mu held.
func (d *inMemoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.entries, el.Value.(*entry).key)
	d.size.Add(-1)
}
