// Package dedupe makes wardrobe uploads idempotent.
//
// A client may retry an upload with the same upload key; the first item id
// recorded for that key is returned instead of creating a second item.
// A key is in flight from Claim until Commit, and is released by Forget or
// when the item it produced is dropped with ForgetItem.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Status is the outcome of a Claim.
type Status int

const (
	// Claimed means the key was new and the caller now owns it.
	Claimed Status = iota
	// InFlight means another upload holds the key and has not committed yet.
	InFlight
	// Committed means the key already resolved to a stored item.
	Committed
)

func (s Status) String() string {
	switch s {
	case Claimed:
		return "claimed"
	case InFlight:
		return "in_flight"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// Deduper remembers which upload keys produced which item.
type Deduper interface {
	// Claim records key -> itemID unless key is already known.
	// It returns the item id recorded first and the state of the key.
	Claim(ctx context.Context, key, itemID string) (string, Status)

	// Commit marks a claimed key as backed by a stored item.
	Commit(ctx context.Context, key string)

	// Forget drops key so a failed upload can be retried.
	Forget(ctx context.Context, key string)

	// ForgetItem drops the key that produced itemID, if any.
	ForgetItem(ctx context.Context, itemID string)

	// Size returns the number of remembered keys.
	Size() int
}

// Key scopes an upload key to a session.
func Key(sessionID, uploadID string) string {
	return sessionID + "/" + uploadID
}

type entry struct {
	key       string
	itemID    string
	committed bool
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest when full.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	byItem  map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int        // <= 0 means unbounded
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10000,
		seen:    make(map[string]*list.Element),
		byItem:  make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key, itemID string) (string, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		e := el.Value.(*entry)
		if e.committed {
			return e.itemID, Committed
		}
		return e.itemID, InFlight
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.removeLocked(d.order.Front())
	}
	el := d.order.PushBack(&entry{key: key, itemID: itemID})
	d.seen[key] = el
	d.byItem[itemID] = el
	return itemID, Claimed
}

func (d *inMemoryDeduper) Commit(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		el.Value.(*entry).committed = true
	}
}

func (d *inMemoryDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(d.seen[key])
}

func (d *inMemoryDeduper) ForgetItem(_ context.Context, itemID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(d.byItem[itemID])
}

// removeLocked must be called with d.mu held. A nil element is ignored.
func (d *inMemoryDeduper) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	e := el.Value.(*entry)
	d.order.Remove(el)
	delete(d.seen, e.key)
	delete(d.byItem, e.itemID)
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
