package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/quiz"
	"github.com/okian/stylist/pkg/metrics"
)

// DefaultMaxItems is the wardrobe cap.
const DefaultMaxItems = 5

// entry is the mutable state behind one session.
type entry struct {
	session model.Session
	// idle is closed whenever no item is pending; replaced when one becomes pending.
	idle chan struct{}
}

func newEntry(s model.Session) *entry {
	idle := make(chan struct{})
	close(idle)
	return &entry{session: s, idle: idle}
}

func (e *entry) pending() int {
	n := 0
	for _, it := range e.session.Items {
		if it.Pending() {
			n++
		}
	}
	return n
}

// settle refreshes the pending count and the idle channel after a wardrobe change.
func (e *entry) settle() {
	was := e.session.Pending
	e.session.Pending = e.pending()
	switch {
	case was == 0 && e.session.Pending > 0:
		e.idle = make(chan struct{})
	case was > 0 && e.session.Pending == 0:
		close(e.idle)
	}
}

func (e *entry) snapshot() model.Session {
	s := e.session
	s.Answers = append([]string(nil), e.session.Answers...)
	s.Items = append([]model.Item(nil), e.session.Items...)
	if e.session.Preview != nil {
		p := *e.session.Preview
		s.Preview = &p
	}
	return s
}

func (e *entry) indexOf(itemID string) int {
	for i, it := range e.session.Items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

// MemoryStore is an in-memory Store with a per-session wardrobe cap and idle expiry.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	maxItems        int
	ttl             time.Duration
	janitorInterval time.Duration
	now             func() time.Time
	newID           func() string

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a store and starts its janitor, which runs until ctx is done or Close.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions:        make(map[string]*entry),
		maxItems:        DefaultMaxItems,
		ttl:             time.Hour,
		janitorInterval: time.Minute,
		now:             time.Now,
		newID:           uuid.NewString,
		stopChan:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl > 0 {
		s.startJanitor(ctx)
	}
	return s
}

func (s *MemoryStore) startJanitor(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.janitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.RecordSessionsEvicted(s.EvictExpired())
			}
		}
	}()
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// MaxItems returns the wardrobe cap.
func (s *MemoryStore) MaxItems() int { return s.maxItems }

// TTL returns the idle expiry, zero when sessions never expire.
func (s *MemoryStore) TTL() time.Duration { return s.ttl }

// EvictExpired drops sessions idle for longer than the TTL and returns how many went.
func (s *MemoryStore) EvictExpired() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	n := 0
	for id, e := range s.sessions {
		if e.session.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	s.publishLocked()
	s.mu.Unlock()
	return n
}

// publishLocked updates the session gauges. Callers hold s.mu.
func (s *MemoryStore) publishLocked() {
	st := s.statsLocked()
	metrics.UpdateSessions(st.Sessions, st.Items, st.Pending)
}

func (s *MemoryStore) statsLocked() Stats {
	st := Stats{Sessions: len(s.sessions)}
	for _, e := range s.sessions {
		st.Items += len(e.session.Items)
		st.Pending += e.session.Pending
	}
	return st
}

// mutate runs fn on the session under the write lock and stamps UpdatedAt on success.
func (s *MemoryStore) mutate(ctx context.Context, id string, fn func(e *entry) error) (model.Session, error) {
	if err := ctx.Err(); err != nil {
		return model.Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return model.Session{}, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err := fn(e); err != nil {
		return model.Session{}, err
	}
	e.session.UpdatedAt = s.now()
	s.publishLocked()
	return e.snapshot(), nil
}

func (s *MemoryStore) Create(ctx context.Context) (model.Session, error) {
	if err := ctx.Err(); err != nil {
		return model.Session{}, err
	}
	now := s.now()
	e := newEntry(model.Session{ID: s.newID(), CreatedAt: now, UpdatedAt: now})

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[e.session.ID]; exists {
		return model.Session{}, fmt.Errorf("session id collision %s", e.session.ID)
	}
	s.sessions[e.session.ID] = e
	s.publishLocked()
	return e.snapshot(), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (model.Session, error) {
	if err := ctx.Err(); err != nil {
		return model.Session{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return model.Session{}, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return e.snapshot(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	delete(s.sessions, id)
	s.publishLocked()
	return nil
}

func (s *MemoryStore) RecordAnswer(ctx context.Context, id string, idx int, answer string) (model.Session, error) {
	return s.mutate(ctx, id, func(e *entry) error {
		next, err := quiz.Answers(e.session.Answers).Record(idx, answer)
		if err != nil {
			return err
		}
		e.session.Answers = next
		return nil
	})
}

func (s *MemoryStore) ResetQuiz(ctx context.Context, id string) (model.Session, error) {
	return s.mutate(ctx, id, func(e *entry) error {
		e.session.Answers = nil
		return nil
	})
}

func (s *MemoryStore) AddItem(ctx context.Context, id string, item model.Item) (model.Session, error) {
	if item.ID == "" {
		return model.Session{}, fmt.Errorf("item without id: %w", ErrInvalidItem)
	}
	if !item.Category.Valid() {
		return model.Session{}, fmt.Errorf("category %q: %w", item.Category, ErrInvalidCategory)
	}
	return s.mutate(ctx, id, func(e *entry) error {
		if len(e.session.Items) >= s.maxItems {
			return fmt.Errorf("%d items: %w", s.maxItems, ErrWardrobeFull)
		}
		if e.indexOf(item.ID) >= 0 {
			return fmt.Errorf("duplicate item %s: %w", item.ID, ErrInvalidItem)
		}
		if item.AddedAt.IsZero() {
			item.AddedAt = s.now()
		}
		e.session.Items = append(e.session.Items, item)
		e.settle()
		return nil
	})
}

func (s *MemoryStore) RemoveItem(ctx context.Context, id, itemID string) (model.Session, error) {
	return s.mutate(ctx, id, func(e *entry) error {
		i := e.indexOf(itemID)
		if i < 0 {
			return fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
		}
		e.session.Items = append(e.session.Items[:i:i], e.session.Items[i+1:]...)
		e.settle()
		return nil
	})
}

func (s *MemoryStore) Relabel(ctx context.Context, id, itemID string, category model.Category) (model.Item, error) {
	if !category.Valid() {
		return model.Item{}, fmt.Errorf("category %q: %w", category, ErrInvalidCategory)
	}
	var out model.Item
	_, err := s.mutate(ctx, id, func(e *entry) error {
		i := e.indexOf(itemID)
		if i < 0 {
			return fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
		}
		e.session.Items[i].Category = category
		out = e.session.Items[i]
		return nil
	})
	return out, err
}

// SetColor records the extracted colour. Callers substitute a default rather than pass "".
func (s *MemoryStore) SetColor(ctx context.Context, id, itemID, color string) error {
	if color == "" {
		return fmt.Errorf("empty colour for %s: %w", itemID, ErrInvalidItem)
	}
	_, err := s.mutate(ctx, id, func(e *entry) error {
		if i := e.indexOf(itemID); i >= 0 {
			e.session.Items[i].Color = color
			e.settle()
		}
		return nil
	})
	return err
}

func (s *MemoryStore) AwaitColors(ctx context.Context, id string) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	var idle <-chan struct{}
	if ok {
		idle = e.idle
	}
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MemoryStore) SetPreview(ctx context.Context, id string, preview model.Preview) error {
	_, err := s.mutate(ctx, id, func(e *entry) error {
		if preview.CreatedAt.IsZero() {
			preview.CreatedAt = s.now()
		}
		e.session.Preview = &preview
		return nil
	})
	return err
}

func (s *MemoryStore) Stats(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}
