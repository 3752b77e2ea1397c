package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxItems sets the wardrobe cap per session.
func WithMaxItems(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

// WithSessionTTL sets how long an untouched session is kept. Zero keeps sessions forever.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithJanitorInterval sets how often expired sessions are swept.
func WithJanitorInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.janitorInterval = interval
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *MemoryStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}
