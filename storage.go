package gcsmock

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Storage is the root of the simulated service: a registry of buckets,
// playing the role the storage client plays against the real service. All
// state reachable from a Storage is guarded by a single lock, so a Storage
// and every handle resolved from it are safe for concurrent use.
type Storage struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket

	snapshotPath     string
	snapshotInterval time.Duration
	stopCh           chan struct{}
	wg               sync.WaitGroup
	closeOnce        sync.Once
	closeErr         error
}

// Option configures a Storage at construction time.
type Option func(*options)

type options struct {
	fixturePath      string
	fixture          *Fixture
	snapshotPath     string
	snapshotInterval time.Duration
}

// WithFixtureFile seeds the Storage from the YAML fixture file at path.
// The fixture is applied with Put semantics, so every declared object is a
// member immediately after New.
func WithFixtureFile(path string) Option {
	return func(o *options) { o.fixturePath = path }
}

// WithFixture seeds the Storage from an already-loaded fixture.
func WithFixture(f *Fixture) Option {
	return func(o *options) { o.fixture = f }
}

// WithSnapshot enables snapshot persistence to a SQLite file: any existing
// snapshot at path is loaded during New, a background goroutine writes a
// snapshot every interval (disabled when interval <= 0), and Close writes a
// final snapshot. Fault queues and non-member handles are not persisted.
func WithSnapshot(path string, interval time.Duration) Option {
	return func(o *options) {
		o.snapshotPath = path
		o.snapshotInterval = interval
	}
}

// New creates an empty simulated storage service and applies the given
// options. It fails only when a snapshot or fixture option cannot be
// applied.
func New(opts ...Option) (*Storage, error) {
	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Storage{
		buckets:          make(map[string]*Bucket),
		snapshotPath:     cfg.snapshotPath,
		snapshotInterval: cfg.snapshotInterval,
	}

	if cfg.snapshotPath != "" {
		if err := s.LoadSnapshot(cfg.snapshotPath); err != nil {
			return nil, fmt.Errorf("loading snapshot: %w", err)
		}
	}

	fixture := cfg.fixture
	if cfg.fixturePath != "" {
		loaded, err := LoadFixture(cfg.fixturePath)
		if err != nil {
			return nil, fmt.Errorf("loading fixture: %w", err)
		}
		fixture = loaded
	}
	if fixture != nil {
		fixture.Apply(s)
	}

	if cfg.snapshotPath != "" && cfg.snapshotInterval > 0 {
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go s.snapshotLoop()
	}

	return s, nil
}

// Bucket returns the bucket with the given name, creating an empty one on
// first access. Repeated calls return the identical handle; Bucket never
// fails and never returns nil.
func (s *Storage) Bucket(name string) *Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bucketLocked(name)
}

// bucketLocked implements Bucket. The caller must hold the storage lock.
func (s *Storage) bucketLocked(name string) *Bucket {
	if b, ok := s.buckets[name]; ok {
		return b
	}
	b := &Bucket{
		name:    name,
		storage: s,
		handles: make(map[string]*Object),
		members: make(map[string]bool),
	}
	s.buckets[name] = b
	return b
}

// BucketNames returns the names of all buckets created so far, sorted.
func (s *Storage) BucketNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops every bucket, returning the Storage to its freshly
// constructed state. Handles resolved before Reset are detached: they keep
// working against their old bucket, which is no longer reachable from the
// registry. Intended for reusing one Storage across test cases.
func (s *Storage) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets = make(map[string]*Bucket)
}

// Close stops the background snapshot goroutine, if any, and writes a final
// snapshot when snapshot persistence is configured. Safe to call multiple
// times; subsequent calls return the first result.
func (s *Storage) Close() error {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.wg.Wait()
		}
		if s.snapshotPath != "" {
			if err := s.WriteSnapshot(s.snapshotPath); err != nil {
				s.closeErr = fmt.Errorf("writing final snapshot: %w", err)
			}
		}
	})
	return s.closeErr
}
