package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/gomarket-cart/internal/core/domain"
	"github.com/rl1809/gomarket-cart/internal/port"
)

// DefaultSnapshotKey is the durable key holding the cart snapshot.
const DefaultSnapshotKey = "@GoMarket:Cart"

var (
	ErrNotInitialized = errors.New("cart store not initialized")
	ErrStoreClosed    = errors.New("cart store closed")
	ErrInvalidProduct = errors.New("invalid product")
)

type lifecycle int

const (
	stateUninitialized lifecycle = iota
	stateLoading
	stateReady
	stateClosed
)

// CartStore owns the in-memory cart of one application session. Mutations update
// and publish the in-memory cart immediately, then queue a full snapshot for the
// background writers.
type CartStore struct {
	key      string
	repo     port.KeyValueRepository
	codec    port.SnapshotCodec
	logger   *slog.Logger
	recorder port.Recorder
	cfg      WriterConfig

	mu          sync.Mutex
	state       lifecycle
	products    domain.Cart
	version     int64
	subscribers map[uuid.UUID]*Subscription
	writeQueue  chan domain.Snapshot
	writer      *SnapshotWriter
}

var _ port.CartManager = (*CartStore)(nil)

type Option func(*CartStore)

func WithKey(key string) Option {
	return func(s *CartStore) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *CartStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRecorder(recorder port.Recorder) Option {
	return func(s *CartStore) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

func WithWriterConfig(cfg WriterConfig) Option {
	return func(s *CartStore) {
		s.cfg = cfg
	}
}

// Open reads the stored snapshot and returns a ready store. A snapshot that cannot
// be read or decoded is discarded and the store starts empty; a failing repository
// read is returned as an error.
func Open(ctx context.Context, repo port.KeyValueRepository, codec port.SnapshotCodec, opts ...Option) (*CartStore, error) {
	if repo == nil || codec == nil {
		return nil, errors.New("cart store requires a repository and a codec")
	}

	s := &CartStore{
		key:         DefaultSnapshotKey,
		repo:        repo,
		codec:       codec,
		logger:      slog.Default(),
		recorder:    nopRecorder{},
		cfg:         DefaultWriterConfig(),
		subscribers: make(map[uuid.UUID]*Subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.withDefaults()
	s.logger = s.logger.With("key", s.key)

	s.state = stateLoading
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	s.writeQueue = make(chan domain.Snapshot, s.cfg.QueueSize)
	s.writer = NewSnapshotWriter(s.repo, s.codec, s.writeQueue, s.cfg, s.logger, s.recorder)
	s.writer.Start()

	s.state = stateReady
	s.recorder.SetCartLines(len(s.products))
	return s, nil
}

func (s *CartStore) load(ctx context.Context) error {
	s.products = domain.Cart{}

	entry, found, err := s.repo.Get(ctx, s.key)
	if errors.Is(err, port.ErrCorruptEntry) {
		s.logger.Warn("discarding corrupt cart snapshot", "err", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cart snapshot: %w", err)
	}
	if !found {
		s.logger.Info("no cart snapshot stored, starting empty")
		return nil
	}
	s.version = entry.Version

	items, err := s.codec.Decode(entry.Value)
	if err != nil {
		s.logger.Warn("discarding unreadable cart snapshot", "version", entry.Version, "err", err)
		return nil
	}

	cart, dropped := domain.Normalize(items)
	if dropped > 0 {
		s.logger.Warn("dropped invalid entries from cart snapshot", "dropped", dropped)
	}
	s.products = cart
	s.logger.Info("cart snapshot loaded", "version", entry.Version, "lines", len(cart))
	return nil
}

// acquire locks the store if it accepts mutations. The caller unlocks on success.
func (s *CartStore) acquire() error {
	if s == nil {
		return ErrNotInitialized
	}

	s.mu.Lock()
	switch s.state {
	case stateReady:
		return nil
	case stateClosed:
		s.mu.Unlock()
		return ErrStoreClosed
	default:
		s.mu.Unlock()
		return ErrNotInitialized
	}
}

func (s *CartStore) Products() ([]domain.CartItem, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateReady && s.state != stateClosed {
		return nil, ErrNotInitialized
	}
	return s.products.Clone(), nil
}

// AddToCart keeps the display fields of an entry that is already in the cart and
// only increments its quantity.
func (s *CartStore) AddToCart(p domain.Product) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if p.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: negative price for %q", ErrInvalidProduct, p.ID)
	}

	if s.products.IndexOf(p.ID) >= 0 {
		s.logger.Debug("product already in cart, incrementing", "id", p.ID)
		s.applyLocked("increment", s.products.WithIncremented(p.ID))
		return nil
	}

	s.applyLocked("add", s.products.WithAdded(p))
	return nil
}

func (s *CartStore) Increment(id string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.applyLocked("increment", s.products.WithIncremented(id))
	return nil
}

func (s *CartStore) Decrement(id string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.applyLocked("decrement", s.products.WithDecremented(id))
	return nil
}

// Version returns the version of the last published cart.
func (s *CartStore) Version() int64 {
	if s == nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *CartStore) Stats() WriterStats {
	if s == nil || s.writer == nil {
		return WriterStats{}
	}
	return s.writer.Stats()
}

func (s *CartStore) applyLocked(op string, next domain.Cart) {
	s.products = next
	s.version++

	s.recorder.ObserveMutation(op)
	s.recorder.SetCartLines(len(next))

	s.publishLocked(next)
	s.enqueueLocked(domain.Snapshot{Key: s.key, Version: s.version, Items: next})
}

// enqueueLocked never blocks: when the queue is full the oldest pending snapshot
// is discarded, since every snapshot carries the complete cart.
func (s *CartStore) enqueueLocked(snap domain.Snapshot) {
	select {
	case s.writeQueue <- snap:
		return
	default:
	}

	select {
	case old := <-s.writeQueue:
		s.writer.noteDropped()
		s.recorder.ObserveDrop()
		s.logger.Warn("write queue full, superseding pending snapshot", "dropped_version", old.Version, "version", snap.Version)
	default:
	}
	s.writeQueue <- snap
}

// Close stops accepting mutations and waits until queued snapshots are written or
// ctx is done. Products stays readable after Close.
func (s *CartStore) Close(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		if errors.Is(err, ErrStoreClosed) {
			return nil
		}
		return err
	}

	s.state = stateClosed
	close(s.writeQueue)
	for id, sub := range s.subscribers {
		delete(s.subscribers, id)
		close(sub.ch)
	}
	s.mu.Unlock()

	s.logger.Info("cart store closing, flushing pending snapshots")
	return s.writer.Wait(ctx)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMutation(string)             {}
func (nopRecorder) ObserveWrite(string, time.Duration) {}
func (nopRecorder) ObserveDrop()                       {}
func (nopRecorder) SetCartLines(int)                   {}
