package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/gomarket-cart/internal/core/domain"
	"github.com/rl1809/gomarket-cart/internal/port"
)

const maxRetryBackoff = 5 * time.Second

type WriterConfig struct {
	Workers      int
	QueueSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	Timeout      time.Duration
}

func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Workers:      1,
		QueueSize:    64,
		MaxRetries:   3,
		RetryBackoff: 200 * time.Millisecond,
		Timeout:      5 * time.Second,
	}
}

func (c WriterConfig) withDefaults() WriterConfig {
	def := DefaultWriterConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = def.RetryBackoff
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}

type WriterStats struct {
	Written int64
	Failed  int64
	Stale   int64
	Dropped int64
}

// SnapshotWriter drains the snapshot queue with a fixed pool of workers. Write
// failures are retried and then logged; they never reach the mutating caller.
type SnapshotWriter struct {
	repo     port.KeyValueRepository
	codec    port.SnapshotCodec
	queue    <-chan domain.Snapshot
	cfg      WriterConfig
	logger   *slog.Logger
	recorder port.Recorder

	wg      sync.WaitGroup
	written atomic.Int64
	failed  atomic.Int64
	stale   atomic.Int64
	dropped atomic.Int64
}

func NewSnapshotWriter(
	repo port.KeyValueRepository,
	codec port.SnapshotCodec,
	queue <-chan domain.Snapshot,
	cfg WriterConfig,
	logger *slog.Logger,
	recorder port.Recorder,
) *SnapshotWriter {
	return &SnapshotWriter{
		repo:     repo,
		codec:    codec,
		queue:    queue,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		recorder: recorder,
	}
}

func (w *SnapshotWriter) Start() {
	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.workerLoop(id)
		}(i)
	}
	w.logger.Debug("started snapshot writers", "workers", w.cfg.Workers)
}

func (w *SnapshotWriter) workerLoop(id int) {
	for snap := range w.queue {
		w.write(id, snap)
	}
}

func (w *SnapshotWriter) write(id int, snap domain.Snapshot) {
	value, err := w.codec.Encode(snap.Items)
	if err != nil {
		w.failed.Add(1)
		w.recorder.ObserveWrite("failed", 0)
		w.logger.Error("failed to encode cart snapshot", "worker", id, "version", snap.Version, "err", err)
		return
	}
	entry := port.Entry{Value: value, Version: snap.Version}

	backoff := w.cfg.RetryBackoff
	for attempt := 1; ; attempt++ {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
		applied, err := w.repo.Set(ctx, snap.Key, entry)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			if applied {
				w.written.Add(1)
				w.recorder.ObserveWrite("ok", elapsed)
				w.logger.Debug("saved cart snapshot", "worker", id, "version", snap.Version, "lines", len(snap.Items))
			} else {
				w.stale.Add(1)
				w.recorder.ObserveWrite("stale", elapsed)
				w.logger.Debug("skipped stale cart snapshot", "worker", id, "version", snap.Version)
			}
			return
		}

		if attempt > w.cfg.MaxRetries {
			w.failed.Add(1)
			w.recorder.ObserveWrite("failed", elapsed)
			w.logger.Error("failed to save cart snapshot", "worker", id, "version", snap.Version, "attempts", attempt, "err", err)
			return
		}

		w.logger.Warn("retrying cart snapshot write", "worker", id, "version", snap.Version, "attempt", attempt, "backoff", backoff, "err", err)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}
}

func (w *SnapshotWriter) noteDropped() {
	w.dropped.Add(1)
}

func (w *SnapshotWriter) Stats() WriterStats {
	return WriterStats{
		Written: w.written.Load(),
		Failed:  w.failed.Load(),
		Stale:   w.stale.Load(),
		Dropped: w.dropped.Load(),
	}
}

// Wait blocks until the queue is closed and drained, or ctx is done.
func (w *SnapshotWriter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for snapshot writers: %w", ctx.Err())
	}
}
