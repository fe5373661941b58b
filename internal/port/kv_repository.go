package port

import (
	"context"
	"errors"
)

// ErrCorruptEntry is returned by Get when the stored entry exists but cannot be read.
var ErrCorruptEntry = errors.New("corrupt stored entry")

// Entry is a serialized value together with the version it was written at.
type Entry struct {
	Value   string
	Version int64
}

type KeyValueRepository interface {
	// Get returns the entry stored under key, found is false when the key is absent
	Get(ctx context.Context, key string) (entry Entry, found bool, err error)

	// Set stores entry under key only if entry.Version is newer than the stored version,
	// returns false when the write was rejected as stale
	Set(ctx context.Context, key string, entry Entry) (applied bool, err error)
}
