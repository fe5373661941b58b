package storage

import (
	"context"
	"testing"

	"github.com/rl1809/gomarket-cart/internal/port"
)

type deletableRepository interface {
	port.KeyValueRepository
	Delete(ctx context.Context, key string) error
}

// runRepositoryContract expects key to be absent when called.
func runRepositoryContract(t *testing.T, repo deletableRepository, key string) {
	t.Helper()
	ctx := context.Background()

	_, found, err := repo.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Fatal("expected missing key")
	}

	ok, err := repo.Set(ctx, key, port.Entry{Value: `[{"id":"p1"}]`, Version: 2})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !ok {
		t.Error("expected first write to apply")
	}

	entry, found, err := repo.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || entry.Value != `[{"id":"p1"}]` || entry.Version != 2 {
		t.Errorf("unexpected entry: %+v (found=%v)", entry, found)
	}

	// Stale and equal versions are rejected
	for _, version := range []int64{1, 2} {
		ok, err = repo.Set(ctx, key, port.Entry{Value: "stale", Version: version})
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if ok {
			t.Errorf("expected version %d to be rejected", version)
		}
	}

	ok, err = repo.Set(ctx, key, port.Entry{Value: "[]", Version: 3})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !ok {
		t.Error("expected newer write to apply")
	}

	entry, _, _ = repo.Get(ctx, key)
	if entry.Value != "[]" || entry.Version != 3 {
		t.Errorf("expected newest entry, got %+v", entry)
	}

	if err := repo.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found, _ := repo.Get(ctx, key); found {
		t.Error("expected key to be deleted")
	}
}
