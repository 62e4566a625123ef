package testsupport

import (
	"context"
	"testing"

	"platter/internal/config"
	"platter/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewUnitItem enqueues an import task for tests using the provided store.
func NewUnitItem(t testing.TB, store *queue.Store, path, title, fingerprint string) *queue.Item {
	t.Helper()

	item, err := store.NewUnit(context.Background(), path, title, fingerprint, "")
	if err != nil {
		t.Fatalf("store.NewUnit: %v", err)
	}
	return item
}
