package testsupport

import (
	"context"
	"testing"

	"discmapper/internal/config"
	"discmapper/internal/queue"
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

// NewTVDisc creates a pending TV disc item for tests using the provided store.
func NewTVDisc(t testing.TB, store *queue.Store, discKey, series string, season, disc int) *queue.Item {
	t.Helper()

	item, err := store.NewTVDisc(context.Background(), discKey, series, season, disc, "")
	if err != nil {
		t.Fatalf("store.NewTVDisc: %v", err)
	}
	return item
}
