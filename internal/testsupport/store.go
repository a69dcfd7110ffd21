package testsupport

import (
	"context"
	"testing"

	"animetrack/internal/catalog"
	"animetrack/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedWork upserts a work and fails the test on error.
func SeedWork(t testing.TB, store *catalog.Store, in catalog.WorkInput) *catalog.Work {
	t.Helper()

	result, err := store.UpsertWork(context.Background(), in)
	if err != nil {
		t.Fatalf("store.UpsertWork(%d): %v", in.ExternalID, err)
	}
	return result.Work
}

// SeedEpisode records episode progress for a seeded work.
func SeedEpisode(t testing.TB, store *catalog.Store, workID int64, episode int) {
	t.Helper()

	work, err := store.GetWork(context.Background(), workID)
	if err != nil {
		t.Fatalf("store.GetWork(%d): %v", workID, err)
	}
	update := catalog.EpisodeUpdate{Previous: work.LastEpisode, Episode: episode}
	if err := store.RecordEpisode(context.Background(), workID, update); err != nil {
		t.Fatalf("store.RecordEpisode(%d): %v", workID, err)
	}
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }
