package queue_test

import (
	"context"
	"testing"

	"discmapper/internal/queue"
	"discmapper/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewTVDisc(ctx, "the wire||S01||D01", "The Wire", 1, 1, "WIRE_S1_D1")
	if err != nil {
		t.Fatalf("NewTVDisc failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Series != "The Wire" || fetched.Season != 1 || fetched.Disc != 1 {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}

	found, err := store.FindByDiscKey(ctx, "the wire||S01||D01")
	if err != nil {
		t.Fatalf("FindByDiscKey failed: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", found)
	}
}

func TestNewMovieRoundTrips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewMovie(ctx, queue.MovieSpec{
		Title:       "Heat",
		Year:        1995,
		IMDBID:      "tt0113277",
		PkgIndex:    12,
		Barcode:     "085391189928",
		SourceLabel: "HEAT_DISC",
	})
	if err != nil {
		t.Fatalf("NewMovie failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Kind != queue.KindMovie || fetched.Title != "Heat" || fetched.Year != 1995 {
		t.Fatalf("unexpected movie item: %#v", fetched)
	}
	if fetched.IMDBID != "tt0113277" || fetched.PkgIndex != 12 || fetched.Barcode != "085391189928" {
		t.Fatalf("movie identity lost: %#v", fetched)
	}
	if fetched.Display() != "Heat (1995)" {
		t.Fatalf("unexpected display: %s", fetched.Display())
	}
}

func TestTransitionEnforcesLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewTVDisc(t, store, "show||S01||D01", "Show", 1, 1)

	active, err := store.Transition(ctx, item.ID, queue.StatusActive, "", "")
	if err != nil {
		t.Fatalf("pending -> active failed: %v", err)
	}
	if active.Status != queue.StatusActive {
		t.Fatalf("expected active, got %s", active.Status)
	}

	failed, err := store.Transition(ctx, item.ID, queue.StatusFailed, "rip_tool_error", "makemkvcon exited 1")
	if err != nil {
		t.Fatalf("active -> failed failed: %v", err)
	}
	if failed.ErrorKind != "rip_tool_error" || failed.ErrorMessage == "" {
		t.Fatalf("expected failure details recorded, got %#v", failed)
	}

	retried, err := store.Transition(ctx, item.ID, queue.StatusPending, "", "")
	if err != nil {
		t.Fatalf("failed -> pending failed: %v", err)
	}
	if retried.ErrorKind != "" || retried.ErrorMessage != "" {
		t.Fatalf("expected failure details cleared, got %#v", retried)
	}
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewTVDisc(t, store, "show||S01||D02", "Show", 1, 2)

	if _, err := store.Transition(ctx, item.ID, queue.StatusDone, "", ""); err == nil {
		t.Fatal("expected pending -> done to be rejected")
	}

	if _, err := store.Transition(ctx, item.ID, queue.StatusActive, "", ""); err != nil {
		t.Fatalf("pending -> active failed: %v", err)
	}
	if _, err := store.Transition(ctx, item.ID, queue.StatusDone, "", ""); err != nil {
		t.Fatalf("active -> done failed: %v", err)
	}
	if _, err := store.Transition(ctx, item.ID, queue.StatusPending, "", ""); err == nil {
		t.Fatal("expected done -> pending to be rejected")
	}
}

func TestNextPendingReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewTVDisc(t, store, "show||S01||D01", "Show", 1, 1)
	testsupport.NewTVDisc(t, store, "show||S01||D02", "Show", 1, 2)

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending item, got %#v", next)
	}

	if _, err := store.Transition(ctx, first.ID, queue.StatusActive, "", ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.ID == first.ID {
		t.Fatalf("expected second item, got %#v", next)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewTVDisc(t, store, "show||S01||D01", "Show", 1, 1)
	testsupport.NewTVDisc(t, store, "show||S01||D02", "Show", 1, 2)
	if _, err := store.Transition(ctx, a.ID, queue.StatusActive, "", ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if _, err := store.Transition(ctx, a.ID, queue.StatusFailed, "timeout", "no disc within 30m"); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	failed, err := store.List(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != a.ID {
		t.Fatalf("unexpected failed list: %#v", failed)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}
}

func TestClearVariants(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewTVDisc(t, store, "show||S01||D01", "Show", 1, 1)
	b := testsupport.NewTVDisc(t, store, "show||S01||D02", "Show", 1, 2)
	testsupport.NewTVDisc(t, store, "show||S01||D03", "Show", 1, 3)

	if _, err := store.Transition(ctx, a.ID, queue.StatusActive, "", ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if _, err := store.Transition(ctx, a.ID, queue.StatusDone, "", ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if _, err := store.Transition(ctx, b.ID, queue.StatusActive, "", ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if _, err := store.Transition(ctx, b.ID, queue.StatusFailed, "cancelled", "shutdown requested"); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	removedDone, err := store.ClearDone(ctx)
	if err != nil {
		t.Fatalf("ClearDone failed: %v", err)
	}
	if removedDone != 1 {
		t.Fatalf("expected 1 done removed, got %d", removedDone)
	}

	removedFailed, err := store.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed failed: %v", err)
	}
	if removedFailed != 1 {
		t.Fatalf("expected 1 failed removed, got %d", removedFailed)
	}

	removedAll, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removedAll != 1 {
		t.Fatalf("expected 1 remaining removed, got %d", removedAll)
	}
}
