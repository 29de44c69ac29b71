package workflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"discmapper/internal/logging"
	"discmapper/internal/queue"
	"discmapper/internal/ripjob"
	"discmapper/internal/testsupport"
	"discmapper/internal/workflow"
)

type scriptedProcessor struct {
	summaries []*ripjob.Summary
	ran       []int64
}

func (p *scriptedProcessor) Run(ctx context.Context, item *queue.Item) *ripjob.Summary {
	p.ran = append(p.ran, item.ID)
	if len(p.summaries) == 0 {
		return &ripjob.Summary{JobID: item.ID, FinalStatus: queue.StatusDone}
	}
	sum := p.summaries[0]
	p.summaries = p.summaries[1:]
	sum.JobID = item.ID
	return sum
}

func newRunner(t *testing.T, store *queue.Store, proc workflow.Processor) *workflow.Runner {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	factory := func(progress func(ripjob.Phase, string)) (workflow.Processor, error) {
		return proc, nil
	}
	runner, err := workflow.NewRunner(cfg, store, factory, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return runner
}

func TestDrainProcessesPendingInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := testsupport.NewTVDisc(t, store, "Show||S01||D01", "Show", 1, 1)
	second := testsupport.NewTVDisc(t, store, "Show||S01||D02", "Show", 1, 2)

	proc := &scriptedProcessor{}
	runner := newRunner(t, store, proc)

	processed, err := runner.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if processed != 2 {
		t.Fatalf("processed %d items, want 2", processed)
	}
	if len(proc.ran) != 2 || proc.ran[0] != first.ID || proc.ran[1] != second.ID {
		t.Fatalf("processed order %v, want [%d %d]", proc.ran, first.ID, second.ID)
	}

	for _, id := range []int64{first.ID, second.ID} {
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if item.Status != queue.StatusDone {
			t.Fatalf("item %d status %s, want done", id, item.Status)
		}
		if item.RunID != runner.RunID() {
			t.Fatalf("item %d run id %q, want %q", id, item.RunID, runner.RunID())
		}
	}
}

func TestRunOnceIdleOnEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := newRunner(t, store, &scriptedProcessor{})

	processed, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if processed {
		t.Fatal("nothing pending, yet an item was processed")
	}
}

func TestFailedJobMarksItemAndKeepsDraining(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	bad := testsupport.NewTVDisc(t, store, "Show||S01||D01", "Show", 1, 1)
	good := testsupport.NewTVDisc(t, store, "Show||S01||D02", "Show", 1, 2)

	proc := &scriptedProcessor{summaries: []*ripjob.Summary{
		{
			FinalStatus: queue.StatusFailed,
			Failure: &ripjob.Failure{
				Kind:  ripjob.FailureRipToolError,
				Phase: ripjob.PhaseRip,
				Err:   errors.New("exit status 1"),
			},
			Review: []ripjob.ReviewEntry{{Kind: "unmatched_title", Detail: "title_t02.mkv"}},
		},
		{FinalStatus: queue.StatusDone},
	}}
	runner := newRunner(t, store, proc)

	processed, err := runner.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if processed != 2 {
		t.Fatalf("processed %d items, want 2", processed)
	}

	failed, err := store.GetByID(context.Background(), bad.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if failed.Status != queue.StatusFailed {
		t.Fatalf("status %s, want failed", failed.Status)
	}
	if failed.ErrorKind != string(ripjob.FailureRipToolError) {
		t.Fatalf("error kind %q, want rip_tool_error", failed.ErrorKind)
	}
	if !strings.Contains(failed.ErrorMessage, "exit status 1") {
		t.Fatalf("error message %q lacks tool output", failed.ErrorMessage)
	}
	if !strings.Contains(failed.ReviewJSON, "unmatched_title") {
		t.Fatalf("review json %q lacks review entries", failed.ReviewJSON)
	}

	ok, err := store.GetByID(context.Background(), good.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if ok.Status != queue.StatusDone {
		t.Fatalf("second item status %s, want done", ok.Status)
	}
}

func TestCancelledJobStopsTheDrain(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cancelled := testsupport.NewTVDisc(t, store, "Show||S01||D01", "Show", 1, 1)
	testsupport.NewTVDisc(t, store, "Show||S01||D02", "Show", 1, 2)

	proc := &scriptedProcessor{summaries: []*ripjob.Summary{{
		FinalStatus: queue.StatusFailed,
		Failure: &ripjob.Failure{
			Kind:  ripjob.FailureCancelled,
			Phase: ripjob.PhaseWaitForDisc,
			Err:   context.Canceled,
		},
	}}}
	runner := newRunner(t, store, proc)

	processed, err := runner.Drain(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to stop the drain, got %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed %d, want 0 completed before cancellation", processed)
	}

	item, err := store.GetByID(context.Background(), cancelled.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item.Status != queue.StatusFailed || item.ErrorKind != string(ripjob.FailureCancelled) {
		t.Fatalf("item %s/%s, want failed/cancelled", item.Status, item.ErrorKind)
	}

	remaining, err := store.List(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected second item untouched, got %d pending", len(remaining))
	}
}
