package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"discmapper/internal/config"
	"discmapper/internal/logging"
	"discmapper/internal/queue"
	"discmapper/internal/ripjob"
	"discmapper/internal/services"
)

// Processor runs one rip job to completion and reports the outcome.
// Production uses a ripjob.Machine; tests substitute scripted results.
type Processor interface {
	Run(ctx context.Context, item *queue.Item) *ripjob.Summary
}

// ProcessorFactory builds a Processor for one claimed item. The progress
// callback persists phase updates on the item while the job runs.
type ProcessorFactory func(progress func(phase ripjob.Phase, message string)) (Processor, error)

// Runner claims pending queue items in order and processes them until the
// context is cancelled or, in single-pass mode, the queue drains.
type Runner struct {
	cfg     *config.Config
	store   *queue.Store
	factory ProcessorFactory
	logger  *slog.Logger

	runID string
	clock func() time.Time
}

// NewRunner wires a runner over the store. The factory is invoked once per
// claimed item.
func NewRunner(cfg *config.Config, store *queue.Store, factory ProcessorFactory, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if store == nil {
		return nil, errors.New("queue store required")
	}
	if factory == nil {
		return nil, errors.New("processor factory required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		store:   store,
		factory: factory,
		logger:  logging.NewComponentLogger(logger, "workflow"),
		runID:   uuid.NewString(),
		clock:   time.Now,
	}, nil
}

// RunID returns the correlation identifier stamped on every item this runner
// processes.
func (r *Runner) RunID() string {
	return r.runID
}

// Run drains the queue continuously until ctx is cancelled. An empty queue
// sleeps for the configured poll interval; store errors back off and retry.
// Job failures mark the item failed and the loop moves on.
func (r *Runner) Run(ctx context.Context) error {
	log := logging.WithContext(services.WithRunID(ctx, r.runID), r.logger)
	log.Info("runner started",
		logging.String("db", r.store.Path()),
		logging.Int("poll_interval_s", r.cfg.Workflow.QueuePollInterval))

	for {
		processed, err := r.RunOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("runner stopped")
				return nil
			}
			log.Error("queue access failed", logging.Error(err))
			if serr := r.sleep(ctx, time.Duration(r.cfg.Workflow.ErrorRetryInterval)*time.Second); serr != nil {
				return nil
			}
			continue
		}
		if processed {
			continue
		}
		if err := r.sleep(ctx, time.Duration(r.cfg.Workflow.QueuePollInterval)*time.Second); err != nil {
			log.Info("runner stopped")
			return nil
		}
	}
}

// Drain processes pending items until the queue is empty, then returns the
// number of items processed. Used by one-shot CLI invocations.
func (r *Runner) Drain(ctx context.Context) (int, error) {
	processed := 0
	for {
		ok, err := r.RunOnce(ctx)
		if err != nil {
			return processed, err
		}
		if !ok {
			return processed, nil
		}
		processed++
	}
}

// RunOnce claims and processes at most one pending item. It reports whether
// an item was processed. Only store and context errors surface; the job's
// own failure lands on the item.
func (r *Runner) RunOnce(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	item, err := r.store.NextPending(ctx)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}
	return true, r.process(ctx, item)
}

func (r *Runner) process(ctx context.Context, item *queue.Item) error {
	jobCtx := services.WithRunID(services.WithJobID(ctx, item.ID), r.runID)
	log := logging.WithContext(jobCtx, r.logger)

	claimed, err := r.store.Transition(ctx, item.ID, queue.StatusActive, "", "")
	if err != nil {
		return err
	}
	claimed.RunID = r.runID
	if err := r.store.Update(ctx, claimed); err != nil {
		return err
	}

	log.Info("job claimed", logging.String("job", claimed.Display()))

	proc, err := r.factory(func(phase ripjob.Phase, message string) {
		claimed.ProgressPhase = phase.String()
		claimed.ProgressMessage = message
		if uerr := r.store.Update(ctx, claimed); uerr != nil {
			log.Warn("progress update failed", logging.Error(uerr))
		}
	})
	if err != nil {
		log.Error("processor construction failed", logging.Error(err))
		if _, terr := r.store.Transition(ctx, item.ID, queue.StatusFailed, "", err.Error()); terr != nil {
			log.Error("failure transition failed", logging.Error(terr))
		}
		return nil
	}

	sum := proc.Run(jobCtx, claimed)
	return r.record(ctx, claimed, sum, log)
}

// record persists the job outcome. The runner keeps going even when the
// bookkeeping writes fail; the summary was already logged by the machine.
func (r *Runner) record(ctx context.Context, item *queue.Item, sum *ripjob.Summary, log *slog.Logger) error {
	if len(sum.Review) > 0 {
		if data, err := json.Marshal(sum.Review); err == nil {
			item.ReviewJSON = string(data)
		}
	}
	if err := r.store.Update(ctx, item); err != nil {
		log.Warn("review update failed", logging.Error(err))
	}

	if sum.FinalStatus == queue.StatusDone {
		if _, err := r.store.Transition(ctx, item.ID, queue.StatusDone, "", ""); err != nil {
			log.Error("done transition failed", logging.Error(err))
		}
		return nil
	}

	kind, message := "", ""
	if sum.Failure != nil {
		kind = string(sum.Failure.Kind)
		message = sum.Failure.Error()
	}
	if _, err := r.store.Transition(ctx, item.ID, queue.StatusFailed, kind, message); err != nil {
		log.Error("failure transition failed", logging.Error(err))
	}
	if sum.Failure != nil && sum.Failure.Kind == ripjob.FailureCancelled {
		return context.Canceled
	}
	return nil
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
