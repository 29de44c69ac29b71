package fileutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"discmapper/internal/logging"
)

// MoveFailed reports that a move could not complete after all retry attempts.
type MoveFailed struct {
	Path     string
	Attempts int
	Err      error
}

func (e *MoveFailed) Error() string {
	return fmt.Sprintf("move %s failed after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *MoveFailed) Unwrap() error {
	return e.Err
}

// Mover moves files with bounded retries on transient lock errors and a
// copy-then-delete fallback when source and destination sit on different
// filesystems. The Sleep hook exists so tests can run without real delays;
// when set it replaces the cancellable timer wait between attempts.
type Mover struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Sleep       func(time.Duration)

	logger *slog.Logger
	// Rename is the move primitive, replaceable in tests.
	Rename func(src, dst string) error
}

// NewMover returns a Mover with the given retry budget.
func NewMover(maxAttempts int, retryDelay time.Duration, logger *slog.Logger) *Mover {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mover{
		MaxAttempts: maxAttempts,
		RetryDelay:  retryDelay,
		logger:      logging.NewComponentLogger(logger, "mover"),
		Rename:      os.Rename,
	}
}

// Move relocates src to dst. It is idempotent: when src is already gone and
// dst exists the move is treated as complete. Retryable errors (file busy,
// permission races from an indexer or antivirus holding the file) are retried
// up to MaxAttempts; everything else fails immediately. A cross-device rename
// falls back to a verified copy followed by source removal, so a failure
// never leaves dst holding a partial file. Cancellation is observed at every
// retry tick and surfaces as ctx.Err, not a MoveFailed.
func (m *Mover) Move(ctx context.Context, src, dst string) error {
	if m.Rename == nil {
		m.Rename = os.Rename
	}
	var lastErr error
	for attempt := 1; attempt <= m.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := os.Stat(src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if _, dstErr := os.Stat(dst); dstErr == nil {
					return nil
				}
				return &MoveFailed{Path: src, Attempts: attempt, Err: err}
			}
			lastErr = err
			if !retryable(err) {
				return &MoveFailed{Path: src, Attempts: attempt, Err: err}
			}
			if err := m.backoff(ctx); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return &MoveFailed{Path: src, Attempts: attempt, Err: err}
		}

		err := m.Rename(src, dst)
		if err == nil {
			return nil
		}
		if crossDevice(err) {
			err = m.copyAcross(src, dst)
			if err == nil {
				return nil
			}
		}
		lastErr = err
		if !retryable(err) {
			return &MoveFailed{Path: src, Attempts: attempt, Err: err}
		}
		m.logger.Debug("move attempt failed",
			logging.String("source", src),
			logging.Int("attempt", attempt),
			logging.Error(err))
		if err := m.backoff(ctx); err != nil {
			return err
		}
	}
	return &MoveFailed{Path: src, Attempts: m.MaxAttempts, Err: lastErr}
}

func (m *Mover) backoff(ctx context.Context) error {
	if m.RetryDelay <= 0 {
		return ctx.Err()
	}
	if m.Sleep != nil {
		m.Sleep(m.RetryDelay)
		return ctx.Err()
	}
	timer := time.NewTimer(m.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// copyAcross performs the cross-filesystem fallback: verified copy first,
// source removal only after the copy checks out.
func (m *Mover) copyAcross(src, dst string) error {
	if err := CopyFileVerified(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func crossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, syscall.EBUSY),
		errors.Is(err, syscall.ETXTBSY),
		errors.Is(err, syscall.EAGAIN),
		errors.Is(err, fs.ErrPermission):
		return true
	}
	return false
}
