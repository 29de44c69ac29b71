package organizer

import (
	"context"
	"log/slog"
	"path/filepath"

	"discmapper/internal/fileutil"
	"discmapper/internal/logging"
)

// Commit executes a plan's moves in order through the safe mover. It returns
// the number of moves that landed; a non-nil error means the remaining moves
// were not attempted and the committed ones stay in place. Cancellation stops
// between moves and mid-retry, never mid-rename. Sidecar receipt failures are
// logged and do not fail the move.
func Commit(ctx context.Context, mover *fileutil.Mover, plan Plan, logger *slog.Logger) (int, error) {
	log := logging.NewComponentLogger(logger, "organizer")
	for i, move := range plan.Moves {
		if err := mover.Move(ctx, move.Source, move.Dest); err != nil {
			return i, err
		}
		if move.Sidecar != nil {
			if err := WriteSidecar(move.Dest, move.Sidecar); err != nil {
				log.Warn("sidecar write failed",
					logging.String("dest", move.Dest),
					logging.Error(err))
			}
		}
	}
	return len(plan.Moves), nil
}

// ArchiveJobDir relocates a finished or troubled job directory into a
// terminal staging area (done, review, unable), suffixing on collision.
// It returns the final location.
func ArchiveJobDir(ctx context.Context, mover *fileutil.Mover, jobDir, targetRoot string) (string, error) {
	dest := fileutil.UniquePath(filepath.Join(targetRoot, filepath.Base(jobDir)))
	if err := mover.Move(ctx, jobDir, dest); err != nil {
		return "", err
	}
	return dest, nil
}
