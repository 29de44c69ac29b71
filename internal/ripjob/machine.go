package ripjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"discmapper/internal/config"
	"discmapper/internal/disc"
	"discmapper/internal/fileutil"
	"discmapper/internal/logging"
	"discmapper/internal/manifest"
	"discmapper/internal/matching"
	"discmapper/internal/media/ffprobe"
	"discmapper/internal/organizer"
	"discmapper/internal/queue"
	"discmapper/internal/services"
	"discmapper/internal/services/makemkv"
)

// Deps collects the machine's collaborators. Everything hardware- or
// subprocess-facing enters through an interface; in dry-run mode the
// hardware collaborators may be nil.
type Deps struct {
	Config   *config.Config
	Monitor  disc.Monitor
	Ripper   makemkv.Ripper
	Prober   ffprobe.Prober
	Mover    *fileutil.Mover
	Ejector  disc.Ejector
	Manifest *manifest.Index
	Logger   *slog.Logger

	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	DryRun bool

	// Progress is invoked on phase progress worth persisting to the queue.
	Progress func(phase Phase, message string)
}

// Machine runs one rip job to a terminal state.
type Machine struct {
	cfg      *config.Config
	monitor  disc.Monitor
	ripper   makemkv.Ripper
	prober   ffprobe.Prober
	mover    *fileutil.Mover
	ejector  disc.Ejector
	index    *manifest.Index
	logger   *slog.Logger
	clock    func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	dryRun   bool
	progress func(phase Phase, message string)
}

// NewMachine validates collaborators and returns a ready machine.
func NewMachine(deps Deps) (*Machine, error) {
	if deps.Config == nil {
		return nil, services.Wrap(services.ErrValidation, "ripjob", "new", "config is required", nil)
	}
	if !deps.DryRun {
		if deps.Monitor == nil {
			return nil, services.Wrap(services.ErrValidation, "ripjob", "new", "drive monitor is required", nil)
		}
		if deps.Ripper == nil {
			return nil, services.Wrap(services.ErrValidation, "ripjob", "new", "ripper is required", nil)
		}
		if deps.Prober == nil {
			return nil, services.Wrap(services.ErrValidation, "ripjob", "new", "duration prober is required", nil)
		}
	}

	m := &Machine{
		cfg:      deps.Config,
		monitor:  deps.Monitor,
		ripper:   deps.Ripper,
		prober:   deps.Prober,
		mover:    deps.Mover,
		ejector:  deps.Ejector,
		index:    deps.Manifest,
		logger:   deps.Logger,
		clock:    deps.Clock,
		sleep:    deps.Sleep,
		dryRun:   deps.DryRun,
		progress: deps.Progress,
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if m.mover == nil {
		m.mover = fileutil.NewMover(
			deps.Config.Mover.MaxAttempts,
			time.Duration(deps.Config.Mover.RetryDelayMsec)*time.Millisecond,
			m.logger,
		)
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.sleep == nil {
		m.sleep = sleepContext
	}
	if m.progress == nil {
		m.progress = func(Phase, string) {}
	}
	return m, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jobState carries the live state of one run between phases.
type jobState struct {
	jobDir      string
	label       string
	outputPaths []string
	outputs     []organizer.Output
	assignments []organizer.EpisodePair
	tvDisc      *manifest.Disc
	plan        organizer.Plan
	committed   int
	review      []ReviewEntry
	// routeDir receives the job directory on failure; defaults to the
	// unable staging area, review cases override it.
	routeDir string
}

// Run drives the job to a terminal state and returns its summary. The
// returned summary always exists; a failed job carries a Failure and the
// controller decides what to do with the queue item.
func (m *Machine) Run(ctx context.Context, job *queue.Item) *Summary {
	rec := newRecorder(m.clock)
	log := logging.NewComponentLogger(m.logger, "ripjob").With(
		logging.Int64("job_id", job.ID),
		logging.String("job_kind", string(job.Kind)),
		logging.String("job", job.Display()),
	)
	st := &jobState{routeDir: m.cfg.UnableDir()}

	err := m.execute(ctx, job, st, rec, log)

	sum := rec.summary
	sum.JobID = job.ID
	sum.RunID = job.RunID
	sum.Review = st.review
	sum.RawKept = m.cfg.Policy.KeepRaw

	if err != nil {
		failure := classify(rec.phase, err)
		sum.Failure = failure
		sum.FinalStatus = queue.StatusFailed
		rec.transition(PhaseFailed, failure.Error())
		log.Error("job failed",
			logging.String("failure_kind", string(failure.Kind)),
			logging.String("phase", failure.Phase.String()),
			logging.Error(failure.Err))
		m.routeFailedJobDir(ctx, st, failure, log)
		if m.cfg.Policy.EjectOnError && failure.Kind != FailureCancelled {
			m.eject(ctx, rec, sum, log)
		}
	} else {
		sum.FinalStatus = queue.StatusDone
	}

	m.logSummary(log, sum)
	return sum
}

func (m *Machine) execute(ctx context.Context, job *queue.Item, st *jobState, rec *recorder, log *slog.Logger) error {
	rec.transition(PhaseWaitForDisc, "")
	m.progress(PhaseWaitForDisc, "waiting for disc")
	if err := m.waitForDisc(ctx, log); err != nil {
		return err
	}

	rec.transition(PhaseDiscDetected, "")
	if err := m.settle(ctx, st, log); err != nil {
		return err
	}

	rec.transition(PhaseRip, st.label)
	m.progress(PhaseRip, "ripping")
	if err := m.rip(ctx, job, st, log); err != nil {
		return err
	}

	rec.transition(PhaseVerifyOutputs, fmt.Sprintf("%d outputs", len(st.outputPaths)))
	m.progress(PhaseVerifyOutputs, "verifying outputs")
	if err := m.verify(ctx, job, st, log); err != nil {
		return err
	}

	rec.transition(PhasePlanRename, "")
	if err := m.planRename(job, st); err != nil {
		return err
	}

	rec.transition(PhaseCommitMoves, fmt.Sprintf("%d moves", len(st.plan.Moves)))
	m.progress(PhaseCommitMoves, "committing moves")
	if err := m.commit(ctx, st, log); err != nil {
		return err
	}

	m.finishStaging(ctx, st, log)

	if m.cfg.Policy.EjectOnSuccess {
		m.eject(ctx, rec, rec.summary, log)
	}
	rec.transition(PhaseDone, "")
	return nil
}

// waitForDisc polls drive status until media is present, the wait budget is
// spent, or the run is cancelled. Cancellation is only observable at poll
// ticks; a tick in flight completes first.
func (m *Machine) waitForDisc(ctx context.Context, log *slog.Logger) error {
	if m.dryRun {
		return nil
	}
	poll := time.Duration(m.cfg.Timing.PollIntervalSeconds) * time.Second
	deadline := m.clock().Add(time.Duration(m.cfg.Timing.MaxWaitMinutes) * time.Minute)
	for {
		status, err := m.monitor.Status()
		if err != nil {
			log.Warn("drive status check failed", logging.Error(err))
		} else if status == disc.DriveStatusDiscOK {
			return nil
		}
		if !m.clock().Before(deadline) {
			return newFailure(FailureTimeout, PhaseWaitForDisc,
				fmt.Errorf("no disc after %d minutes", m.cfg.Timing.MaxWaitMinutes))
		}
		if err := m.sleep(ctx, poll); err != nil {
			return newFailure(FailureCancelled, PhaseWaitForDisc, err)
		}
	}
}

func (m *Machine) settle(ctx context.Context, st *jobState, log *slog.Logger) error {
	if m.dryRun {
		return nil
	}
	settle := time.Duration(m.cfg.Timing.DiscSettleSeconds) * time.Second
	if err := m.sleep(ctx, settle); err != nil {
		return newFailure(FailureCancelled, PhaseDiscDetected, err)
	}
	label, err := disc.ReadLabel(ctx, m.cfg.MakeMKV.OpticalDrive,
		time.Duration(m.cfg.MakeMKV.InfoTimeout)*time.Second)
	if err != nil {
		log.Warn("disc label read failed", logging.Error(err))
		return nil
	}
	st.label = label
	log.Info("disc detected", logging.String("label", label))
	return nil
}

func (m *Machine) rip(ctx context.Context, job *queue.Item, st *jobState, log *slog.Logger) error {
	st.jobDir = filepath.Join(m.cfg.RawDir(), m.jobDirName(job))
	if err := os.MkdirAll(st.jobDir, 0o755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}

	if m.dryRun {
		fake := filepath.Join(st.jobDir, "title_t00.mkv")
		if err := os.WriteFile(fake, []byte("discmapper dry run\n"), 0o644); err != nil {
			return fmt.Errorf("write dry-run output: %w", err)
		}
		st.outputPaths = []string{fake}
		return nil
	}

	minLen, err := m.minLengthFor(job, st)
	if err != nil {
		return err
	}
	paths, ripErr := m.ripper.RipAll(ctx, m.cfg.MakeMKV.DriveIndex, st.jobDir, minLen,
		func(update makemkv.ProgressUpdate) {
			m.progress(PhaseRip, update.Message)
		})
	st.outputPaths = paths
	if ripErr != nil {
		if errors.Is(ripErr, context.Canceled) {
			return newFailure(FailureCancelled, PhaseRip, ripErr)
		}
		return newFailure(FailureRipToolError, PhaseRip,
			fmt.Errorf("%d outputs before failure: %w", len(paths), ripErr))
	}

	settle := time.Duration(m.cfg.Timing.PostRipSettleSeconds) * time.Second
	if err := m.sleep(ctx, settle); err != nil {
		return newFailure(FailureCancelled, PhaseRip, err)
	}
	log.Info("rip complete", logging.Int("outputs", len(paths)))
	return nil
}

// minLengthFor resolves the rip length filter. TV discs derive it from the
// manifest so short episodes survive; movies use the configured floor.
func (m *Machine) minLengthFor(job *queue.Item, st *jobState) (int, error) {
	if job.Kind != queue.KindTVDisc {
		if m.cfg.MakeMKV.MinLengthSeconds > 0 {
			return m.cfg.MakeMKV.MinLengthSeconds, nil
		}
		return m.cfg.Matching.RipFloorMinutes * 60, nil
	}
	d, err := m.manifestDisc(job)
	if err != nil {
		return 0, err
	}
	st.tvDisc = d
	return d.MinLengthSeconds(
		m.cfg.Matching.RipFloorMinutes,
		m.cfg.Matching.MinLengthBufferMinutes,
		m.cfg.Matching.ManifestDrivenMinLength,
	), nil
}

func (m *Machine) manifestDisc(job *queue.Item) (*manifest.Disc, error) {
	if m.index == nil {
		return nil, services.Wrap(services.ErrValidation, "ripjob", "manifest", "no manifest loaded for tv job", nil)
	}
	d, ok := m.index.Disc(job.DiscKey)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "ripjob", "manifest",
			fmt.Sprintf("disc key %q not in manifest", job.DiscKey), nil)
	}
	return d, nil
}

func (m *Machine) verify(ctx context.Context, job *queue.Item, st *jobState, log *slog.Logger) error {
	if len(st.outputPaths) == 0 {
		return newFailure(FailureNoValidOutput, PhaseVerifyOutputs, errors.New("no mkv files produced"))
	}

	outputs := make([]organizer.Output, 0, len(st.outputPaths))
	for _, path := range st.outputPaths {
		info, err := os.Stat(path)
		if err != nil {
			return newFailure(FailureNoValidOutput, PhaseVerifyOutputs, fmt.Errorf("stat output: %w", err))
		}
		if info.Size() == 0 {
			return newFailure(FailureNoValidOutput, PhaseVerifyOutputs,
				fmt.Errorf("zero-byte output %s", filepath.Base(path)))
		}

		out := organizer.Output{
			Path:      path,
			Name:      filepath.Base(path),
			SizeBytes: info.Size(),
		}
		if idx, ok := makemkv.TitleIndex(out.Name); ok {
			out.TitleIndex = idx
		}
		if !m.dryRun {
			probe, err := m.prober.Probe(ctx, path)
			if err != nil {
				// Unknown duration excludes the title from matching but
				// is not fatal to the job.
				log.Warn("duration probe failed",
					logging.String("file", out.Name), logging.Error(err))
				st.review = append(st.review, ReviewEntry{
					Kind:   "unprobed_title",
					Detail: out.Name,
				})
				continue
			}
			out.DurationSeconds = probe.DurationSeconds
		}
		outputs = append(outputs, out)
	}
	if len(outputs) == 0 {
		return newFailure(FailureNoValidOutput, PhaseVerifyOutputs, errors.New("no probeable outputs"))
	}
	st.outputs = outputs

	if job.Kind == queue.KindTVDisc {
		return m.matchEpisodes(job, st, log)
	}
	return nil
}

// matchEpisodes builds per-episode runtime windows from the manifest and the
// probed outputs, then assigns titles to episodes. Unmatched episodes and
// titles are review material, not errors; a disc with zero matches has no
// usable output.
func (m *Machine) matchEpisodes(job *queue.Item, st *jobState, log *slog.Logger) error {
	d := st.tvDisc
	if d == nil {
		var err error
		if d, err = m.manifestDisc(job); err != nil {
			return err
		}
		st.tvDisc = d
	}

	if m.dryRun {
		// No real durations exist; pair the synthesized output with the
		// first episode so the plan and commit phases still exercise.
		if len(d.Episodes) > 0 && len(st.outputs) > 0 {
			st.assignments = []organizer.EpisodePair{{Episode: d.Episodes[0], Output: st.outputs[0]}}
		}
		return nil
	}

	floor := d.MinLengthSeconds(
		m.cfg.Matching.RipFloorMinutes,
		m.cfg.Matching.MinLengthBufferMinutes,
		m.cfg.Matching.ManifestDrivenMinLength,
	)

	durations := make([]int, 0, len(st.outputs))
	for _, out := range st.outputs {
		if out.DurationSeconds >= floor {
			durations = append(durations, out.DurationSeconds)
		}
	}
	typical, _ := manifest.TypicalRuntimeSeconds(durations)

	episodes := d.EpisodeWindows(typical, manifest.WindowParams{
		ManifestBufferMinutes: m.cfg.Matching.ManifestBufferMinutes,
		TypicalBufferMinutes:  m.cfg.Matching.TypicalBufferMinutes,
		SpecialDeltaMinutes:   m.cfg.Matching.SpecialDeltaMinutes,
	})

	candidates := make([]matching.Candidate, len(st.outputs))
	for i, out := range st.outputs {
		candidates[i] = matching.Candidate{
			TitleID:         out.TitleIndex,
			Path:            out.Path,
			DurationSeconds: float64(out.DurationSeconds),
		}
	}

	result := matching.Match(candidates, episodes, matching.Options{
		MinLengthFloorSeconds: float64(floor),
	})

	for _, ep := range result.UnmatchedEpisodes {
		st.review = append(st.review, ReviewEntry{
			Kind:   "unmatched_episode",
			Detail: fmt.Sprintf("S%02dE%02d", ep.Season, ep.Episode),
		})
	}
	for _, cand := range result.UnmatchedCandidates {
		st.review = append(st.review, ReviewEntry{
			Kind:   "unmatched_title",
			Detail: filepath.Base(cand.Path),
		})
	}

	if len(result.Assignments) == 0 {
		st.routeDir = m.cfg.ReviewDir()
		return newFailure(FailureNoValidOutput, PhaseVerifyOutputs,
			errors.New("no title matched any episode window"))
	}

	byPath := make(map[string]organizer.Output, len(st.outputs))
	for _, out := range st.outputs {
		byPath[out.Path] = out
	}
	epByKey := make(map[[2]int]manifest.Episode, len(d.Episodes))
	for _, ep := range d.Episodes {
		epByKey[[2]int{ep.Season, ep.EpisodeNumber}] = ep
	}

	pairs := make([]organizer.EpisodePair, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		ep, ok := epByKey[[2]int{a.Episode.Season, a.Episode.Episode}]
		if !ok {
			continue
		}
		pairs = append(pairs, organizer.EpisodePair{
			Episode: ep,
			Output:  byPath[a.Candidate.Path],
		})
	}
	st.assignments = pairs
	log.Info("episodes matched",
		logging.Int("matched", len(pairs)),
		logging.Int("unmatched_episodes", len(result.UnmatchedEpisodes)),
		logging.Int("unmatched_titles", len(result.UnmatchedCandidates)))
	return nil
}

// planRename computes every final destination without touching the
// filesystem. The resulting plan is immutable; commit consumes it verbatim.
func (m *Machine) planRename(job *queue.Item, st *jobState) error {
	switch job.Kind {
	case queue.KindTVDisc:
		d := st.tvDisc
		st.plan = organizer.PlanTV(m.cfg.TVReadyDir(), m.cfg.Naming, m.cfg.Library.OverwriteExisting, organizer.TVJob{
			Series:   d.Series,
			Season:   d.Season,
			Disc:     d.Disc,
			ShowYear: d.ShowYear,
			IMDBID:   d.IMDBID,
			JobDir:   st.jobDir,
		}, st.assignments)
		return nil
	default:
		keeper := st.outputs[0]
		if !m.dryRun {
			res := organizer.SelectKeeper(st.outputs, m.cfg.Matching.MinMainMinutes*60)
			if res.Review {
				st.routeDir = m.cfg.ReviewDir()
				st.review = append(st.review, ReviewEntry{Kind: "keeper_review", Detail: res.Reason})
				return newFailure(FailureNoValidOutput, PhasePlanRename,
					fmt.Errorf("keeper selection needs review: %s", res.Reason))
			}
			keeper = res.Keeper
		}
		st.plan = organizer.PlanMovie(m.cfg.MoviesReadyDir(), m.cfg.Naming, m.cfg.Library.OverwriteExisting, organizer.MovieJob{
			Title:    job.Title,
			Year:     job.Year,
			IMDBID:   job.IMDBID,
			PkgIndex: job.PkgIndex,
			Barcode:  job.Barcode,
			JobDir:   st.jobDir,
		}, keeper)
		return nil
	}
}

// commit applies the plan through the safe mover. In dry-run mode the plan
// is logged but nothing moves. Moves already committed when a later move
// fails stay in place.
func (m *Machine) commit(ctx context.Context, st *jobState, log *slog.Logger) error {
	if m.dryRun {
		for _, move := range st.plan.Moves {
			log.Info("dry-run move",
				logging.String("source", move.Source),
				logging.String("dest", move.Dest))
		}
		st.committed = len(st.plan.Moves)
		return nil
	}

	committed, err := organizer.Commit(ctx, m.mover, st.plan, m.logger)
	st.committed = committed
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return newFailure(FailureCancelled, PhaseCommitMoves,
				fmt.Errorf("%d of %d moves committed: %w", committed, len(st.plan.Moves), err))
		}
		return newFailure(FailureMovePartial, PhaseCommitMoves,
			fmt.Errorf("%d of %d moves committed: %w", committed, len(st.plan.Moves), err))
	}

	if m.cfg.Policy.SafeCommit {
		for _, move := range st.plan.Moves {
			info, statErr := os.Stat(move.Dest)
			if statErr != nil || info.Size() == 0 {
				return newFailure(FailureMovePartial, PhaseCommitMoves,
					fmt.Errorf("commit verification failed for %s", move.Dest))
			}
		}
	}
	return nil
}

// finishStaging disposes of the raw job directory after a successful commit
// according to policy. Failures here are logged, never fatal: the library
// already has the files.
func (m *Machine) finishStaging(ctx context.Context, st *jobState, log *slog.Logger) {
	if m.dryRun || st.jobDir == "" {
		return
	}
	switch {
	case m.cfg.Policy.CleanupOnSuccess && !m.cfg.Policy.KeepRaw:
		if err := os.RemoveAll(st.jobDir); err != nil {
			log.Warn("staging cleanup failed", logging.Error(err))
		}
	default:
		if _, err := os.Stat(st.jobDir); err != nil {
			return
		}
		if _, err := organizer.ArchiveJobDir(ctx, m.mover, st.jobDir, m.cfg.DoneDir()); err != nil {
			log.Warn("raw archive failed", logging.Error(err))
		}
	}
}

// routeFailedJobDir parks whatever the job produced in the unable (or
// review) staging area so a failed disc never litters the raw root.
func (m *Machine) routeFailedJobDir(ctx context.Context, st *jobState, failure *Failure, log *slog.Logger) {
	if m.dryRun || st.jobDir == "" {
		return
	}
	if _, err := os.Stat(st.jobDir); err != nil {
		return
	}
	switch failure.Kind {
	case FailureMovePartial:
		// Leave a partially committed job where it is for inspection.
		return
	case FailureCancelled:
		// An interrupted run keeps its job dir; retry picks it up.
		return
	}
	if _, err := organizer.ArchiveJobDir(ctx, m.mover, st.jobDir, st.routeDir); err != nil {
		log.Warn("failed-job archive failed", logging.Error(err))
	}
}

func (m *Machine) eject(ctx context.Context, rec *recorder, sum *Summary, log *slog.Logger) {
	if m.dryRun || m.ejector == nil {
		return
	}
	rec.transition(PhaseEject, "")
	delay := time.Duration(m.cfg.Timing.EjectDelaySeconds) * time.Second
	if err := m.sleep(ctx, delay); err != nil {
		return
	}
	if err := m.ejector.Eject(ctx, m.cfg.MakeMKV.OpticalDrive); err != nil {
		log.Warn("eject failed", logging.Error(err))
		return
	}
	sum.Ejected = true
}

func (m *Machine) jobDirName(job *queue.Item) string {
	if job.Kind == queue.KindTVDisc {
		return organizer.SafeFilename(fmt.Sprintf("%s - S%02dD%02d - %s",
			job.Series, job.Season, job.Disc, m.clock().Format("20060102_150405")))
	}
	base := organizer.SafeFilename(job.Title)
	if job.Year > 0 {
		base = fmt.Sprintf("%s (%d)", base, job.Year)
	}
	if job.IMDBID != "" {
		base = fmt.Sprintf("%s {imdb-%s}", base, job.IMDBID)
	}
	return base
}

func (m *Machine) logSummary(log *slog.Logger, sum *Summary) {
	log.Info("run summary",
		logging.String("final_status", string(sum.FinalStatus)),
		logging.Duration("wait", sum.WaitDuration),
		logging.Duration("rip", sum.RipDuration),
		logging.Duration("verify", sum.VerifyDuration),
		logging.Duration("move", sum.MoveDuration),
		logging.Bool("raw_kept", sum.RawKept),
		logging.Bool("ejected", sum.Ejected),
		logging.Int("review_items", len(sum.Review)))
}
