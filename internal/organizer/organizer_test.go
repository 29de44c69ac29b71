package organizer_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"discmapper/internal/config"
	"discmapper/internal/fileutil"
	"discmapper/internal/logging"
	"discmapper/internal/manifest"
	"discmapper/internal/organizer"
	"discmapper/internal/testsupport"
)

func allNaming() config.Naming {
	return config.Naming{
		IncludeYear:     true,
		IncludeIMDBID:   true,
		AppendDiscIndex: true,
		WriteSidecar:    true,
	}
}

func newMover(t *testing.T) *fileutil.Mover {
	t.Helper()
	return fileutil.NewMover(3, time.Millisecond, logging.NewNop())
}

func TestSafeFilenameStripsIllegalCharacters(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`Pilot: Part 1`, "Pilot_ Part 1"},
		{`What/If?`, "What_If_"},
		{"  spaced   out  ", "spaced out"},
		{`a<b>c"d`, "a_b_c_d"},
	}
	for _, tc := range cases {
		if got := organizer.SafeFilename(tc.in); got != tc.want {
			t.Errorf("SafeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPlanMovieBuildsPlexLayout(t *testing.T) {
	ready := t.TempDir()
	plan := organizer.PlanMovie(ready, allNaming(), false, organizer.MovieJob{
		Title:    "Heat",
		Year:     1995,
		IMDBID:   "tt0113277",
		PkgIndex: 12,
	}, organizer.Output{Path: "/staging/job/title_t00.mkv"})

	if len(plan.Moves) != 1 {
		t.Fatalf("expected 1 move, got %d", len(plan.Moves))
	}
	want := filepath.Join(ready,
		"Heat (1995) {imdb-tt0113277} [IDX12]",
		"Heat (1995) {imdb-tt0113277} [IDX12].mkv")
	if plan.Moves[0].Dest != want {
		t.Fatalf("dest = %q, want %q", plan.Moves[0].Dest, want)
	}
	if plan.Moves[0].Sidecar == nil {
		t.Fatal("expected sidecar payload")
	}
}

func TestPlanMovieOmitsOptionalTags(t *testing.T) {
	ready := t.TempDir()
	plan := organizer.PlanMovie(ready, config.Naming{}, false, organizer.MovieJob{
		Title:    "Heat",
		Year:     1995,
		IMDBID:   "tt0113277",
		PkgIndex: 12,
	}, organizer.Output{Path: "/staging/job/title_t00.mkv"})

	want := filepath.Join(ready, "Heat", "Heat.mkv")
	if plan.Moves[0].Dest != want {
		t.Fatalf("dest = %q, want %q", plan.Moves[0].Dest, want)
	}
	if plan.Moves[0].Sidecar != nil {
		t.Fatal("expected no sidecar when disabled")
	}
}

func TestPlanTVNamesEpisodes(t *testing.T) {
	ready := t.TempDir()
	job := organizer.TVJob{
		Series:   "The Wire",
		Season:   1,
		Disc:     1,
		ShowYear: 2002,
		IMDBID:   "tt0306414",
	}
	pairs := []organizer.EpisodePair{
		{
			Episode: manifest.Episode{
				Series: "The Wire", Season: 1, Disc: 1,
				EpisodeNumber: 1, Title: "The Target", SxxEyy: "S01E01", DiscIndex: 3,
			},
			Output: organizer.Output{Path: "/staging/job/title_t00.mkv", Name: "title_t00.mkv", TitleIndex: 0},
		},
		{
			Episode: manifest.Episode{
				Series: "The Wire", Season: 1, Disc: 1,
				EpisodeNumber: 2, Title: "The Detail",
			},
			Output: organizer.Output{Path: "/staging/job/title_t01.mkv", Name: "title_t01.mkv", TitleIndex: 1},
		},
	}

	plan := organizer.PlanTV(ready, allNaming(), false, job, pairs)
	if len(plan.Moves) != 2 {
		t.Fatalf("expected 2 moves, got %d", len(plan.Moves))
	}

	seasonDir := filepath.Join(ready, "The Wire (2002) {imdb-tt0306414}", "Season 01")
	if got, want := plan.Moves[0].Dest, filepath.Join(seasonDir, "The Wire - S01E01 - The Target [IDX3].mkv"); got != want {
		t.Fatalf("first dest = %q, want %q", got, want)
	}
	// SxxEyy falls back to the episode number when the manifest omits it.
	if got, want := plan.Moves[1].Dest, filepath.Join(seasonDir, "The Wire - S01E02 - The Detail.mkv"); got != want {
		t.Fatalf("second dest = %q, want %q", got, want)
	}
}

func TestPlanTVResolvesCollisions(t *testing.T) {
	ready := t.TempDir()
	job := organizer.TVJob{Series: "Show", Season: 1}
	ep := manifest.Episode{Series: "Show", Season: 1, EpisodeNumber: 1, SxxEyy: "S01E01"}

	existing := filepath.Join(ready, "Show", "Season 01", "Show - S01E01.mkv")
	testsupport.WriteFile(t, existing, 1)

	plan := organizer.PlanTV(ready, config.Naming{}, false, job, []organizer.EpisodePair{
		{Episode: ep, Output: organizer.Output{Path: "/staging/a.mkv"}},
		{Episode: ep, Output: organizer.Output{Path: "/staging/b.mkv"}},
	})

	first := plan.Moves[0].Dest
	second := plan.Moves[1].Dest
	if first == existing || second == existing || first == second {
		t.Fatalf("collisions unresolved: %q vs %q (existing %q)", first, second, existing)
	}
}

func TestPlanOverwriteReplacesExistingLibraryFile(t *testing.T) {
	ready := t.TempDir()
	job := organizer.TVJob{Series: "Show", Season: 1}
	ep := manifest.Episode{Series: "Show", Season: 1, EpisodeNumber: 1, SxxEyy: "S01E01"}

	existing := filepath.Join(ready, "Show", "Season 01", "Show - S01E01.mkv")
	testsupport.WriteFile(t, existing, 1)

	plan := organizer.PlanTV(ready, config.Naming{}, true, job, []organizer.EpisodePair{
		{Episode: ep, Output: organizer.Output{Path: "/staging/a.mkv"}},
	})
	if plan.Moves[0].Dest != existing {
		t.Fatalf("overwrite should target the canonical name, got %q", plan.Moves[0].Dest)
	}

	canonical := filepath.Join(ready, "Heat", "Heat.mkv")
	testsupport.WriteFile(t, canonical, 1)
	moviePlan := organizer.PlanMovie(ready, config.Naming{}, true, organizer.MovieJob{Title: "Heat"},
		organizer.Output{Path: "/staging/title_t00.mkv"})
	if moviePlan.Moves[0].Dest != canonical {
		t.Fatalf("overwrite should target the canonical name, got %q", moviePlan.Moves[0].Dest)
	}
}

func TestCommitMovesFilesAndWritesSidecars(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "staging", "title_t00.mkv")
	testsupport.WriteFile(t, src, 64)
	dest := filepath.Join(base, "library", "Show", "Season 01", "Show - S01E01.mkv")

	plan := organizer.Plan{Moves: []organizer.Move{{
		Source: src,
		Dest:   dest,
		Sidecar: &organizer.TVSidecar{
			Type: "tv", Series: "Show", Season: 1, SxxEyy: "S01E01",
			SourceFilename: "title_t00.mkv", FinalPath: dest,
		},
	}}}

	committed, err := organizer.Commit(context.Background(), newMover(t), plan, logging.NewNop())
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if committed != 1 {
		t.Fatalf("expected 1 committed move, got %d", committed)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("dest missing: %v", err)
	}

	raw, err := os.ReadFile(organizer.SidecarPath(dest))
	if err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	var sidecar organizer.TVSidecar
	if err := json.Unmarshal(raw, &sidecar); err != nil {
		t.Fatalf("sidecar unmarshal: %v", err)
	}
	if sidecar.Series != "Show" || sidecar.FinalPath != dest {
		t.Fatalf("unexpected sidecar: %#v", sidecar)
	}
}

func TestCommitStopsAtFirstFailureKeepingEarlierMoves(t *testing.T) {
	base := t.TempDir()
	srcA := filepath.Join(base, "staging", "a.mkv")
	testsupport.WriteFile(t, srcA, 16)
	destA := filepath.Join(base, "library", "a.mkv")

	plan := organizer.Plan{Moves: []organizer.Move{
		{Source: srcA, Dest: destA},
		{Source: filepath.Join(base, "staging", "missing.mkv"), Dest: filepath.Join(base, "library", "b.mkv")},
	}}

	committed, err := organizer.Commit(context.Background(), newMover(t), plan, logging.NewNop())
	if err == nil {
		t.Fatal("expected commit error")
	}
	if committed != 1 {
		t.Fatalf("expected 1 committed move before failure, got %d", committed)
	}
	if _, statErr := os.Stat(destA); statErr != nil {
		t.Fatalf("committed move rolled back: %v", statErr)
	}
}

func TestSelectKeeperPicksLargestInLongestCluster(t *testing.T) {
	outputs := []organizer.Output{
		{Path: "t00", DurationSeconds: 7200, SizeBytes: 20 << 30},
		{Path: "t01", DurationSeconds: 7201, SizeBytes: 25 << 30},
		{Path: "t02", DurationSeconds: 600, SizeBytes: 1 << 30},
	}
	res := organizer.SelectKeeper(outputs, 3600)
	if res.Review {
		t.Fatalf("unexpected review: %s", res.Reason)
	}
	if res.Keeper.Path != "t01" {
		t.Fatalf("keeper = %s, want t01", res.Keeper.Path)
	}
}

func TestSelectKeeperRoutesDistinctCutsToReview(t *testing.T) {
	outputs := []organizer.Output{
		{Path: "theatrical", DurationSeconds: 7200, SizeBytes: 20 << 30},
		{Path: "extended", DurationSeconds: 7600, SizeBytes: 22 << 30},
	}
	res := organizer.SelectKeeper(outputs, 3600)
	if !res.Review {
		t.Fatal("expected review for distinct cuts")
	}
}

func TestSelectKeeperRequiresMinimumLength(t *testing.T) {
	outputs := []organizer.Output{
		{Path: "short", DurationSeconds: 300, SizeBytes: 1 << 20},
	}
	res := organizer.SelectKeeper(outputs, 3600)
	if !res.Review || res.Reason != "no_candidate_over_min_length" {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestArchiveJobDirSuffixesOnCollision(t *testing.T) {
	base := t.TempDir()
	jobDir := filepath.Join(base, "staging", "JOB_1")
	testsupport.WriteFile(t, filepath.Join(jobDir, "rip.log"), 8)
	doneRoot := filepath.Join(base, "done")
	if err := os.MkdirAll(filepath.Join(doneRoot, "JOB_1"), 0o755); err != nil {
		t.Fatal(err)
	}

	dest, err := organizer.ArchiveJobDir(context.Background(), newMover(t), jobDir, doneRoot)
	if err != nil {
		t.Fatalf("ArchiveJobDir failed: %v", err)
	}
	if dest == filepath.Join(doneRoot, "JOB_1") {
		t.Fatalf("expected collision suffix, got %q", dest)
	}
	if _, err := os.Stat(filepath.Join(dest, "rip.log")); err != nil {
		t.Fatalf("job contents missing after archive: %v", err)
	}
}
