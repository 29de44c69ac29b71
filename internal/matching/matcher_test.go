package matching

import (
	"reflect"
	"testing"
)

func tvEpisodes(season int, typical, window float64, count int, start int) []Episode {
	eps := make([]Episode, 0, count)
	for i := 0; i < count; i++ {
		eps = append(eps, Episode{
			Season:                season,
			Episode:               start + i,
			TypicalRuntimeSeconds: typical,
			MinLengthSeconds:      60,
			WindowSeconds:         window,
		})
	}
	return eps
}

func candidateList(durations ...float64) []Candidate {
	cands := make([]Candidate, 0, len(durations))
	for i, d := range durations {
		cands = append(cands, Candidate{TitleID: i, DurationSeconds: d})
	}
	return cands
}

func TestMatchPartialDisc(t *testing.T) {
	episodes := append(tvEpisodes(1, 1200, 30, 3, 1), Episode{
		Season: 1, Episode: 4, TypicalRuntimeSeconds: 1800, MinLengthSeconds: 60, WindowSeconds: 60,
	})
	candidates := candidateList(1200, 1205, 1800, 300, 1210, 90)

	result := Match(candidates, episodes, Options{MinLengthFloorSeconds: 60})

	if len(result.Assignments) != 4 {
		t.Fatalf("expected 4 assignments, got %d", len(result.Assignments))
	}
	wantDurations := map[int]float64{1: 1200, 2: 1205, 3: 1210, 4: 1800}
	for _, a := range result.Assignments {
		want, ok := wantDurations[a.Episode.Episode]
		if !ok {
			t.Fatalf("unexpected episode %d matched", a.Episode.Episode)
		}
		if a.Candidate.DurationSeconds != want {
			t.Fatalf("episode %d: expected candidate duration %v, got %v",
				a.Episode.Episode, want, a.Candidate.DurationSeconds)
		}
	}
	if len(result.UnmatchedCandidates) != 2 {
		t.Fatalf("expected 2 unmatched candidates, got %d", len(result.UnmatchedCandidates))
	}
	got := []float64{
		result.UnmatchedCandidates[0].DurationSeconds,
		result.UnmatchedCandidates[1].DurationSeconds,
	}
	if got[0] != 300 || got[1] != 90 {
		t.Fatalf("expected 300 and 90 unmatched in disc order, got %v", got)
	}
	if len(result.UnmatchedEpisodes) != 0 {
		t.Fatalf("expected no unmatched episodes, got %v", result.UnmatchedEpisodes)
	}
}

func TestMatchAssignmentsAreUnique(t *testing.T) {
	episodes := tvEpisodes(2, 1400, 120, 5, 1)
	candidates := candidateList(1390, 1400, 1410, 1395, 1405, 1400, 1402)

	result := Match(candidates, episodes, Options{})

	seenEpisode := map[int]bool{}
	seenTitle := map[int]bool{}
	for _, a := range result.Assignments {
		if seenEpisode[a.Episode.Episode] {
			t.Fatalf("episode %d assigned twice", a.Episode.Episode)
		}
		if seenTitle[a.Candidate.TitleID] {
			t.Fatalf("candidate %d assigned twice", a.Candidate.TitleID)
		}
		seenEpisode[a.Episode.Episode] = true
		seenTitle[a.Candidate.TitleID] = true
	}
	if len(result.Assignments)+len(result.UnmatchedCandidates) != len(candidates) {
		t.Fatal("every eligible candidate must be either matched or reported unmatched")
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	episodes := tvEpisodes(1, 1200, 60, 4, 1)
	// Equal-cost ties: several candidates at the same distance from typical.
	candidates := candidateList(1230, 1170, 1230, 1170, 1200)

	first := Match(candidates, episodes, Options{})
	for i := 0; i < 10; i++ {
		again := Match(candidates, episodes, Options{})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced a different result", i)
		}
	}
}

func TestMatchTieBreaksToEarlierDiscOrder(t *testing.T) {
	episodes := tvEpisodes(1, 1200, 60, 1, 1)
	candidates := candidateList(1230, 1170)

	result := Match(candidates, episodes, Options{})
	if len(result.Assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(result.Assignments))
	}
	if result.Assignments[0].Candidate.TitleID != 0 {
		t.Fatalf("equal cost must resolve to the earlier disc title, got title %d",
			result.Assignments[0].Candidate.TitleID)
	}
}

func TestMatchWindowBoundary(t *testing.T) {
	episodes := []Episode{{
		Season: 1, Episode: 1,
		TypicalRuntimeSeconds: 1200,
		MinLengthSeconds:      60,
		WindowSeconds:         30,
	}}

	onEdge := Match(candidateList(1230), episodes, Options{})
	if len(onEdge.Assignments) != 1 {
		t.Fatal("candidate exactly at typical+window must be eligible")
	}

	pastEdge := Match(candidateList(1231), episodes, Options{})
	if len(pastEdge.Assignments) != 0 {
		t.Fatal("candidate one second past the window must be ineligible")
	}
	if len(pastEdge.UnmatchedEpisodes) != 1 {
		t.Fatal("the episode should be reported unmatched")
	}
	if len(pastEdge.UnmatchedCandidates) != 1 {
		t.Fatal("the candidate should be reported for review")
	}
}

func TestMatchFiltersBelowFloor(t *testing.T) {
	episodes := []Episode{{
		Season: 1, Episode: 1,
		TypicalRuntimeSeconds: 300,
		MinLengthSeconds:      240,
		WindowSeconds:         60,
	}}
	candidates := candidateList(30, 290)

	result := Match(candidates, episodes, Options{})
	if len(result.FilteredCandidates) != 1 || result.FilteredCandidates[0].DurationSeconds != 30 {
		t.Fatalf("expected the 30s menu title filtered, got %v", result.FilteredCandidates)
	}
	if len(result.Assignments) != 1 || result.Assignments[0].Candidate.DurationSeconds != 290 {
		t.Fatalf("expected the 290s title matched, got %v", result.Assignments)
	}
}

func TestMatchPrefersCheaperGlobalAssignment(t *testing.T) {
	// Episode 1 greedily takes the 1205 title, but episode 2's narrow window
	// only admits 1205. The matcher must reassign episode 1 to 1208 so both
	// episodes end up matched.
	episodes := []Episode{
		{Season: 1, Episode: 1, TypicalRuntimeSeconds: 1200, WindowSeconds: 10},
		{Season: 1, Episode: 2, TypicalRuntimeSeconds: 1205, WindowSeconds: 1},
	}
	candidates := candidateList(1205, 1208)

	result := Match(candidates, episodes, Options{})
	if len(result.Assignments) != 2 {
		t.Fatalf("expected both episodes matched, got %d", len(result.Assignments))
	}
	for _, a := range result.Assignments {
		switch a.Episode.Episode {
		case 1:
			if a.Candidate.DurationSeconds != 1208 {
				t.Fatalf("episode 1 should yield 1205 and take 1208, got %v", a.Candidate.DurationSeconds)
			}
		case 2:
			if a.Candidate.DurationSeconds != 1205 {
				t.Fatalf("episode 2 needs 1205, got %v", a.Candidate.DurationSeconds)
			}
		}
	}
}
