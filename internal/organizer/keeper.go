package organizer

import (
	"sort"
)

const (
	// dedupeToleranceSeconds groups near-identical cuts of the same title.
	dedupeToleranceSeconds = 2
	// multiCutThresholdSeconds separates genuinely different cuts; when two
	// clusters differ by more than this the disc goes to review instead of
	// auto-picking.
	multiCutThresholdSeconds = 180
)

// KeeperResult reports the outcome of main-title selection for a movie disc.
type KeeperResult struct {
	Keeper Output
	// Review is set when no keeper can be chosen automatically.
	Review bool
	Reason string
}

// SelectKeeper picks the main movie title from probed rip outputs: the
// largest file inside the longest duration cluster. Outputs shorter than
// minMainSeconds are ignored. Two distinct long cuts more than three minutes
// apart cannot be disambiguated automatically and route to review.
func SelectKeeper(outputs []Output, minMainSeconds int) KeeperResult {
	if len(outputs) == 0 {
		return KeeperResult{Review: true, Reason: "no_mkv_files"}
	}

	candidates := make([]Output, 0, len(outputs))
	for _, out := range outputs {
		if out.DurationSeconds >= minMainSeconds {
			candidates = append(candidates, out)
		}
	}
	if len(candidates) == 0 {
		return KeeperResult{Review: true, Reason: "no_candidate_over_min_length"}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DurationSeconds != candidates[j].DurationSeconds {
			return candidates[i].DurationSeconds > candidates[j].DurationSeconds
		}
		return candidates[i].SizeBytes > candidates[j].SizeBytes
	})

	var clusters [][]Output
	for _, cand := range candidates {
		placed := false
		for i := range clusters {
			if abs(clusters[i][0].DurationSeconds-cand.DurationSeconds) <= dedupeToleranceSeconds {
				clusters[i] = append(clusters[i], cand)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []Output{cand})
		}
	}

	if len(clusters) > 1 {
		gap := clusters[0][0].DurationSeconds - clusters[1][0].DurationSeconds
		if abs(gap) > multiCutThresholdSeconds {
			return KeeperResult{Review: true, Reason: "multiple_distinct_cuts"}
		}
	}

	keeper := clusters[0][0]
	for _, cand := range clusters[0][1:] {
		if cand.SizeBytes > keeper.SizeBytes {
			keeper = cand
		}
	}
	return KeeperResult{Keeper: keeper, Reason: "auto_selected_best_candidate"}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
