package matching

import (
	"math"
	"sort"
)

// Episode is one expected episode from the manifest.
type Episode struct {
	Season                int
	Episode               int
	TypicalRuntimeSeconds float64
	MinLengthSeconds      float64
	WindowSeconds         float64
}

// Candidate is one extracted title from the disc, in disc order.
type Candidate struct {
	TitleID         int
	Path            string
	DurationSeconds float64
}

// Assignment pairs a matched episode with its candidate.
type Assignment struct {
	Episode   Episode
	Candidate Candidate
	Cost      float64
}

// Result holds the full outcome of a match. Nothing is silently discarded:
// candidates that fell below the length floor and candidates that matched no
// window are both reported so the operator can review them.
type Result struct {
	Assignments         []Assignment
	UnmatchedEpisodes   []Episode
	UnmatchedCandidates []Candidate
	FilteredCandidates  []Candidate
}

// Options tunes a single Match call.
type Options struct {
	// MinLengthFloorSeconds overrides the derived floor (the minimum
	// MinLengthSeconds across the episodes). Zero derives it.
	MinLengthFloorSeconds float64
}

var forbidden = math.Inf(1)

// Match assigns each eligible candidate to at most one episode and each
// episode to at most one candidate, maximizing the number of matches and,
// among maximal matchings, minimizing total cost. Cost for a pair is
// |duration - typical| / window; pairs outside the window are ineligible.
//
// The result is deterministic: episodes are considered in ascending
// (season, episode) order and equal-cost alternatives resolve to the
// candidate that appears first on the disc.
func Match(candidates []Candidate, episodes []Episode, opts Options) Result {
	ordered := make([]Episode, len(episodes))
	copy(ordered, episodes)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Season != ordered[j].Season {
			return ordered[i].Season < ordered[j].Season
		}
		return ordered[i].Episode < ordered[j].Episode
	})

	floor := opts.MinLengthFloorSeconds
	if floor <= 0 {
		floor = deriveFloor(ordered)
	}

	var eligible []Candidate
	var filtered []Candidate
	for _, c := range candidates {
		if c.DurationSeconds < floor {
			filtered = append(filtered, c)
			continue
		}
		eligible = append(eligible, c)
	}

	cost := buildCostMatrix(ordered, eligible)
	matchedCand, matchedEp := assign(cost, len(ordered), len(eligible))

	result := Result{FilteredCandidates: filtered}
	for i, ep := range ordered {
		j := matchedEp[i]
		if j < 0 {
			result.UnmatchedEpisodes = append(result.UnmatchedEpisodes, ep)
			continue
		}
		result.Assignments = append(result.Assignments, Assignment{
			Episode:   ep,
			Candidate: eligible[j],
			Cost:      cost[i][j],
		})
	}
	for j, c := range eligible {
		if matchedCand[j] < 0 {
			result.UnmatchedCandidates = append(result.UnmatchedCandidates, c)
		}
	}
	return result
}

func deriveFloor(episodes []Episode) float64 {
	floor := 0.0
	for i, ep := range episodes {
		if i == 0 || ep.MinLengthSeconds < floor {
			floor = ep.MinLengthSeconds
		}
	}
	return floor
}

func buildCostMatrix(episodes []Episode, candidates []Candidate) [][]float64 {
	cost := make([][]float64, len(episodes))
	for i, ep := range episodes {
		cost[i] = make([]float64, len(candidates))
		window := ep.WindowSeconds
		if window <= 0 {
			window = 1
		}
		for j, c := range candidates {
			diff := math.Abs(c.DurationSeconds - ep.TypicalRuntimeSeconds)
			if diff > ep.WindowSeconds {
				cost[i][j] = forbidden
				continue
			}
			cost[i][j] = diff / window
		}
	}
	return cost
}

// assign finds a minimum-cost maximum matching by augmenting one episode at a
// time along the cheapest alternating path. Episodes arrive pre-sorted, and
// relaxation uses strict less-than, so ties fall to earlier candidates.
func assign(cost [][]float64, nEpisodes, nCandidates int) (matchedCand, matchedEp []int) {
	matchedCand = make([]int, nCandidates)
	matchedEp = make([]int, nEpisodes)
	for j := range matchedCand {
		matchedCand[j] = -1
	}
	for i := range matchedEp {
		matchedEp[i] = -1
	}
	for i := 0; i < nEpisodes; i++ {
		augment(cost, i, matchedCand, matchedEp)
	}
	return matchedCand, matchedEp
}

func augment(cost [][]float64, start int, matchedCand, matchedEp []int) {
	n := len(matchedCand)
	if n == 0 {
		return
	}
	dist := make([]float64, n)
	prevEp := make([]int, n)
	for j := 0; j < n; j++ {
		dist[j] = cost[start][j]
		prevEp[j] = start
	}

	// Bellman-Ford over alternating paths. The graph is tiny (a disc holds
	// tens of titles at most) so the quadratic sweep is fine.
	for changed := true; changed; {
		changed = false
		for j := 0; j < n; j++ {
			if math.IsInf(dist[j], 1) {
				continue
			}
			e := matchedCand[j]
			if e < 0 {
				continue
			}
			for k := 0; k < n; k++ {
				if k == j {
					continue
				}
				alt := dist[j] - cost[e][j] + cost[e][k]
				if alt < dist[k] {
					dist[k] = alt
					prevEp[k] = e
					changed = true
				}
			}
		}
	}

	best := -1
	for j := 0; j < n; j++ {
		if matchedCand[j] >= 0 || math.IsInf(dist[j], 1) {
			continue
		}
		if best < 0 || dist[j] < dist[best] {
			best = j
		}
	}
	if best < 0 {
		return
	}

	// Walk the alternating path back to the start, flipping edges.
	j := best
	for {
		e := prevEp[j]
		prev := matchedEp[e]
		matchedEp[e] = j
		matchedCand[j] = e
		if e == start {
			return
		}
		j = prev
	}
}
