package manifest

import (
	"math"
	"sort"

	"discmapper/internal/matching"
)

// WindowParams are the tolerances used to turn manifest runtimes into
// per-episode matching windows. All values are minutes.
type WindowParams struct {
	ManifestBufferMinutes int
	TypicalBufferMinutes  int
	SpecialDeltaMinutes   int
}

// TypicalRuntimeSeconds estimates the typical episode runtime from probed
// title durations. With five or more samples the top and bottom 20% are
// trimmed before taking the median, so menu stubs and double-length titles
// don't drag the estimate.
func TypicalRuntimeSeconds(durations []int) (int, bool) {
	durs := make([]int, 0, len(durations))
	for _, d := range durations {
		if d > 0 {
			durs = append(durs, d)
		}
	}
	if len(durs) == 0 {
		return 0, false
	}
	sort.Ints(durs)

	if len(durs) >= 5 {
		trim := int(math.Round(float64(len(durs)) * 0.20))
		if trim < 1 {
			trim = 1
		}
		if core := durs[trim : len(durs)-trim]; len(core) > 0 {
			durs = core
		}
	}

	mid := len(durs) / 2
	if len(durs)%2 == 0 {
		return (durs[mid-1] + durs[mid]) / 2, true
	}
	return durs[mid], true
}

// EpisodeWindows derives the matching windows for this disc's episodes.
//
// For each episode the manifest's min/max runtimes (buffered) are
// intersected with a window around the typical runtime observed on the
// disc. Episodes whose expected midpoint sits far from the typical runtime
// (specials, double-length finales) keep their manifest-only window, and
// episodes without manifest runtimes fall back to the typical window.
func (d *Disc) EpisodeWindows(typicalSeconds int, p WindowParams) []matching.Episode {
	typicalMin := max(60, typicalSeconds-p.TypicalBufferMinutes*60)
	typicalMax := typicalSeconds + p.TypicalBufferMinutes*60
	typicalMinutes := float64(typicalSeconds) / 60.0

	out := make([]matching.Episode, 0, len(d.Episodes))
	for _, e := range d.Episodes {
		if e.MinMinutes == 0 || e.MaxMinutes == 0 {
			out = append(out, windowEpisode(e, typicalMin, typicalMax))
			continue
		}

		rawMin := max(60, (max(1, e.MinMinutes-p.ManifestBufferMinutes))*60)
		rawMax := (e.MaxMinutes + p.ManifestBufferMinutes) * 60

		expectedMid := float64(e.MinMinutes+e.MaxMinutes) / 2.0
		if math.Abs(expectedMid-typicalMinutes) >= float64(p.SpecialDeltaMinutes) {
			out = append(out, windowEpisode(e, rawMin, rawMax))
			continue
		}

		if rawMin <= typicalSeconds && typicalSeconds <= rawMax {
			out = append(out, windowEpisode(e, max(rawMin, typicalMin), min(rawMax, typicalMax)))
		} else {
			out = append(out, windowEpisode(e, typicalMin, typicalMax))
		}
	}
	return out
}

// MinLengthSeconds returns the rip floor for this disc. When manifestDriven
// is set and the manifest declares minimum runtimes, the floor follows the
// shortest declared episode (minus a buffer) so short episodes survive the
// rip filter; otherwise the configured floor applies.
func (d *Disc) MinLengthSeconds(floorMinutes, bufferMinutes int, manifestDriven bool) int {
	floor := floorMinutes
	if manifestDriven {
		shortest := 0
		for _, e := range d.Episodes {
			if e.MinMinutes > 0 && (shortest == 0 || e.MinMinutes < shortest) {
				shortest = e.MinMinutes
			}
		}
		if shortest > 0 {
			floor = max(1, shortest-max(0, bufferMinutes))
		}
	}
	return floor * 60
}

func windowEpisode(e Episode, minSec, maxSec int) matching.Episode {
	if maxSec < minSec {
		maxSec = minSec
	}
	return matching.Episode{
		Season:                e.Season,
		Episode:               e.EpisodeNumber,
		TypicalRuntimeSeconds: float64(minSec+maxSec) / 2.0,
		WindowSeconds:         float64(maxSec-minSec) / 2.0,
		MinLengthSeconds:      float64(e.MinMinutes * 60),
	}
}
