package manifest

import (
	"strings"
	"testing"
)

const sampleCSV = `Series,Season,Disc,Episode Number,Episode Title,SxxEyy,Min run length,Max run length,index,Upc,IMDb Url,Year
Cosmos,1,1,2,The Harmony of Worlds,S01E02,40,45,2,123456789012,https://www.imdb.com/title/tt0081846/,1980
Cosmos,1,1,1,The Shores of the Cosmic Ocean,S01E01,40,45,1,123456789012,https://www.imdb.com/title/tt0081846/,1980
Cosmos,1,2,3,One Voice in the Cosmic Fugue,S01E03,40,45,3,123456789012,https://www.imdb.com/title/tt0081846/,1980
,2,1,,,,,,,,,
Babylon,1,Disc 1,1,Midnight,S01E01,20,25,1,,,1994
`

func TestParseGroupsRowsByDisc(t *testing.T) {
	idx, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if idx.IgnoredRows != 1 {
		t.Fatalf("expected 1 ignored row, got %d", idx.IgnoredRows)
	}

	discs := idx.Discs()
	if len(discs) != 3 {
		t.Fatalf("expected 3 discs, got %d", len(discs))
	}
	// Sorted by series (case-insensitive), season, disc.
	if discs[0].Series != "Babylon" {
		t.Fatalf("expected Babylon first, got %q", discs[0].Series)
	}
	if discs[1].Key != DiscKey("Cosmos", 1, 1) || discs[2].Key != DiscKey("Cosmos", 1, 2) {
		t.Fatalf("unexpected disc order: %q, %q", discs[1].Key, discs[2].Key)
	}

	cosmos1, ok := idx.Disc(DiscKey("Cosmos", 1, 1))
	if !ok {
		t.Fatal("expected Cosmos S01 D01 in index")
	}
	if len(cosmos1.Episodes) != 2 {
		t.Fatalf("expected 2 episodes on disc 1, got %d", len(cosmos1.Episodes))
	}
	// Episodes sort by episode number regardless of row order.
	if cosmos1.Episodes[0].EpisodeNumber != 1 || cosmos1.Episodes[1].EpisodeNumber != 2 {
		t.Fatalf("episodes out of order: %+v", cosmos1.Episodes)
	}
	if cosmos1.ShowYear != 1980 {
		t.Fatalf("expected show year 1980, got %d", cosmos1.ShowYear)
	}
	if cosmos1.IMDBID != "tt0081846" {
		t.Fatalf("expected imdb id from url, got %q", cosmos1.IMDBID)
	}

	babylon, _ := idx.Disc(DiscKey("Babylon", 1, 1))
	if babylon == nil {
		t.Fatal(`expected "Disc 1" to parse as disc 1`)
	}
}

func TestParseStripsHeaderBOM(t *testing.T) {
	// Spreadsheet exports routinely lead with a UTF-8 byte order mark.
	idx, err := Parse(strings.NewReader("\ufeff" + sampleCSV))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := idx.Disc(DiscKey("Cosmos", 1, 1)); !ok {
		t.Fatal("BOM on the series column must not hide it from the header map")
	}
}

func TestParseIMDBID(t *testing.T) {
	if got := ParseIMDBID("https://www.imdb.com/title/tt0081846/"); got != "tt0081846" {
		t.Fatalf("got %q", got)
	}
	if got := ParseIMDBID("not a url"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestTypicalRuntimeTrimsJunk(t *testing.T) {
	// A menu stub (90s) and a double-length special (5400s) should not
	// drag the estimate away from the ~2500s episodes.
	durations := []int{90, 2490, 2500, 2505, 2510, 5400}
	typical, ok := TypicalRuntimeSeconds(durations)
	if !ok {
		t.Fatal("expected a typical runtime")
	}
	if typical < 2490 || typical > 2510 {
		t.Fatalf("typical runtime %d outside episode band", typical)
	}
}

func TestTypicalRuntimeSmallSample(t *testing.T) {
	typical, ok := TypicalRuntimeSeconds([]int{1200, 1210, 1190})
	if !ok || typical != 1200 {
		t.Fatalf("expected median 1200, got %d (ok=%v)", typical, ok)
	}
	if _, ok := TypicalRuntimeSeconds(nil); ok {
		t.Fatal("expected no typical runtime for empty input")
	}
}

func TestEpisodeWindows(t *testing.T) {
	disc := &Disc{
		Series: "Cosmos", Season: 1, Disc: 1,
		Episodes: []Episode{
			{Season: 1, EpisodeNumber: 1, MinMinutes: 40, MaxMinutes: 45},
			// Known outlier: a double-length special keeps the manifest-only window.
			{Season: 1, EpisodeNumber: 2, MinMinutes: 80, MaxMinutes: 90},
			// No manifest runtimes: falls back to the typical window.
			{Season: 1, EpisodeNumber: 3},
		},
	}
	params := WindowParams{ManifestBufferMinutes: 12, TypicalBufferMinutes: 8, SpecialDeltaMinutes: 10}
	typical := 42 * 60

	wins := disc.EpisodeWindows(typical, params)
	if len(wins) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(wins))
	}

	// Episode 1: manifest window [28m, 57m] intersected with typical [34m, 50m].
	ep1 := wins[0]
	lo := ep1.TypicalRuntimeSeconds - ep1.WindowSeconds
	hi := ep1.TypicalRuntimeSeconds + ep1.WindowSeconds
	if lo != 34*60 || hi != 50*60 {
		t.Fatalf("episode 1 window [%v, %v], want [%v, %v]", lo, hi, 34*60, 50*60)
	}

	// Episode 2: midpoint 85m is >= 10m from typical 42m, manifest-only window.
	ep2 := wins[1]
	lo = ep2.TypicalRuntimeSeconds - ep2.WindowSeconds
	hi = ep2.TypicalRuntimeSeconds + ep2.WindowSeconds
	if lo != 68*60 || hi != 102*60 {
		t.Fatalf("episode 2 window [%v, %v], want [%v, %v]", lo, hi, 68*60, 102*60)
	}

	// Episode 3: typical window only.
	ep3 := wins[2]
	lo = ep3.TypicalRuntimeSeconds - ep3.WindowSeconds
	hi = ep3.TypicalRuntimeSeconds + ep3.WindowSeconds
	if lo != 34*60 || hi != 50*60 {
		t.Fatalf("episode 3 window [%v, %v], want [%v, %v]", lo, hi, 34*60, 50*60)
	}
}

func TestDiscMinLengthSeconds(t *testing.T) {
	disc := &Disc{
		Episodes: []Episode{
			{MinMinutes: 20}, {MinMinutes: 8}, {MinMinutes: 22},
		},
	}
	if got := disc.MinLengthSeconds(10, 2, true); got != 6*60 {
		t.Fatalf("manifest-driven floor: got %d, want %d", got, 6*60)
	}
	if got := disc.MinLengthSeconds(10, 2, false); got != 10*60 {
		t.Fatalf("configured floor: got %d, want %d", got, 10*60)
	}

	noRuntimes := &Disc{Episodes: []Episode{{}, {}}}
	if got := noRuntimes.MinLengthSeconds(6, 2, true); got != 6*60 {
		t.Fatalf("fallback floor: got %d, want %d", got, 6*60)
	}
}
