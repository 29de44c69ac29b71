package organizer

import (
	"fmt"
	"path/filepath"
	"time"

	"discmapper/internal/config"
	"discmapper/internal/fileutil"
	"discmapper/internal/manifest"
)

// Output describes one probed rip output considered for placement.
type Output struct {
	Path            string
	Name            string
	TitleIndex      int
	DurationSeconds int
	SizeBytes       int64
}

// Move pairs a rip output with its final library destination. Sidecar, when
// non-nil, is marshaled to a receipt file next to Dest during commit.
type Move struct {
	Source  string
	Dest    string
	Sidecar any
}

// Plan is the immutable move list computed before commit begins.
type Plan struct {
	Moves []Move
}

// MovieJob identifies the movie a disc was queued under.
type MovieJob struct {
	Title    string
	Year     int
	IMDBID   string
	PkgIndex int
	Barcode  string
	JobDir   string
}

// TVJob identifies the manifest disc a TV rip was queued under.
type TVJob struct {
	Series   string
	Season   int
	Disc     int
	ShowYear int
	IMDBID   string
	JobDir   string
}

// EpisodePair binds a matched rip output to its manifest episode.
type EpisodePair struct {
	Episode manifest.Episode
	Output  Output
}

// PlanMovie computes the single keeper move for a movie job:
// Ready/Title (Year) {imdb-ttX} [IDXn]/Title (Year) {imdb-ttX} [IDXn].mkv.
// When overwrite is false an existing destination picks up a numeric suffix;
// when true the canonical name is used and the commit replaces the file.
func PlanMovie(readyRoot string, naming config.Naming, overwrite bool, job MovieJob, keeper Output) Plan {
	base := showFolderName(job.Title, job.Year, naming.IncludeYear, job.IMDBID, naming.IncludeIMDBID)
	if naming.AppendDiscIndex && job.PkgIndex > 0 {
		base += fmt.Sprintf(" [IDX%d]", job.PkgIndex)
	}
	destDir := filepath.Join(readyRoot, base)
	dest := filepath.Join(destDir, base+".mkv")
	if !overwrite {
		dest = fileutil.UniquePath(dest)
	}

	move := Move{Source: keeper.Path, Dest: dest}
	if naming.WriteSidecar {
		move.Sidecar = &MovieSidecar{
			Type:         "movie",
			Title:        job.Title,
			Year:         job.Year,
			IMDBID:       job.IMDBID,
			PkgIndex:     job.PkgIndex,
			Barcode:      job.Barcode,
			JobDir:       job.JobDir,
			KeeperSource: keeper.Path,
			KeeperDest:   dest,
			CompletedAt:  time.Now().Format("2006-01-02_15-04-05"),
		}
	}
	return Plan{Moves: []Move{move}}
}

// PlanTV computes one move per matched episode:
// Ready/Series (Year) {imdb-ttX}/Season NN/Series - SxxEyy - Title [IDXn].mkv.
// Pairs are planned in the order given; collisions with existing library
// files pick up a numeric suffix at plan time so the commit phase never
// renames, unless overwrite allows replacing them. Collisions inside the
// plan itself always suffix.
func PlanTV(readyRoot string, naming config.Naming, overwrite bool, job TVJob, pairs []EpisodePair) Plan {
	showFolder := showFolderName(job.Series, job.ShowYear, naming.IncludeYear, job.IMDBID, naming.IncludeIMDBID)
	seasonFolder := fmt.Sprintf("Season %02d", job.Season)
	destDir := filepath.Join(readyRoot, showFolder, seasonFolder)
	seriesClean := SafeFilename(job.Series)

	planned := make(map[string]bool, len(pairs))
	moves := make([]Move, 0, len(pairs))
	for _, pair := range pairs {
		ep := pair.Episode

		code := ep.SxxEyy
		if code == "" {
			code = fmt.Sprintf("S%02dE%02d", job.Season, ep.EpisodeNumber)
		}
		name := fmt.Sprintf("%s - %s", seriesClean, code)
		if title := SafeFilename(ep.Title); title != "" {
			name += " - " + title
		}
		if naming.AppendDiscIndex && ep.DiscIndex > 0 {
			name += fmt.Sprintf(" [IDX%d]", ep.DiscIndex)
		}

		dest := filepath.Join(destDir, name+".mkv")
		if !overwrite {
			dest = fileutil.UniquePath(dest)
		}
		for n := 2; planned[dest]; n++ {
			dest = filepath.Join(destDir, fmt.Sprintf("%s (%d).mkv", name, n))
		}
		planned[dest] = true

		move := Move{Source: pair.Output.Path, Dest: dest}
		if naming.WriteSidecar {
			move.Sidecar = &TVSidecar{
				Type:             "tv",
				Series:           ep.Series,
				Season:           ep.Season,
				Disc:             ep.Disc,
				ShowYear:         job.ShowYear,
				IMDBID:           job.IMDBID,
				SxxEyy:           code,
				EpisodeTitle:     ep.Title,
				Index:            ep.DiscIndex,
				UPC:              ep.UPC,
				IMDBURL:          ep.IMDBURL,
				PhysicalTitle:    ep.PhysicalTitle,
				SourceTitleIndex: pair.Output.TitleIndex,
				SourceFilename:   pair.Output.Name,
				DurationSeconds:  pair.Output.DurationSeconds,
				Bytes:            pair.Output.SizeBytes,
				RippedJobDir:     job.JobDir,
				FinalPath:        dest,
				MappedAt:         time.Now().Format("20060102_150405"),
			}
		}
		moves = append(moves, move)
	}
	return Plan{Moves: moves}
}
