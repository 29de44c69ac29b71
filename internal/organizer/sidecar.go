package organizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// SidecarSuffix is appended to a destination's stem to form its receipt path.
const SidecarSuffix = ".discmapper.json"

// MovieSidecar is the receipt written beside a placed movie keeper.
type MovieSidecar struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	Year         int    `json:"year,omitempty"`
	IMDBID       string `json:"imdb_id"`
	PkgIndex     int    `json:"pkg_index,omitempty"`
	Barcode      string `json:"barcode,omitempty"`
	JobDir       string `json:"job_dir"`
	KeeperSource string `json:"keeper_source"`
	KeeperDest   string `json:"keeper_dest"`
	CompletedAt  string `json:"completed_at"`
}

// TVSidecar is the receipt written beside a placed episode.
type TVSidecar struct {
	Type             string `json:"type"`
	Series           string `json:"series"`
	Season           int    `json:"season"`
	Disc             int    `json:"disc"`
	ShowYear         int    `json:"show_year,omitempty"`
	IMDBID           string `json:"imdb_id,omitempty"`
	SxxEyy           string `json:"sxxeyy"`
	EpisodeTitle     string `json:"episode_title,omitempty"`
	Index            int    `json:"index,omitempty"`
	UPC              string `json:"upc,omitempty"`
	IMDBURL          string `json:"imdb_url,omitempty"`
	PhysicalTitle    string `json:"physical_title,omitempty"`
	SourceTitleIndex int    `json:"source_title_index"`
	SourceFilename   string `json:"source_filename"`
	DurationSeconds  int    `json:"duration_s"`
	Bytes            int64  `json:"bytes"`
	RippedJobDir     string `json:"ripped_job_dir"`
	FinalPath        string `json:"final_path"`
	MappedAt         string `json:"mapped_at"`
}

// SidecarPath derives the receipt path for a destination file.
func SidecarPath(dest string) string {
	ext := filepath.Ext(dest)
	return strings.TrimSuffix(dest, ext) + SidecarSuffix
}

// WriteSidecar marshals a receipt beside the destination file. Receipt
// failures are advisory; callers log and continue.
func WriteSidecar(dest string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	path := SidecarPath(dest)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
