package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Episode is one manifest row: an expected episode on a specific disc.
type Episode struct {
	Series        string
	Season        int
	Disc          int
	EpisodeNumber int
	Title         string
	SxxEyy        string
	MinMinutes    int
	MaxMinutes    int
	DiscIndex     int
	UPC           string
	IMDBURL       string
	IMDBID        string
	PhysicalTitle string
	ShowYear      int
}

// Disc groups the episodes expected on one physical disc.
type Disc struct {
	Key      string
	Series   string
	Season   int
	Disc     int
	ShowYear int
	IMDBID   string
	Episodes []Episode
}

// Index is the parsed manifest, keyed by disc.
type Index struct {
	Path        string
	IgnoredRows int

	discs map[string]*Disc
	order []string
}

// DiscKey builds the canonical lookup key for a disc.
func DiscKey(series string, season, disc int) string {
	return fmt.Sprintf("%s||S%02d||D%02d", series, season, disc)
}

// Discs returns all discs sorted by series, season, disc.
func (x *Index) Discs() []*Disc {
	out := make([]*Disc, 0, len(x.order))
	for _, key := range x.order {
		out = append(out, x.discs[key])
	}
	return out
}

// Disc looks up one disc by key.
func (x *Index) Disc(key string) (*Disc, bool) {
	d, ok := x.discs[key]
	return d, ok
}

var imdbIDPattern = regexp.MustCompile(`(tt\d{5,10})`)

// ParseIMDBID extracts a lowercase tt-identifier from an IMDb URL, or "".
func ParseIMDBID(url string) string {
	m := imdbIDPattern.FindString(url)
	return strings.ToLower(m)
}

// Load parses a manifest CSV. Rows missing series, season, or disc are
// counted and skipped rather than failing the whole import: manifests are
// hand-maintained spreadsheets and partially filled rows are normal.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	idx, err := Parse(f)
	if err != nil {
		return nil, err
	}
	idx.Path = path
	return idx, nil
}

// Parse reads manifest CSV content from r.
func Parse(r io.Reader) (*Index, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read manifest header: %w", err)
	}
	cols := columnMap(header)
	if _, ok := cols["series"]; !ok {
		return nil, fmt.Errorf("manifest missing required Series column")
	}

	idx := &Index{discs: make(map[string]*Disc)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest row: %w", err)
		}

		get := func(names ...string) string {
			for _, name := range names {
				if i, ok := cols[name]; ok && i < len(record) {
					return strings.TrimSpace(record[i])
				}
			}
			return ""
		}

		series := get("series")
		season, seasonOK := parseInt(get("season"))
		disc, discOK := parseDiscValue(get("disc"))
		if series == "" || !seasonOK || !discOK {
			idx.IgnoredRows++
			continue
		}

		epNo, _ := parseInt(get("episode number", "episode"))
		minRT, _ := parseInt(get("min run length", "min runtime"))
		maxRT, _ := parseInt(get("max run length", "max runtime"))
		pkgIndex, _ := parseInt(get("index"))
		year, _ := parseInt(get("year", "show year"))
		imdbURL := get("imdb url")

		ep := Episode{
			Series:        series,
			Season:        season,
			Disc:          disc,
			EpisodeNumber: epNo,
			Title:         get("episode title"),
			SxxEyy:        get("sxxeyy"),
			MinMinutes:    minRT,
			MaxMinutes:    maxRT,
			DiscIndex:     pkgIndex,
			UPC:           get("upc"),
			IMDBURL:       imdbURL,
			IMDBID:        ParseIMDBID(imdbURL),
			PhysicalTitle: get("physical title", "phyisical title"),
			ShowYear:      year,
		}

		key := DiscKey(series, season, disc)
		d, ok := idx.discs[key]
		if !ok {
			d = &Disc{
				Key:      key,
				Series:   series,
				Season:   season,
				Disc:     disc,
				ShowYear: ep.ShowYear,
				IMDBID:   ep.IMDBID,
			}
			idx.discs[key] = d
			idx.order = append(idx.order, key)
		}
		if d.ShowYear == 0 {
			d.ShowYear = ep.ShowYear
		}
		if d.IMDBID == "" {
			d.IMDBID = ep.IMDBID
		}
		d.Episodes = append(d.Episodes, ep)
	}

	for _, d := range idx.discs {
		sort.SliceStable(d.Episodes, func(i, j int) bool {
			a, b := d.Episodes[i].EpisodeNumber, d.Episodes[j].EpisodeNumber
			if a == 0 {
				a = 9999
			}
			if b == 0 {
				b = 9999
			}
			return a < b
		})
	}
	sort.SliceStable(idx.order, func(i, j int) bool {
		a, b := idx.discs[idx.order[i]], idx.discs[idx.order[j]]
		as, bs := strings.ToLower(a.Series), strings.ToLower(b.Series)
		if as != bs {
			return as < bs
		}
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		return a.Disc < b.Disc
	})
	return idx, nil
}

func columnMap(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		if key == "" {
			continue
		}
		if _, exists := cols[key]; !exists {
			cols[key] = i
		}
	}
	return cols
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

var discNumberPattern = regexp.MustCompile(`(\d+)`)

// parseDiscValue accepts "3", "Disc 3", "D3" and similar spreadsheet habits.
func parseDiscValue(s string) (int, bool) {
	m := discNumberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}
