package queue

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the two job flavors.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindTVDisc Kind = "tv_disc"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

var allStatuses = []Status{
	StatusPending,
	StatusActive,
	StatusDone,
	StatusFailed,
	StatusSkipped,
}

// ParseStatus validates a status string from user input.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// validTransitions encodes the allowed status moves: strictly forward,
// except that an active job may fail (and be retried from failed back to
// pending) or be requeued. Done is terminal.
var validTransitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusSkipped},
	StatusActive:  {StatusDone, StatusFailed, StatusPending},
	StatusFailed:  {StatusPending},
	StatusSkipped: {StatusPending},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Item is one rip job descriptor persisted in SQLite.
type Item struct {
	ID          int64
	Kind        Kind
	DiscKey     string
	SourceLabel string

	// Movie identity.
	Title    string
	Year     int
	IMDBID   string
	PkgIndex int
	Barcode  string

	// TV identity.
	Series string
	Season int
	Disc   int

	Status       Status
	ErrorKind    string
	ErrorMessage string

	ProgressPhase   string
	ProgressMessage string

	// ReviewJSON carries the unmatched-title review list attached to a
	// completed TV job.
	ReviewJSON string
	RunID      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Display returns a short human label for queue listings.
func (i *Item) Display() string {
	switch i.Kind {
	case KindMovie:
		if i.Year > 0 {
			return fmt.Sprintf("%s (%d)", i.Title, i.Year)
		}
		return i.Title
	case KindTVDisc:
		return fmt.Sprintf("%s S%02dD%02d", i.Series, i.Season, i.Disc)
	}
	return i.SourceLabel
}
