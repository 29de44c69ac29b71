package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, kind, disc_key, source_label, title, year, imdb_id, pkg_index, barcode, series, season, disc, status, error_kind, error_message, progress_phase, progress_message, review_json, run_id, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id              int64
		kind            string
		discKey         sql.NullString
		sourceLabel     sql.NullString
		title           sql.NullString
		year            sql.NullInt64
		imdbID          sql.NullString
		pkgIndex        sql.NullInt64
		barcode         sql.NullString
		series          sql.NullString
		season          sql.NullInt64
		disc            sql.NullInt64
		statusStr       string
		errorKind       sql.NullString
		errorMessage    sql.NullString
		progressPhase   sql.NullString
		progressMessage sql.NullString
		reviewJSON      sql.NullString
		runID           sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&discKey,
		&sourceLabel,
		&title,
		&year,
		&imdbID,
		&pkgIndex,
		&barcode,
		&series,
		&season,
		&disc,
		&statusStr,
		&errorKind,
		&errorMessage,
		&progressPhase,
		&progressMessage,
		&reviewJSON,
		&runID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		Kind:            Kind(kind),
		DiscKey:         discKey.String,
		SourceLabel:     sourceLabel.String,
		Title:           title.String,
		Year:            int(year.Int64),
		IMDBID:          imdbID.String,
		PkgIndex:        int(pkgIndex.Int64),
		Barcode:         barcode.String,
		Series:          series.String,
		Season:          int(season.Int64),
		Disc:            int(disc.Int64),
		Status:          Status(statusStr),
		ErrorKind:       errorKind.String,
		ErrorMessage:    errorMessage.String,
		ProgressPhase:   progressPhase.String,
		ProgressMessage: progressMessage.String,
		ReviewJSON:      reviewJSON.String,
		RunID:           runID.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
