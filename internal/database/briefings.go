package database

import (
	"database/sql"
)

// InsertBriefing inserts or replaces the briefing for a date.
func (db *DB) InsertBriefing(date, headline, bodyMarkdown string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT OR REPLACE INTO briefings (briefing_date, headline, body_markdown)
		VALUES (?, ?, ?)`,
		date, headline, bodyMarkdown,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetBriefing returns the briefing for a date, or nil.
func (db *DB) GetBriefing(date string) (*Briefing, error) {
	row := db.conn.QueryRow(
		`SELECT id, briefing_date, headline, body_markdown, generated_at
		FROM briefings WHERE briefing_date = ?`, date,
	)

	var b Briefing
	if err := row.Scan(&b.ID, &b.Date, &b.Headline, &b.BodyMarkdown, &b.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// GetAllBriefings returns all briefings, newest first.
func (db *DB) GetAllBriefings() ([]Briefing, error) {
	rows, err := db.conn.Query(
		"SELECT id, briefing_date, headline, body_markdown, generated_at FROM briefings ORDER BY briefing_date DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var briefings []Briefing
	for rows.Next() {
		var b Briefing
		if err := rows.Scan(&b.ID, &b.Date, &b.Headline, &b.BodyMarkdown, &b.GeneratedAt); err != nil {
			return nil, err
		}
		briefings = append(briefings, b)
	}
	return briefings, rows.Err()
}

// InsertReport records how a dataset request was resolved.
func (db *DB) InsertReport(dataset, outcome string, itemCount int, errText string) (int64, error) {
	var e *string
	if errText != "" {
		e = &errText
	}
	result, err := db.conn.Exec(
		`INSERT INTO run_reports (dataset, outcome, item_count, error) VALUES (?, ?, ?, ?)`,
		dataset, outcome, itemCount, e,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRecentReports returns the latest run reports, newest first.
func (db *DB) GetRecentReports(limit int) ([]RunReport, error) {
	rows, err := db.conn.Query(
		`SELECT id, dataset, outcome, item_count, error, run_at
		FROM run_reports ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunReport
	for rows.Next() {
		var r RunReport
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Outcome, &r.ItemCount, &r.Error, &r.RunAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM air_readings", &s.AirReadings},
		{"SELECT COUNT(*) FROM air_readings WHERE origin = 'real'", &s.RealAirReadings},
		{"SELECT COUNT(*) FROM water_levels", &s.WaterLevels},
		{"SELECT COUNT(*) FROM water_levels WHERE origin = 'real'", &s.RealWaterLevels},
		{"SELECT COUNT(DISTINCT recorded_date) FROM air_readings", &s.DaysRecorded},
		{"SELECT COUNT(*) FROM briefings", &s.Briefings},
		{"SELECT COUNT(*) FROM run_reports", &s.Runs},
		{"SELECT COUNT(*) FROM run_reports WHERE outcome = 'degraded'", &s.DegradedRuns},
		{"SELECT COUNT(*) FROM run_reports WHERE outcome = 'error'", &s.FailedRuns},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
