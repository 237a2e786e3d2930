package database

import (
	"database/sql"
	"fmt"

	"github.com/gdlinsight/gdlinsight/internal/record"
)

// InsertAirReadings stores one batch of station readings for date.
func (db *DB) InsertAirReadings(date string, readings []record.Reading) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO air_readings
		(recorded_date, station, index_value, status, origin, lat, lon, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		var lat, lon *float64
		if r.Coordinates != nil {
			lat, lon = &r.Coordinates.Lat, &r.Coordinates.Lon
		}
		if _, err := stmt.Exec(date, r.Station, r.IndexValue, string(r.Status), string(r.Origin), lat, lon, r.ObservedAt); err != nil {
			return fmt.Errorf("inserting %s: %w", r.Station, err)
		}
	}
	return tx.Commit()
}

// GetAirReadings returns the readings recorded on date, worst first.
func (db *DB) GetAirReadings(date string) ([]AirRow, error) {
	rows, err := db.conn.Query(
		`SELECT id, recorded_date, station, index_value, status, origin, lat, lon, observed_at, recorded_at
		FROM air_readings WHERE recorded_date = ? ORDER BY index_value DESC, id`, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AirRow
	for rows.Next() {
		var a AirRow
		if err := rows.Scan(&a.ID, &a.RecordedDate, &a.Station, &a.IndexValue, &a.Status, &a.Origin,
			&a.Lat, &a.Lon, &a.ObservedAt, &a.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAirHistory aggregates real readings per day since the given date,
// oldest first. Synthetic readings are left out of trends.
func (db *DB) GetAirHistory(since string) ([]DailyAir, error) {
	rows, err := db.conn.Query(
		`SELECT recorded_date, MAX(index_value), AVG(index_value), COUNT(*),
			(SELECT station FROM air_readings w
			 WHERE w.recorded_date = a.recorded_date AND w.origin = 'real'
			 ORDER BY w.index_value DESC, w.id LIMIT 1)
		FROM air_readings a
		WHERE origin = 'real' AND recorded_date >= ?
		GROUP BY recorded_date ORDER BY recorded_date`, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyAir
	for rows.Next() {
		var d DailyAir
		if err := rows.Scan(&d.Date, &d.MaxIndex, &d.AvgIndex, &d.Readings, &d.Worst); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// InsertWaterLevel stores a reservoir level for date.
func (db *DB) InsertWaterLevel(date string, w record.WaterLevel) (int64, error) {
	var evidence *string
	if w.EvidenceSnippet != "" {
		evidence = &w.EvidenceSnippet
	}
	result, err := db.conn.Exec(
		`INSERT INTO water_levels (recorded_date, elevation, origin, evidence, observed_at)
		VALUES (?, ?, ?, ?, ?)`,
		date, w.ElevationMeters, string(w.Origin), evidence, w.ObservedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetWaterHistory returns the last real level of each day since the given
// date, oldest first.
func (db *DB) GetWaterHistory(since string) ([]WaterRow, error) {
	rows, err := db.conn.Query(
		`SELECT id, recorded_date, elevation, origin, evidence, observed_at
		FROM water_levels
		WHERE id IN (
			SELECT MAX(id) FROM water_levels
			WHERE origin = 'real' AND recorded_date >= ?
			GROUP BY recorded_date
		)
		ORDER BY recorded_date`, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WaterRow
	for rows.Next() {
		var w WaterRow
		if err := rows.Scan(&w.ID, &w.RecordedDate, &w.Elevation, &w.Origin, &w.Evidence, &w.ObservedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetLatestWaterLevel returns the most recent real level, or nil.
func (db *DB) GetLatestWaterLevel() (*WaterRow, error) {
	row := db.conn.QueryRow(
		`SELECT id, recorded_date, elevation, origin, evidence, observed_at
		FROM water_levels WHERE origin = 'real' ORDER BY id DESC LIMIT 1`,
	)
	var w WaterRow
	if err := row.Scan(&w.ID, &w.RecordedDate, &w.Elevation, &w.Origin, &w.Evidence, &w.ObservedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}
