package history

import (
	"database/sql"
	"time"
)

// GetRecent returns the N most recent rotation events
func (d *RotationDB) GetRecent(limit int) ([]Rotation, error) {
	query := `
	SELECT id, timestamp, action, path, file_name, size, bytes_saved,
	       age_days, threshold_days, detail
	FROM rotations
	ORDER BY timestamp DESC
	LIMIT ?
	`

	return d.queryRotations(query, limit)
}

// GetByAction returns events filtered by action type
func (d *RotationDB) GetByAction(action string) ([]Rotation, error) {
	query := `
	SELECT id, timestamp, action, path, file_name, size, bytes_saved,
	       age_days, threshold_days, detail
	FROM rotations
	WHERE action = ?
	ORDER BY timestamp DESC
	`

	return d.queryRotations(query, action)
}

// GetByPath returns events matching a path pattern (SQL LIKE syntax)
func (d *RotationDB) GetByPath(pathPattern string) ([]Rotation, error) {
	query := `
	SELECT id, timestamp, action, path, file_name, size, bytes_saved,
	       age_days, threshold_days, detail
	FROM rotations
	WHERE path LIKE ?
	ORDER BY timestamp DESC
	`

	return d.queryRotations(query, pathPattern)
}

// GetLargest returns the N compressions that saved the most bytes
func (d *RotationDB) GetLargest(limit int) ([]Rotation, error) {
	query := `
	SELECT id, timestamp, action, path, file_name, size, bytes_saved,
	       age_days, threshold_days, detail
	FROM rotations
	WHERE action = 'COMPRESS'
	ORDER BY bytes_saved DESC
	LIMIT ?
	`

	return d.queryRotations(query, limit)
}

// GetTotalBytesSaved returns total bytes saved in a time range
func (d *RotationDB) GetTotalBytesSaved(start, end time.Time) (int64, error) {
	query := `
	SELECT COALESCE(SUM(bytes_saved), 0)
	FROM rotations
	WHERE action = 'COMPRESS' AND timestamp BETWEEN ? AND ?
	`

	var total int64
	err := d.db.QueryRow(query, start, end).Scan(&total)
	return total, err
}

// GetCountByAction returns count of events grouped by action
func (d *RotationDB) GetCountByAction() (map[string]int, error) {
	query := `
	SELECT action, COUNT(*)
	FROM rotations
	GROUP BY action
	`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}

	return counts, rows.Err()
}

// Stats holds aggregated rotation statistics
type Stats struct {
	TotalCompressed int
	TotalSkipped    int
	TotalErrors     int
	TotalBytesSaved int64
	ByAction        map[string]int
	StartDate       time.Time
	EndDate         time.Time
}

// GetStats returns comprehensive statistics for a time period
func (d *RotationDB) GetStats(days int) (*Stats, error) {
	since := time.Now().AddDate(0, 0, -days)
	now := time.Now()

	stats := &Stats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'COMPRESS' THEN 1 END),
			COUNT(CASE WHEN action = 'SKIP' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END)
		FROM rotations
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalCompressed, &stats.TotalSkipped, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	stats.TotalBytesSaved, err = d.GetTotalBytesSaved(since, now)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = d.GetCountByAction()
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// queryRotations is a helper to execute queries and scan results
func (d *RotationDB) queryRotations(query string, args ...interface{}) ([]Rotation, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Rotation
	for rows.Next() {
		var r Rotation
		var detail sql.NullString

		err := rows.Scan(
			&r.ID, &r.Timestamp, &r.Action, &r.Path, &r.FileName,
			&r.Size, &r.BytesSaved, &r.AgeDays, &r.ThresholdDays, &detail,
		)
		if err != nil {
			return nil, err
		}

		if detail.Valid {
			r.Detail = detail.String
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
