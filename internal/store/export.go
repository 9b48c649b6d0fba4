package store

import (
	"database/sql"
	"time"
)

// ExportRecord notes that a report was produced for a measurement.
type ExportRecord struct {
	ID            int64     `json:"id"`
	MeasurementID string    `json:"measurement_id"`
	Plugin        string    `json:"plugin"`
	Format        string    `json:"format"`
	SizeBytes     int       `json:"size_bytes"`
	CreatedAt     time.Time `json:"created_at"`
}

// ExportRepository provides access to export records.
type ExportRepository struct {
	db *sql.DB
}

// Exports returns the export repository for this store.
func (s *Store) Exports() *ExportRepository {
	return &ExportRepository{db: s.db}
}

// Create inserts an export record and sets its ID.
func (r *ExportRepository) Create(e *ExportRecord) error {
	e.CreatedAt = time.Now()
	result, err := r.db.Exec(
		`INSERT INTO exports (measurement_id, plugin, format, size_bytes, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.MeasurementID, e.Plugin, e.Format, e.SizeBytes, e.CreatedAt,
	)
	if err != nil {
		return err
	}
	e.ID, err = result.LastInsertId()
	return err
}

// ListByMeasurement returns the exports of one measurement, oldest first.
func (r *ExportRepository) ListByMeasurement(measurementID string) ([]ExportRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, measurement_id, plugin, format, size_bytes, created_at
		 FROM exports WHERE measurement_id = ? ORDER BY id`,
		measurementID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExportRecord
	for rows.Next() {
		var e ExportRecord
		if err := rows.Scan(&e.ID, &e.MeasurementID, &e.Plugin, &e.Format, &e.SizeBytes, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
