package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Measurement is a stored measurement. Payload holds the full result JSON.
type Measurement struct {
	ID              string          `json:"id"`
	RingUS          float64         `json:"ring_us"`
	Method          string          `json:"method"`
	Stage           string          `json:"stage"`
	Confidence      int             `json:"confidence"`
	DiameterMM      float64         `json:"diameter_mm"`
	CircumferenceMM float64         `json:"circumference_mm"`
	Payload         json.RawMessage `json:"payload"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MeasurementRepository provides access to measurement history.
type MeasurementRepository struct {
	db *sql.DB
}

// Measurements returns the measurement repository for this store.
func (s *Store) Measurements() *MeasurementRepository {
	return &MeasurementRepository{db: s.db}
}

// Create inserts a measurement. A zero CreatedAt is set to now.
func (r *MeasurementRepository) Create(m *Measurement) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	payload := m.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	_, err := r.db.Exec(
		`INSERT INTO measurements (id, ring_us, method, stage, confidence, diameter_mm, circumference_mm, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.RingUS, m.Method, m.Stage, m.Confidence, m.DiameterMM, m.CircumferenceMM, string(payload), m.CreatedAt,
	)
	return err
}

// GetByID retrieves a measurement by its ID.
func (r *MeasurementRepository) GetByID(id string) (*Measurement, error) {
	row := r.db.QueryRow(
		`SELECT id, ring_us, method, stage, confidence, diameter_mm, circumference_mm, payload, created_at
		 FROM measurements WHERE id = ?`,
		id,
	)
	m, err := scanMeasurement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// List returns the most recent measurements first. A limit of zero or less
// returns all of them.
func (r *MeasurementRepository) List(limit int) ([]*Measurement, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, ring_us, method, stage, confidence, diameter_mm, circumference_mm, payload, created_at
		 FROM measurements ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a measurement and its export records.
func (r *MeasurementRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM measurements WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(s scanner) (*Measurement, error) {
	m := &Measurement{}
	var payload string
	if err := s.Scan(&m.ID, &m.RingUS, &m.Method, &m.Stage, &m.Confidence,
		&m.DiameterMM, &m.CircumferenceMM, &payload, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Payload = json.RawMessage(payload)
	return m, nil
}
