package store

import (
	"database/sql"
	"errors"
	"time"
)

// Stat is the running total for one telemetry event.
type Stat struct {
	Name      string    `json:"name"`
	Count     int64     `json:"count"`
	TotalMS   float64   `json:"total_ms"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AverageMS returns the mean duration, or zero before any event.
func (s Stat) AverageMS() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.TotalMS / float64(s.Count)
}

// StatsRepository provides access to telemetry counters.
type StatsRepository struct {
	db *sql.DB
}

// Stats returns the telemetry repository for this store.
func (s *Store) Stats() *StatsRepository {
	return &StatsRepository{db: s.db}
}

// Increment adds one occurrence of name taking d.
func (r *StatsRepository) Increment(name string, d time.Duration) error {
	ms := float64(d) / float64(time.Millisecond)
	_, err := r.db.Exec(
		`INSERT INTO telemetry_stats (name, event_count, total_ms, updated_at) VALUES (?, 1, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   event_count = event_count + 1,
		   total_ms = total_ms + excluded.total_ms,
		   updated_at = excluded.updated_at`,
		name, ms, time.Now(),
	)
	return err
}

// Get returns the counter for name.
func (r *StatsRepository) Get(name string) (*Stat, error) {
	s := &Stat{}
	err := r.db.QueryRow(
		`SELECT name, event_count, total_ms, updated_at FROM telemetry_stats WHERE name = ?`,
		name,
	).Scan(&s.Name, &s.Count, &s.TotalMS, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns all counters ordered by name.
func (r *StatsRepository) List() ([]Stat, error) {
	rows, err := r.db.Query(`SELECT name, event_count, total_ms, updated_at FROM telemetry_stats ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []Stat
	for rows.Next() {
		var s Stat
		if err := rows.Scan(&s.Name, &s.Count, &s.TotalMS, &s.UpdatedAt); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// Reset deletes all counters.
func (r *StatsRepository) Reset() error {
	_, err := r.db.Exec(`DELETE FROM telemetry_stats`)
	return err
}
