package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Measurements table - one row per completed measurement
		`CREATE TABLE IF NOT EXISTS measurements (
			id TEXT PRIMARY KEY,
			ring_us REAL NOT NULL,
			method TEXT NOT NULL CHECK(method IN ('reference_object', 'no_reference_fallback')),
			stage TEXT NOT NULL,
			confidence INTEGER NOT NULL CHECK(confidence BETWEEN 0 AND 100),
			diameter_mm REAL NOT NULL,
			circumference_mm REAL NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Telemetry stats table - running count and duration per event
		`CREATE TABLE IF NOT EXISTS telemetry_stats (
			name TEXT PRIMARY KEY,
			event_count INTEGER NOT NULL DEFAULT 0,
			total_ms REAL NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Exports table - reports produced from a measurement
		`CREATE TABLE IF NOT EXISTS exports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			measurement_id TEXT NOT NULL REFERENCES measurements(id) ON DELETE CASCADE,
			plugin TEXT NOT NULL,
			format TEXT NOT NULL,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_measurements_created_at ON measurements(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_exports_measurement_id ON exports(measurement_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
