package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Presets table - stores named detector and tracker parameter sets
		`CREATE TABLE IF NOT EXISTS presets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			lower_threshold REAL NOT NULL DEFAULT 100,
			upper_threshold REAL NOT NULL DEFAULT 200,
			aperture_size INTEGER NOT NULL DEFAULT 3,
			l2_gradient INTEGER NOT NULL DEFAULT 0,
			jump_threshold INTEGER NOT NULL DEFAULT 15,
			variant TEXT NOT NULL CHECK(variant IN ('classic', 'vectorized')),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Recordings table - stores metadata for captured horizon tracks
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			native_fps REAL NOT NULL DEFAULT 0,
			frame_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Recording lines table - stores one tracked line per frame
		`CREATE TABLE IF NOT EXISTS recording_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recording_id TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			line TEXT NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_recording_lines_recording_id ON recording_lines(recording_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
