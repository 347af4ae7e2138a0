package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/ayusman/skyline/internal/horizon"
)

// Recording represents a captured horizon track stored in the database.
type Recording struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	NativeFPS  float64   `json:"native_fps"`
	FrameCount int       `json:"frame_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordedLine is one frame's tracked line within a recording.
type RecordedLine struct {
	FrameIndex int          `json:"frame_index"`
	Line       horizon.Line `json:"line"`
}

// RecordingRepository provides CRUD operations for recordings.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts a new recording into the database.
func (r *RecordingRepository) Create(rec *Recording) error {
	rec.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO recordings (id, source, width, height, native_fps, frame_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.Width, rec.Height, rec.NativeFPS, rec.FrameCount, rec.CreatedAt,
	)
	return err
}

// AppendLine stores one frame's line for a recording.
func (r *RecordingRepository) AppendLine(recordingID string, frameIndex int, line horizon.Line) error {
	data, err := json.Marshal(line)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO recording_lines (recording_id, frame_index, line) VALUES (?, ?, ?)`,
		recordingID, frameIndex, string(data),
	)
	return err
}

// AppendLines stores a batch of lines for a recording in a single
// transaction.
func (r *RecordingRepository) AppendLines(recordingID string, lines []RecordedLine) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO recording_lines (recording_id, frame_index, line) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rl := range lines {
		data, err := json.Marshal(rl.Line)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(recordingID, rl.FrameIndex, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetFrameCount records how many frames a finished recording holds.
func (r *RecordingRepository) SetFrameCount(id string, count int) error {
	result, err := r.db.Exec(`UPDATE recordings SET frame_count = ? WHERE id = ?`, count, id)
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

// GetByID retrieves a recording by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec := &Recording{}

	err := r.db.QueryRow(
		`SELECT id, source, width, height, native_fps, frame_count, created_at
		 FROM recordings WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.Source, &rec.Width, &rec.Height, &rec.NativeFPS, &rec.FrameCount, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return rec, nil
}

// List retrieves all recordings from the database.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(
		`SELECT id, source, width, height, native_fps, frame_count, created_at
		 FROM recordings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []*Recording
	for rows.Next() {
		rec := &Recording{}
		err := rows.Scan(&rec.ID, &rec.Source, &rec.Width, &rec.Height, &rec.NativeFPS, &rec.FrameCount, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recordings, nil
}

// Lines retrieves all lines of a recording ordered by frame index.
func (r *RecordingRepository) Lines(recordingID string) ([]RecordedLine, error) {
	rows, err := r.db.Query(
		`SELECT frame_index, line
		 FROM recording_lines
		 WHERE recording_id = ?
		 ORDER BY frame_index`,
		recordingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []RecordedLine
	for rows.Next() {
		var rl RecordedLine
		var data string
		if err := rows.Scan(&rl.FrameIndex, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rl.Line); err != nil {
			return nil, err
		}
		lines = append(lines, rl)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// Delete removes a recording and, through the cascade, its lines.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
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
