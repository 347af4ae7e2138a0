package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/skyline/internal/edge"
	"github.com/ayusman/skyline/internal/horizon"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Preset represents a named detector and tracker configuration stored
// in the database.
type Preset struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Detector  edge.Params    `json:"detector"`
	Tracker   horizon.Params `json:"tracker"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PresetRepository provides CRUD operations for presets.
type PresetRepository struct {
	db *sql.DB
}

// Presets returns the preset repository for this store.
func (s *Store) Presets() *PresetRepository {
	return &PresetRepository{db: s.db}
}

// Create inserts a new preset into the database.
func (r *PresetRepository) Create(p *Preset) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO presets (id, name, lower_threshold, upper_threshold, aperture_size,
		                      l2_gradient, jump_threshold, variant, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Detector.LowerThreshold, p.Detector.UpperThreshold, p.Detector.ApertureSize,
		p.Detector.L2Gradient, p.Tracker.JumpThreshold, string(p.Tracker.Variant), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a preset by its ID.
func (r *PresetRepository) GetByID(id string) (*Preset, error) {
	return r.get(`SELECT id, name, lower_threshold, upper_threshold, aperture_size,
	                     l2_gradient, jump_threshold, variant, created_at, updated_at
	              FROM presets WHERE id = ?`, id)
}

// GetByName retrieves a preset by its name.
func (r *PresetRepository) GetByName(name string) (*Preset, error) {
	return r.get(`SELECT id, name, lower_threshold, upper_threshold, aperture_size,
	                     l2_gradient, jump_threshold, variant, created_at, updated_at
	              FROM presets WHERE name = ?`, name)
}

func (r *PresetRepository) get(query string, arg any) (*Preset, error) {
	p := &Preset{}
	var variant string
	var l2 int

	err := r.db.QueryRow(query, arg).Scan(
		&p.ID, &p.Name, &p.Detector.LowerThreshold, &p.Detector.UpperThreshold, &p.Detector.ApertureSize,
		&l2, &p.Tracker.JumpThreshold, &variant, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Detector.L2Gradient = l2 != 0
	p.Tracker.Variant = horizon.Variant(variant)
	return p, nil
}

// List retrieves all presets from the database.
func (r *PresetRepository) List() ([]*Preset, error) {
	rows, err := r.db.Query(
		`SELECT id, name, lower_threshold, upper_threshold, aperture_size,
		        l2_gradient, jump_threshold, variant, created_at, updated_at
		 FROM presets ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []*Preset
	for rows.Next() {
		p := &Preset{}
		var variant string
		var l2 int

		err := rows.Scan(
			&p.ID, &p.Name, &p.Detector.LowerThreshold, &p.Detector.UpperThreshold, &p.Detector.ApertureSize,
			&l2, &p.Tracker.JumpThreshold, &variant, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		p.Detector.L2Gradient = l2 != 0
		p.Tracker.Variant = horizon.Variant(variant)
		presets = append(presets, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return presets, nil
}

// Update updates an existing preset in the database.
func (r *PresetRepository) Update(p *Preset) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE presets SET name = ?, lower_threshold = ?, upper_threshold = ?, aperture_size = ?,
		                    l2_gradient = ?, jump_threshold = ?, variant = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Detector.LowerThreshold, p.Detector.UpperThreshold, p.Detector.ApertureSize,
		p.Detector.L2Gradient, p.Tracker.JumpThreshold, string(p.Tracker.Variant), p.UpdatedAt, p.ID,
	)
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

// Delete removes a preset from the database by its ID.
func (r *PresetRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM presets WHERE id = ?`, id)
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
