package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leca/dt-image-store/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements Database backed by SQLite.
type SQLiteDB struct {
	db *sql.DB
}

var _ Database = (*SQLiteDB)(nil)

// NewSQLiteDB opens (or creates) an SQLite database at dsn and runs migrations.
// For in-memory use pass "file::memory:".
func NewSQLiteDB(dsn string) (*SQLiteDB, error) {
	if !strings.Contains(dsn, "_pragma") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps in-memory databases alive and serializes
	// writers, which SQLite does anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

func (s *SQLiteDB) CreateImage(img *model.Image) error {
	_, err := s.db.Exec(`
		INSERT INTO images (id, format, filename, width, height, file_size, uploaded)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		img.Key.Hex(), img.Key.Format.String(), img.Filename, img.Width, img.Height,
		img.FileSize, img.Uploaded.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert image %s: %w", img.Key, ErrExists)
		}
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetImage(id uuid.UUID) (*model.Image, error) {
	row := s.db.QueryRow(`
		SELECT id, format, filename, width, height, file_size, uploaded
		FROM images WHERE id = ?`,
		model.IDHex(id),
	)
	img, err := scanImage(row)
	if err != nil {
		return nil, err
	}
	if img.Sizes, err = s.ListSizes(id); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *SQLiteDB) ListImages(page, perPage int) ([]*model.Image, int, error) {
	// total count
	total, err := s.CountImages()
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := s.db.Query(`
		SELECT id, format, filename, width, height, file_size, uploaded
		FROM images
		ORDER BY uploaded ASC, id ASC
		LIMIT ? OFFSET ?`,
		perPage, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list images: %w", err)
	}
	images, err := scanImages(rows)
	rows.Close()
	if err != nil {
		return nil, 0, err
	}

	for _, img := range images {
		if img.Sizes, err = s.ListSizes(img.Key.ID); err != nil {
			return nil, 0, err
		}
	}
	return images, total, nil
}

// DeleteImage removes the image row and every size recorded for it.
func (s *SQLiteDB) DeleteImage(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Warn("DeleteImage: rollback failed", "error", err)
		}
	}()

	hex := model.IDHex(id)
	if _, err := tx.Exec(`DELETE FROM sizes WHERE image_id = ?`, hex); err != nil {
		return fmt.Errorf("delete sizes: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM images WHERE id = ?`, hex)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if err := checkRowsAffected(res, "image"); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteDB) CountImages() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// Sizes
// ---------------------------------------------------------------------------

// PutSize records a derived size, replacing an earlier row of the same name.
func (s *SQLiteDB) PutSize(id uuid.UUID, size *model.Size) error {
	_, err := s.db.Exec(`
		INSERT INTO sizes (image_id, name, width, height, file_size, created)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (image_id, name) DO UPDATE SET
			width = excluded.width, height = excluded.height,
			file_size = excluded.file_size, created = excluded.created`,
		model.IDHex(id), size.Name, size.Width, size.Height, size.FileSize,
		size.Created.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert size: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListSizes(id uuid.UUID) ([]model.Size, error) {
	rows, err := s.db.Query(`
		SELECT name, width, height, file_size, created
		FROM sizes WHERE image_id = ?
		ORDER BY name ASC`,
		model.IDHex(id),
	)
	if err != nil {
		return nil, fmt.Errorf("list sizes: %w", err)
	}
	defer rows.Close()

	sizes := []model.Size{}
	for rows.Next() {
		var sz model.Size
		var createdStr string
		if err := rows.Scan(&sz.Name, &sz.Width, &sz.Height, &sz.FileSize, &createdStr); err != nil {
			return nil, fmt.Errorf("scan size: %w", err)
		}
		sz.Created, _ = time.Parse(time.RFC3339, createdStr)
		sizes = append(sizes, sz)
	}
	return sizes, rows.Err()
}

// ---------------------------------------------------------------------------
// Size presets
// ---------------------------------------------------------------------------

func (s *SQLiteDB) CreatePreset(p *model.SizePreset) error {
	_, err := s.db.Exec(`
		INSERT INTO size_presets (name, fit, width, height, background, quality)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Options.Fit, p.Options.Width, p.Options.Height,
		p.Options.Background, p.Options.Quality,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert preset %q: %w", p.Name, ErrExists)
		}
		return fmt.Errorf("insert preset: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetPreset(name string) (*model.SizePreset, error) {
	row := s.db.QueryRow(`
		SELECT name, fit, width, height, background, quality
		FROM size_presets WHERE name = ?`,
		name,
	)
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get preset %q: %w", name, ErrNotFound)
	}
	return p, err
}

func (s *SQLiteDB) ListPresets() ([]*model.SizePreset, error) {
	rows, err := s.db.Query(`
		SELECT name, fit, width, height, background, quality
		FROM size_presets
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var presets []*model.SizePreset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (s *SQLiteDB) UpdatePreset(p *model.SizePreset) error {
	res, err := s.db.Exec(`
		UPDATE size_presets SET fit = ?, width = ?, height = ?, background = ?, quality = ?
		WHERE name = ?`,
		p.Options.Fit, p.Options.Width, p.Options.Height, p.Options.Background,
		p.Options.Quality, p.Name,
	)
	if err != nil {
		return fmt.Errorf("update preset: %w", err)
	}
	return checkRowsAffected(res, "preset")
}

func (s *SQLiteDB) DeletePreset(name string) error {
	res, err := s.db.Exec(`DELETE FROM size_presets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	return checkRowsAffected(res, "preset")
}

func (s *SQLiteDB) CountPresets() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM size_presets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count presets: %w", err)
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type scannable interface {
	Scan(dest ...any) error
}

func scanImage(row scannable) (*model.Image, error) {
	img := &model.Image{}
	var idStr, formatStr, uploadedStr string

	err := row.Scan(&idStr, &formatStr, &img.Filename, &img.Width, &img.Height, &img.FileSize, &uploadedStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get image: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan image: %w", err)
	}

	if img.Key.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("scan image id %q: %w", idStr, err)
	}
	var ok bool
	if img.Key.Format, ok = model.ParseFormat(formatStr); !ok {
		return nil, fmt.Errorf("scan image %s: unknown format %q", idStr, formatStr)
	}
	img.Uploaded, _ = time.Parse(time.RFC3339, uploadedStr)
	return img, nil
}

func scanImages(rows *sql.Rows) ([]*model.Image, error) {
	var images []*model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func scanPreset(row scannable) (*model.SizePreset, error) {
	p := &model.SizePreset{}
	err := row.Scan(&p.Name, &p.Options.Fit, &p.Options.Width, &p.Options.Height,
		&p.Options.Background, &p.Options.Quality)
	if err != nil {
		return nil, fmt.Errorf("scan preset: %w", err)
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE") || strings.Contains(msg, "PRIMARY KEY")
}

func checkRowsAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
