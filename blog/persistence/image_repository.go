package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/dfryer1193/postimport/shared/db"
)

var _ domain.ImageRepository = (*SQLiteImageRepository)(nil)

// SQLiteImageRepository stores asset bytes under the assets root and keeps a
// ledger row per file so later imports can tell which assets they produced.
type SQLiteImageRepository struct {
	db         *sql.DB
	assetsRoot string
}

// NewImageRepository creates a new SQLiteImageRepository writing below assetsRoot
func NewImageRepository(sqlDB *sql.DB, assetsRoot string) *SQLiteImageRepository {
	return &SQLiteImageRepository{
		db:         sqlDB,
		assetsRoot: assetsRoot,
	}
}

const upsertImageQuery = `
	INSERT INTO images (path, folder, filename, source_url, content_type, hash, updated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		source_url = excluded.source_url,
		content_type = excluded.content_type,
		hash = excluded.hash,
		updated_at = excluded.updated_at,
		created_at = COALESCE(images.created_at, excluded.created_at)
`

// SaveImage saves an image to both filesystem and database within a transaction
func (r *SQLiteImageRepository) SaveImage(ctx context.Context, img *domain.Image) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}

	if err := validateSegment(img.Folder); err != nil {
		return fmt.Errorf("invalid image folder: %w", err)
	}
	if err := validateSegment(img.Filename); err != nil {
		return fmt.Errorf("invalid image filename: %w", err)
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		var updatedAt any
		if !img.UpdatedAt.IsZero() {
			updatedAt = img.UpdatedAt
		}

		createdAt := img.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		executor := db.GetExecutor(txCtx, r.db)
		_, err := executor.ExecContext(txCtx, upsertImageQuery,
			img.Path(),
			img.Folder,
			img.Filename,
			img.SourceURL,
			img.ContentType,
			img.Hash,
			updatedAt,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert image record: %w", err)
		}

		// the file goes last so a failed write rolls the row back
		dir := filepath.Join(r.assetsRoot, img.Folder)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create image directory: %w", err)
		}

		if err := os.WriteFile(filepath.Join(dir, img.Filename), img.Content, 0644); err != nil {
			return fmt.Errorf("failed to write image file: %w", err)
		}

		return nil
	})
}

const getImageQuery = `
	SELECT path, folder, filename, source_url, content_type, hash, updated_at, created_at
	FROM images
	WHERE path = ?
`

// GetImage retrieves a single image record by its path relative to the assets root
func (r *SQLiteImageRepository) GetImage(ctx context.Context, path string) (*domain.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("image path cannot be empty")
	}

	row, err := scanImage(r.db.QueryRowContext(ctx, getImageQuery, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return row.toDomain(), nil
}

const listImagesQuery = `
	SELECT path, folder, filename, source_url, content_type, hash, updated_at, created_at
	FROM images
	WHERE folder = ?
	ORDER BY filename
`

// ListImages returns every ledger record stored under folder
func (r *SQLiteImageRepository) ListImages(ctx context.Context, folder string) ([]*domain.Image, error) {
	rows, err := r.db.QueryContext(ctx, listImagesQuery, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := make([]*domain.Image, 0)
	for rows.Next() {
		row, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		images = append(images, row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image rows: %w", err)
	}

	return images, nil
}

const deleteImageQuery = `
	DELETE FROM images WHERE path = ?
`

// DeleteImage removes an image from both filesystem and database within a transaction
func (r *SQLiteImageRepository) DeleteImage(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("image path cannot be empty")
	}

	localPath := filepath.Join(r.assetsRoot, filepath.FromSlash(path))
	if !isWithin(r.assetsRoot, localPath) {
		return fmt.Errorf("image path escapes assets root: %s", path)
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)
		if _, err := executor.ExecContext(txCtx, deleteImageQuery, path); err != nil {
			return fmt.Errorf("failed to delete image record: %w", err)
		}

		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove image file: %w", err)
		}

		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

// imageRow is a private struct used to scan database rows
type imageRow struct {
	Path        string       `db:"path"`
	Folder      string       `db:"folder"`
	Filename    string       `db:"filename"`
	SourceURL   string       `db:"source_url"`
	ContentType string       `db:"content_type"`
	Hash        string       `db:"hash"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
	CreatedAt   sql.NullTime `db:"created_at"`
}

func scanImage(s rowScanner) (*imageRow, error) {
	var row imageRow
	err := s.Scan(
		&row.Path,
		&row.Folder,
		&row.Filename,
		&row.SourceURL,
		&row.ContentType,
		&row.Hash,
		&row.UpdatedAt,
		&row.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// toDomain converts an imageRow to a domain.Image, handling nullable times
func (ir *imageRow) toDomain() *domain.Image {
	img := &domain.Image{
		Folder:      ir.Folder,
		Filename:    ir.Filename,
		SourceURL:   ir.SourceURL,
		ContentType: ir.ContentType,
		Hash:        ir.Hash,
	}

	if ir.UpdatedAt.Valid {
		img.UpdatedAt = ir.UpdatedAt.Time
	}
	if ir.CreatedAt.Valid {
		img.CreatedAt = ir.CreatedAt.Time
	}

	return img
}

// validateSegment rejects names that would leave their parent directory.
func validateSegment(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name cannot be empty")
	case name == "." || name == "..":
		return fmt.Errorf("name %q is not allowed", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q contains a path separator", name)
	}
	return nil
}

func isWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
