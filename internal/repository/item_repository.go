package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"artkeeper/internal/models"
)

var ErrItemNotFound = errors.New("media item not found")

const itemColumns = `
	id, code, title, base_path, skip,
	poster_path, poster_width, poster_height, poster_size_kb, poster_status,
	fanart_path, fanart_width, fanart_height, fanart_size_kb, fanart_status,
	thumb_path, thumb_width, thumb_height, thumb_size_kb, thumb_status,
	created_at, updated_at`

// ItemRepository persists media items and their artwork facts.
type ItemRepository struct {
	pool *pgxpool.Pool
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func (r *ItemRepository) Create(ctx context.Context, item models.MediaItem) error {
	const query = `
		INSERT INTO media_items (id, code, title, base_path, skip, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, item.ID, item.Code, item.Title, item.BasePath, item.Skip)
	return err
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (models.MediaItem, error) {
	query := `SELECT ` + itemColumns + ` FROM media_items WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MediaItem{}, ErrItemNotFound
		}
		return models.MediaItem{}, err
	}
	return item, nil
}

// UpdateArtifact stores freshly probed facts for one artifact.
func (r *ItemRepository) UpdateArtifact(ctx context.Context, id string, kind models.ArtifactKind, art models.Artifact) error {
	col := string(kind)
	query := fmt.Sprintf(`
		UPDATE media_items
		SET %s_path = $2, %s_width = $3, %s_height = $4, %s_size_kb = $5, %s_status = $6,
		    updated_at = NOW()
		WHERE id = $1
	`, col, col, col, col, col)

	tag, err := r.pool.Exec(ctx, query, id, art.Path, art.Width, art.Height, art.SizeKB, art.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// UpdateStatus rewrites a single artifact's quality status.
func (r *ItemRepository) UpdateStatus(ctx context.Context, id string, kind models.ArtifactKind, status models.QualityStatus) error {
	query := fmt.Sprintf(`
		UPDATE media_items SET %s_status = $2, updated_at = NOW() WHERE id = $1
	`, string(kind))

	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ListLowQuality pages through items with at least one low-quality
// artifact, newest first.
func (r *ItemRepository) ListLowQuality(ctx context.Context, limit, offset int) ([]models.MediaItem, error) {
	query := `SELECT ` + itemColumns + `
		FROM media_items
		WHERE poster_status = 'low' OR fanart_status = 'low' OR thumb_status = 'low'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	return r.list(ctx, query, limit, offset)
}

// ListLatestHighQuality returns the newest items whose poster is high
// quality; these feed the published-cover bucket.
func (r *ItemRepository) ListLatestHighQuality(ctx context.Context, limit int) ([]models.MediaItem, error) {
	query := `SELECT ` + itemColumns + `
		FROM media_items
		WHERE poster_status = 'high'
		ORDER BY created_at DESC
		LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *ItemRepository) list(ctx context.Context, query string, args ...any) ([]models.MediaItem, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MediaItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (models.MediaItem, error) {
	var item models.MediaItem
	err := row.Scan(
		&item.ID, &item.Code, &item.Title, &item.BasePath, &item.Skip,
		&item.Poster.Path, &item.Poster.Width, &item.Poster.Height, &item.Poster.SizeKB, &item.Poster.Status,
		&item.Fanart.Path, &item.Fanart.Width, &item.Fanart.Height, &item.Fanart.SizeKB, &item.Fanart.Status,
		&item.Thumb.Path, &item.Thumb.Width, &item.Thumb.Height, &item.Thumb.SizeKB, &item.Thumb.Status,
		&item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}
