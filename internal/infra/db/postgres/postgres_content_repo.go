package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"catalog-console/internal/domain"
	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.ContentRepository = (*PostgresContentRepo)(nil)

type PostgresContentRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresContentRepo(pool *pgxpool.Pool) *PostgresContentRepo {
	return &PostgresContentRepo{pool: pool}
}

const contentColumns = `id, title, body, summary, category_id, content_type, status,
       is_duplicate, tags, views, likes, dislikes, created_at, updated_at`

func (r *PostgresContentRepo) Create(ctx context.Context, item *model.ContentItem) (*model.ContentItem, error) {
	const sql = `
INSERT INTO content_items
  (id, title, body, summary, category_id, content_type, status, is_duplicate, tags, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10);
`
	out := *item
	out.ID = uuid.NewString()
	now := time.Now()
	out.CreatedAt = now
	out.UpdatedAt = now
	if out.Status == "" {
		out.Status = model.ContentStatusPending
	}
	_, err := r.pool.Exec(ctx, sql,
		out.ID, out.Title, out.Body, out.Summary, out.CategoryID,
		out.ContentType, out.Status, out.IsDuplicate, out.Tags, now,
	)
	if err != nil {
		return nil, fmt.Errorf("Create content item: %w", err)
	}
	return &out, nil
}

func (r *PostgresContentRepo) FindByID(ctx context.Context, id string) (*model.ContentItem, error) {
	sql := `SELECT ` + contentColumns + `
  FROM content_items
 WHERE id = $1 AND deleted_at IS NULL;`
	row := r.pool.QueryRow(ctx, sql, id)
	item, err := scanContentItem(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("FindByID content item: %w", err)
	}
	return item, nil
}

func (r *PostgresContentRepo) Update(ctx context.Context, id string, patch model.ContentPatch) (*model.ContentItem, error) {
	set := []string{"updated_at = now()"}
	args := []interface{}{id}
	add := func(col string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Body != nil {
		add("body", *patch.Body)
	}
	if patch.Summary != nil {
		add("summary", *patch.Summary)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.IsDuplicate != nil {
		add("is_duplicate", *patch.IsDuplicate)
	}
	if patch.Tags != nil {
		add("tags", patch.Tags)
	}

	sql := fmt.Sprintf(`
UPDATE content_items
   SET %s
 WHERE id = $1 AND deleted_at IS NULL
RETURNING `+contentColumns+`;`, strings.Join(set, ", "))

	row := r.pool.QueryRow(ctx, sql, args...)
	item, err := scanContentItem(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("Update content item: %w", err)
	}
	return item, nil
}

func (r *PostgresContentRepo) Delete(ctx context.Context, id string) error {
	const sql = `
UPDATE content_items
   SET deleted_at = now(), updated_at = now()
 WHERE id = $1 AND deleted_at IS NULL;`
	ct, err := r.pool.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("Delete content item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresContentRepo) List(ctx context.Context, filter repository.ContentFilter) ([]*model.ContentItem, error) {
	where := []string{"deleted_at IS NULL"}
	var args []interface{}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.OnlyDuplicates {
		where = append(where, "is_duplicate = true")
	}

	// Most-recent-first: newly generated items surface at the top.
	sql := `SELECT ` + contentColumns + `
  FROM content_items
 WHERE ` + strings.Join(where, " AND ") + `
 ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	sql += ";"

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("List content items: %w", err)
	}
	defer rows.Close()

	var out []*model.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanContentItem(row pgx.Row) (*model.ContentItem, error) {
	var it model.ContentItem
	err := row.Scan(
		&it.ID, &it.Title, &it.Body, &it.Summary, &it.CategoryID,
		&it.ContentType, &it.Status, &it.IsDuplicate, &it.Tags,
		&it.Views, &it.Likes, &it.Dislikes, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}
