package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"catalog-console/internal/domain"
	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.CategoryRepository = (*PostgresCategoryRepo)(nil)

type PostgresCategoryRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCategoryRepo(pool *pgxpool.Pool) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{pool: pool}
}

func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	const sql = `
SELECT id, name, slug, created_at
  FROM categories
 WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, sql, id)
	var c model.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("FindByID category: %w", err)
	}
	return &c, nil
}

func (r *PostgresCategoryRepo) ListAll(ctx context.Context) ([]*model.Category, error) {
	const sql = `
SELECT id, name, slug, created_at
  FROM categories
 ORDER BY name;
`
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("ListAll categories: %w", err)
	}
	defer rows.Close()
	var out []*model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
