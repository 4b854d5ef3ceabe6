package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"caption-llm/internal/domain"
)

type CaptionLogRepository interface {
	Create(ctx context.Context, entry domain.CaptionLog) error
}

type PgCaptionLogRepository struct {
	pool *pgxpool.Pool
}

func NewPgCaptionLogRepository(pool *pgxpool.Pool) *PgCaptionLogRepository {
	return &PgCaptionLogRepository{pool: pool}
}

func (r *PgCaptionLogRepository) Create(ctx context.Context, entry domain.CaptionLog) error {
	const query = `
		INSERT INTO caption_logs (id, identity, has_image, response, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Identity,
		entry.HasImage,
		entry.Response,
		entry.CreatedAt,
	)
	return err
}
