package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"koko-storefront/internal/domain"
)

const uniqueViolation = "23505"

type postgresRepo struct {
	pool       *pgxpool.Pool
	collection string
	logger     *log.Logger
}

// NewPostgres returns a Repository over one collection of the documents table.
func NewPostgres(pool *pgxpool.Pool, collection string, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, collection: collection, logger: logger}
}

func (r *postgresRepo) FindByID(ctx context.Context, id string) (Record, error) {
	const q = `
SELECT body, created_at, updated_at
FROM documents
WHERE collection = $1 AND id = $2
`
	var (
		b                    map[string]any
		createdAt, updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, q, r.collection, id).Scan(&b, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("document repo: get collection=%s id=%s not found", r.collection, id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("document repo: get collection=%s id=%s error=%v", r.collection, id, err)
		return nil, err
	}
	return withMeta(b, id, createdAt, updatedAt), nil
}

func (r *postgresRepo) FindMany(ctx context.Context, filter Filter, sort Sort, limit int) ([]Record, error) {
	where, args, err := r.where(filter)
	if err != nil {
		return nil, err
	}

	order := "created_at"
	if sort.Field != "" && sort.Field != KeyCreatedAt {
		if err := checkField(sort.Field); err != nil {
			return nil, err
		}
		args = append(args, sort.Field)
		order = fmt.Sprintf("body->($%d::text)", len(args))
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}

	q := fmt.Sprintf(`
SELECT id, body, created_at, updated_at
FROM documents
WHERE %s
ORDER BY %s %s, id ASC`, where, order, dir)
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("document repo: list collection=%s error=%v", r.collection, err)
		return nil, err
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var (
			id                   string
			b                    map[string]any
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&id, &b, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		result = append(result, withMeta(b, id, createdAt, updatedAt))
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("document repo: list rows collection=%s error=%v", r.collection, err)
		return nil, err
	}
	r.logger.Printf("document repo: list collection=%s count=%d", r.collection, len(result))
	return result, nil
}

func (r *postgresRepo) Insert(ctx context.Context, rec Record) (Record, error) {
	id := rec.ID()
	if id == "" {
		return nil, errors.New("document repo: insert requires an id")
	}
	const q = `
INSERT INTO documents (collection, id, body)
VALUES ($1, $2, $3)
RETURNING created_at, updated_at
`
	b := body(rec)
	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, q, r.collection, id, b).Scan(&createdAt, &updatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("document repo: insert collection=%s id=%s error=%v", r.collection, id, err)
		return nil, err
	}
	r.logger.Printf("document repo: inserted collection=%s id=%s", r.collection, id)
	return withMeta(b, id, createdAt, updatedAt), nil
}

func (r *postgresRepo) UpdateByID(ctx context.Context, id string, fields Record) (Record, error) {
	const q = `
UPDATE documents
SET body = body || $3::jsonb,
    updated_at = now()
WHERE collection = $1 AND id = $2
RETURNING body, created_at, updated_at
`
	var (
		b                    map[string]any
		createdAt, updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, q, r.collection, id, body(fields)).Scan(&b, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("document repo: update collection=%s id=%s error=%v", r.collection, id, err)
		return nil, err
	}
	r.logger.Printf("document repo: updated collection=%s id=%s fields=%d", r.collection, id, len(fields))
	return withMeta(b, id, createdAt, updatedAt), nil
}

func (r *postgresRepo) DeleteByID(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, r.collection, id)
	if err != nil {
		r.logger.Printf("document repo: delete collection=%s id=%s error=%v", r.collection, id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Printf("document repo: deleted collection=%s id=%s", r.collection, id)
	return nil
}

func (r *postgresRepo) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args, err := r.where(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM documents WHERE "+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *postgresRepo) AggregateSum(ctx context.Context, filter Filter, field string) (float64, error) {
	if err := checkField(field); err != nil {
		return 0, err
	}
	where, args, err := r.where(filter)
	if err != nil {
		return 0, err
	}
	args = append(args, field)
	q := fmt.Sprintf("SELECT COALESCE(SUM((body->>($%d::text))::numeric), 0)::float8 FROM documents WHERE %s", len(args), where)
	var sum float64
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *postgresRepo) where(filter Filter) (string, []any, error) {
	if err := filter.validate(); err != nil {
		return "", nil, err
	}
	args := []any{r.collection}
	clauses := []string{"collection = $1"}
	if len(filter.Eq) > 0 {
		args = append(args, filter.Eq)
		clauses = append(clauses, fmt.Sprintf("body @> $%d::jsonb", len(args)))
	}
	for _, k := range sortedKeys(filter.Lt) {
		args = append(args, k, filter.Lt[k])
		clauses = append(clauses, fmt.Sprintf("(body->>($%d::text))::numeric < $%d", len(args)-1, len(args)))
	}
	return strings.Join(clauses, " AND "), args, nil
}
