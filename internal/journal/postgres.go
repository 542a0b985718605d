package journal

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Postgres stores entries in the operations table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open connection pool; the schema is created by the
// migrations in core/database.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

const insertOperation = `
	INSERT INTO operations (id, user_id, module, action, outcome, resource_id,
	                        error_code, error_msg, duration_ms, created_at)
	VALUES (:id, :user_id, :module, :action, :outcome, :resource_id,
	        :error_code, :error_msg, :duration_ms, :created_at)`

const selectRecent = `
	SELECT id, user_id, module, action, outcome, resource_id,
	       error_code, error_msg, duration_ms, created_at
	FROM operations
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2`

// Record implements Store.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if _, err := p.db.NamedExecContext(ctx, insertOperation, e); err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// Recent implements Store.
func (p *Postgres) Recent(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Entry
	if err := p.db.SelectContext(ctx, &out, selectRecent, userID, limit); err != nil {
		return nil, fmt.Errorf("select operations: %w", err)
	}
	return out, nil
}
