package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGINIndexes creates full-text search GIN indexes that the plain
// migration files leave out, since golang-migrate treats them as
// maintenance operations rather than schema (they are safe to re-run and
// cheap to skip via IF NOT EXISTS).
func CreateGINIndexes(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_extracted_sql_cleaned_sql_gin
			ON extracted_sql USING gin(to_tsvector('english', cleaned_sql))`,
		`CREATE INDEX IF NOT EXISTS idx_context_docs_content_gin
			ON context_docs USING gin(to_tsvector('english', doc_content))`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create GIN index: %w", err)
		}
	}
	return nil
}
