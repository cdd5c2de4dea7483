package outbox

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed db/schema.sql
var schema string

// Migrate creates the journal tables if they do not exist.
func Migrate(ctx context.Context, database *sql.DB) error {
	if _, err := database.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply outbox schema: %w", err)
	}
	return nil
}
