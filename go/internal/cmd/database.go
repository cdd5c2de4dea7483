package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdev12/leagify/go/internal/auction/outbox"
	"github.com/mcdev12/leagify/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

// setupDatabase opens the journal database and applies its schema.
func setupDatabase(ctx context.Context) (*sql.DB, dbconfig.Config, error) {
	dbConfig := dbconfig.NewConfigFromEnv()

	database, err := dbconfig.Open(ctx, dbConfig)
	if err != nil {
		return nil, dbConfig, err
	}

	if err := outbox.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, dbConfig, fmt.Errorf("failed to migrate journal schema: %w", err)
	}

	log.Info().
		Str("user", dbConfig.User).
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("connected to database")
	return database, dbConfig, nil
}
