// Command seed_schools loads a school CSV and upserts it into the schools
// table.
//
//	seed_schools [path/to/schools.csv | https://host/schools.csv]
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/leagify/go/clients"
	"github.com/mcdev12/leagify/go/internal/catalog"
	"github.com/mcdev12/leagify/go/internal/dbconfig"
)

const createSchools = `
CREATE TABLE IF NOT EXISTS schools (
  id                                     UUID PRIMARY KEY,
  name                                   TEXT NOT NULL UNIQUE,
  conference                             TEXT NOT NULL,
  position                               TEXT NOT NULL,
  projected_points                       DOUBLE PRECISION,
  number_of_prospects                    INTEGER,
  school_url                             TEXT NOT NULL DEFAULT '',
  suggested_auction_value                DOUBLE PRECISION,
  projected_points_above_average         DOUBLE PRECISION,
  projected_points_above_replacement     DOUBLE PRECISION,
  average_points_for_position            DOUBLE PRECISION,
  replacement_value_average_for_position DOUBLE PRECISION,
  updated_at                             TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// upsertSchool keeps the original id of a school seen before, so only the
// figures change between seasons.
const upsertSchool = `
INSERT INTO schools (
  id, name, conference, position, projected_points, number_of_prospects,
  school_url, suggested_auction_value, projected_points_above_average,
  projected_points_above_replacement, average_points_for_position,
  replacement_value_average_for_position
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
ON CONFLICT (name) DO UPDATE SET
  conference = EXCLUDED.conference,
  position = EXCLUDED.position,
  projected_points = EXCLUDED.projected_points,
  number_of_prospects = EXCLUDED.number_of_prospects,
  school_url = EXCLUDED.school_url,
  suggested_auction_value = EXCLUDED.suggested_auction_value,
  projected_points_above_average = EXCLUDED.projected_points_above_average,
  projected_points_above_replacement = EXCLUDED.projected_points_above_replacement,
  average_points_for_position = EXCLUDED.average_points_for_position,
  replacement_value_average_for_position = EXCLUDED.replacement_value_average_for_position,
  updated_at = NOW()
RETURNING (xmax = 0) AS inserted`

func main() {
	path := "go/internal/assets/schools.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	ctx := context.Background()

	// 1) Parse the CSV
	cat, summary, err := loadCatalog(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load csv: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, createSchools); err != nil {
		fmt.Fprintf(os.Stderr, "create schools table: %v\n", err)
		os.Exit(1)
	}

	// 3) Upsert and count
	var inserted, updated, errs int
	for _, s := range cat.Schools() {
		var isNew bool
		err := pool.QueryRow(ctx, upsertSchool,
			s.ID, s.Name, s.Conference, s.Position, s.ProjectedPoints, s.NumberOfProspects,
			s.SchoolURL, s.SuggestedAuctionValue, s.ProjectedPointsAboveAverage,
			s.ProjectedPointsAboveReplacement, s.AveragePointsForPosition,
			s.ReplacementValueAverageForPosition,
		).Scan(&isNew)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error upserting school %s: %v\n", s.Name, err)
			errs++
			continue
		}
		if isNew {
			inserted++
		} else {
			updated++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Schools seed complete: %d lines, %d parsed, %d blank, %d malformed, %d unreadable; %d inserted, %d updated, %d errors\n",
		summary.TotalLines, summary.Parsed, summary.BlankLines, summary.MalformedLines, summary.ErrorLines,
		inserted, updated, errs,
	)
}

func loadCatalog(ctx context.Context, source string) (*catalog.Catalog, catalog.Summary, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return catalog.LoadFile(source)
	}
	client := clients.NewBaseClient("")
	client.SetHeader("Accept", "text/csv")
	body, err := client.Get(ctx, source)
	if err != nil {
		return nil, catalog.Summary{}, fmt.Errorf("failed to download school csv: %w", err)
	}
	return catalog.Load(bytes.NewReader(body))
}
