package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"discoverydraft-backend/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	drop := flag.Bool("drop", false, "drop the discovery_runs table before creating it")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()

	// gen_random_uuid() is built in from Postgres 13; older servers need pgcrypto
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS pgcrypto"); err != nil {
		log.Printf("Warning: Failed to create pgcrypto extension: %v", err)
	}

	if *drop {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS discovery_runs CASCADE"); err != nil {
			log.Fatalf("Failed to drop table: %v", err)
		}
		log.Println("✓ Dropped existing discovery_runs table (if any)")
	}

	schemaSQL := `
CREATE TABLE IF NOT EXISTS discovery_runs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    case_number VARCHAR(64) NOT NULL,

    status VARCHAR(32) NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'in_progress', 'completed', 'partially_failed', 'failed')),
    current_phase VARCHAR(32),
    phases JSONB NOT NULL DEFAULT '[]'::jsonb,

    -- PipelineResult, including the dispatch summary
    result JSONB,
    error_message TEXT,
    manifest_path TEXT,

    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);`

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		log.Fatalf("Failed to create discovery_runs table: %v", err)
	}
	log.Println("✓ Created discovery_runs table")

	indexes := []struct {
		name string
		sql  string
	}{
		{
			name: "Recent runs",
			sql:  "CREATE INDEX IF NOT EXISTS idx_discovery_runs_created_at ON discovery_runs(created_at DESC);",
		},
		{
			name: "Runs by case number",
			sql:  "CREATE INDEX IF NOT EXISTS idx_discovery_runs_case_number ON discovery_runs(case_number);",
		},
		{
			name: "Unfinished runs",
			sql:  "CREATE INDEX IF NOT EXISTS idx_discovery_runs_active ON discovery_runs(status) WHERE status IN ('pending', 'in_progress');",
		},
	}

	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx.sql); err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.name, err)
		} else {
			log.Printf("✓ Created index: %s", idx.name)
		}
	}

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Println("   Table: discovery_runs")
	fmt.Printf("   Indexes: %d\n", len(indexes))
}
