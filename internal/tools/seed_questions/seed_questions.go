package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizbid/quizbid/internal/dbconfig"
)

// Question mirrors the JSON catalog snapshot
type Question struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Tag         string `json:"tag"`
	Description string `json:"description"`
}

func main() {
	path := "internal/assets/questions.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the JSON snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert and count
	var (
		total    = len(questions)
		inserted int
		skipped  int
		errs     int
	)

	for _, q := range questions {
		var tag any
		if q.Tag != "" {
			tag = q.Tag
		}
		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO questions (idx, title, description, tag)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (idx) DO NOTHING
        `,
			q.Index, q.Title, q.Description, tag,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting question %d: %v\n", q.Index, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Questions seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
