// Command schema applies the comic schema DDL to the configured database.
// It is a bootstrap tool, not a migration framework: every statement is
// idempotent and the whole set is applied on each run.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"storybook/internal/db"
)

func main() {
	var dbURL string
	flag.StringVar(&dbURL, "database-url", "", "PostgreSQL connection string (fallbacks to DATABASE_URL)")
	flag.Parse()

	_ = godotenv.Load()

	if strings.TrimSpace(dbURL) == "" {
		dbURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required via -database-url or environment")
		os.Exit(1)
	}

	conn, err := sql.Open("postgres", dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	conn.SetConnMaxLifetime(time.Minute)
	if err := conn.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "ping database: %v\n", err)
		os.Exit(1)
	}

	for i, stmt := range db.DDL {
		if _, err := conn.Exec(stmt); err != nil {
			fmt.Fprintf(os.Stderr, "apply statement %d: %v\n", i+1, err)
			os.Exit(1)
		}
	}

	fmt.Printf("schema applied (%d statements)\n", len(db.DDL))
}
