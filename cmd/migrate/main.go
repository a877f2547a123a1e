package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/artcircle/waitlist/migrations"
)

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		direction   = flag.String("direction", "up", "Migration direction: up or down")
		timeout     = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("postgres", *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open database:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}

	switch strings.ToLower(*direction) {
	case "up":
		applied, err := migrations.Up(ctx, db)
		for _, v := range applied {
			fmt.Println("applied", v)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		if len(applied) == 0 {
			fmt.Println("schema is up to date")
		}
	case "down":
		version, err := migrations.Down(ctx, db)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		if version == "" {
			fmt.Println("nothing to revert")
			return
		}
		fmt.Println("reverted", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown direction %q (use up or down)\n", *direction)
		os.Exit(1)
	}
}
