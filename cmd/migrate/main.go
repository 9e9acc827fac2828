package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: migrate [flags] <up|down|status|version|redo|reset> [args]\n\n")
	flag.PrintDefaults()
}

func main() {
	dsn := flag.String("dsn", "", "postgres connection string (defaults to DATABASE_URL, then the DB_* settings)")
	timeout := flag.Duration("timeout", 5*time.Minute, "give up after this long")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	log, err := logger.New(string(config.GetEnvironment()), "info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *dsn == "" {
		*dsn = os.Getenv("DATABASE_URL")
	}
	if *dsn == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatal("failed to load configuration", "error", err)
		}
		*dsn = cfg.DSN()
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	log.Info("running migrations", "command", command)
	if err := database.Migrate(ctx, db, command, args...); err != nil {
		log.Fatal("migration failed", "command", command, "error", err)
	}
	log.Info("migrations finished", "command", command)
}
