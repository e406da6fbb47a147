// Package main applies the postgres character-store migrations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/cory-johannsen/realm/internal/config"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dir := flag.String("dir", "migrations/postgres", "directory holding the migration files")
	direction := flag.String("direction", "up", "migration direction: up, down or version")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if cfg.Storage.Driver != "postgres" {
		log.Fatalf("storage driver is %q: migrations only apply to postgres (sqlite creates its schema on open)", cfg.Storage.Driver)
	}

	m, err := migrate.New("file://"+*dir, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
	default:
		log.Fatalf("invalid direction %q: must be up, down or version", *direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		log.Fatalf("reading version: %v", verr)
	}
	elapsed := time.Since(start)

	switch {
	case *direction == "version":
		fmt.Fprintf(os.Stdout, "version=%d dirty=%v [%s]\n", version, dirty, elapsed)
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Fprintf(os.Stdout, "no changes (version=%d dirty=%v) [%s]\n", version, dirty, elapsed)
	default:
		fmt.Fprintf(os.Stdout, "migrated %s to version=%d dirty=%v [%s]\n", *direction, version, dirty, elapsed)
	}
}
