package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/samirrijal/trailwhisper/internal/adapters/postgres"
	"github.com/samirrijal/trailwhisper/internal/adapters/sqlite"
	"github.com/samirrijal/trailwhisper/internal/pkg/config"
	"github.com/samirrijal/trailwhisper/internal/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|version>")
	}

	cfg, err := config.Load("trailwhisper-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	cmd := os.Args[1]
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		err = runSQLite(cfg.Database.SQLitePath, cmd)
	default:
		err = runPostgres(cfg.Database.MigrateURL(), cmd)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func runPostgres(url, cmd string) error {
	m, err := postgres.NewMigrate(url)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		v, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if verr != nil {
			return verr
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	fmt.Println("OK")
	return nil
}

// Opening a SQLite store applies pending migrations, so "up" is the open.
func runSQLite(path, cmd string) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	switch cmd {
	case "up":
	case "down":
		if err := db.MigrateDown(); err != nil {
			return err
		}
	case "version":
		v, dirty, err := db.MigrateVersion()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	fmt.Println("OK")
	return nil
}
