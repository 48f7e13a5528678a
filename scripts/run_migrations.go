package main

import (
	"errors"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"

	"github.com/avelar/supermarket-pos/internal/config"
)

func main() {
	log := logrus.New()

	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Load config")
	}

	m, err := migrate.New("file://migrations", cfg.Database.URL)
	if err != nil {
		log.WithError(err).Fatal("Open migrations")
	}
	defer m.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.WithError(err).Fatalf("Run migrations %s", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("No migrations to run")
		return
	}

	log.WithField("direction", direction).Info("Migrations applied")
}
