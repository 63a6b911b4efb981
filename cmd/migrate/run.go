package main

import (
	"database/sql"
	"fmt"

	"suki-be/internal/migrate"
)

var (
	migrateUp   = migrate.Up
	migrateDown = migrate.Down
)

func run(db *sql.DB, mode string, steps int) error {
	switch mode {
	case "up":
		return migrateUp(db)
	case "down":
		return migrateDown(db, steps)
	default:
		return fmt.Errorf("unknown mode: %s (use 'up' or 'down')", mode)
	}
}
