package main

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/gantry-dev/gantry/internal/db"
)

func openDB() (*sql.DB, string, func(), error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", func() {}, err
	}
	gantryDir := filepath.Join(cwd, ".gantry")
	if err := os.MkdirAll(gantryDir, 0o755); err != nil {
		return nil, "", func() {}, err
	}
	dbPath := filepath.Join(gantryDir, "gantry.db")
	storeDB, err := db.Open(dbPath)
	if err != nil {
		return nil, "", func() {}, err
	}
	return storeDB, gantryDir, func() { _ = storeDB.Close() }, nil
}
