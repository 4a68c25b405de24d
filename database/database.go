package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores surveys in a SQLite file. Pages are kept as JSON text.
type SQLite struct {
	db *sql.DB
}

func Open(path string) (store *SQLite, err error) {
	// pragmas go in the DSN so every pooled connection gets them
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_foreign_keys=on&_busy_timeout=5000"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return
	}

	return &SQLite{db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
