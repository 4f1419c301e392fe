package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// openDB opens path with the pragmas a single-writer embedded store
// needs: WAL so readers never block the writer, NORMAL synchronous (safe
// under WAL, much cheaper than FULL), and a busy_timeout so a momentary
// lock contention blocks briefly instead of returning SQLITE_BUSY.
//
// SetMaxOpenConns(1) makes the *sql.DB itself the serialization point;
// sqlite's own locking would otherwise surface as sporadic SQLITE_BUSY
// under concurrent acquireNextTriggers/triggersFired calls.
func openDB(ctx context.Context, path string, busyTimeout time.Duration) (*sql.DB, error) {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlitestore: %s: %w", pragma, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return db, nil
}
