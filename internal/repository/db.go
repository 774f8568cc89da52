package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultDSN = "action_items.db"

// sqlitePragmas are added to file DSNs that do not set them. A manual sync
// may overlap a scheduled one, so writers wait for the lock instead of
// failing with "database is locked".
var sqlitePragmas = []string{"_busy_timeout=5000", "_journal_mode=WAL"}

// NewDB opens the task database and ensures the schema exists.
// Timestamps are written in UTC so created_at sorts correctly as text.
func NewDB(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = defaultDSN
	}

	path, inMemory := sqliteFile(dsn)
	if !inMemory {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir %q: %w", dir, err)
			}
		}
		dsn = withPragmas(dsn)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "[db] ", log.LstdFlags),
			logger.Config{
				SlowThreshold:             500 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}

	if err := NewTaskRepository(db).EnsureSchema(context.Background()); err != nil {
		return nil, err
	}
	return db, nil
}

// sqliteFile returns the file path named by dsn and whether the DSN is an
// in-memory database.
func sqliteFile(dsn string) (string, bool) {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return path, true
	}
	return path, false
}

func withPragmas(dsn string) string {
	_, query, _ := strings.Cut(dsn, "?")
	var missing []string
	for _, p := range sqlitePragmas {
		key, _, _ := strings.Cut(p, "=")
		if !strings.Contains(query, key+"=") {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(missing, "&")
}
