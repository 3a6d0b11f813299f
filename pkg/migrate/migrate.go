package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the in-repo migrations directory. Commands aimed at it read
// the copy embedded in the binary, so they work from any working directory.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// ErrSQLiteUnsupported is returned for goose commands against SQLite. The
// goose files use Postgres types; SQLite schemas come from AutoMigrate.
var ErrSQLiteUnsupported = errors.New("goose migrations target postgres; sqlite schemas are auto-migrated")

// goose keeps dialect and base filesystem in package globals
var gooseMu sync.Mutex

// Run executes a goose command such as up, down, redo or status.
func Run(ctx context.Context, db *sql.DB, dialect, dir string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	return withGoose(dialect, dir, func(source string) error {
		if err := goose.RunContext(ctx, command, db, source, args...); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	})
}

// MigrateToVersion moves the schema up or down to targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dialect, dir string, targetVersion string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	return withGoose(dialect, dir, func(source string) error {
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("get db version: %w", err)
		}
		switch {
		case current == target:
			return nil
		case current < target:
			if err := goose.UpToContext(ctx, db, source, target); err != nil {
				return fmt.Errorf("goose up-to %d: %w", target, err)
			}
		default:
			if err := goose.DownToContext(ctx, db, source, target); err != nil {
				return fmt.Errorf("goose down-to %d: %w", target, err)
			}
		}
		return nil
	})
}

func withGoose(dialect, dir string, fn func(source string) error) error {
	dialect = dialectOrDefault(dialect)
	if dialect == "sqlite3" || dialect == "sqlite" {
		return ErrSQLiteUnsupported
	}

	fsys, source, err := migrationSource(dir)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	return fn(source)
}

// migrationSource resolves dir to the embedded copy or the local filesystem.
func migrationSource(dir string) (fs.FS, string, error) {
	switch dir {
	case "":
		return nil, "", fmt.Errorf("dir is required")
	case DefaultDir:
		return embedded, embeddedDir, nil
	}
	return nil, dir, nil
}

func dialectOrDefault(dialect string) string {
	if dialect == "" {
		return "postgres"
	}
	return dialect
}
