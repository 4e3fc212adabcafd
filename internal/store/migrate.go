package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate moves the schema of the database behind dsn.
//   - target < 0 migrates to the latest version.
//   - target == 0 rolls every migration back.
//   - target > 0 migrates to exactly that version.
func Migrate(backend Backend, dsn string, target int) error {
	driverName, openDSN, err := connection(backend, dsn, true)
	if err != nil {
		return err
	}
	db, err := sql.Open(driverName, openDSN)
	if err != nil {
		return fmt.Errorf("open %s: %w", backend, err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping %s: %w", backend, err)
	}

	var driver database.Driver
	switch backend {
	case BackendSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case BackendPostgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	case BackendMySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	}
	if err != nil {
		return fmt.Errorf("create %s migrate driver: %w", backend, err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations/"+string(backend))
	if err != nil {
		return fmt.Errorf("access migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, string(backend), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is dirty at version %d; fix it manually or force a version", current)
	}

	switch {
	case target < 0:
		err = m.Up()
	case target == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(target))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s to %d: %w", backend, target, err)
	}
	next, _, _ := m.Version()
	log.Printf("schema migrated backend=%s from=%d to=%d", backend, current, next)
	return nil
}

// connection resolves the database/sql driver name and DSN for a backend.
// Migrations on MySQL need multi-statement support.
func connection(backend Backend, dsn string, forMigrate bool) (string, string, error) {
	switch backend {
	case BackendSQLite:
		if dsn == "" {
			return "", "", errors.New("sqlite path is required")
		}
		return "sqlite", sqliteDSN(dsn), nil
	case BackendPostgres:
		return "pgx", dsn, nil
	case BackendMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		if forMigrate {
			cfg.MultiStatements = true
		}
		return "mysql", cfg.FormatDSN(), nil
	default:
		return "", "", fmt.Errorf("unsupported backend %q", backend)
	}
}

func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
}
