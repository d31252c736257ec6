package database

import (
	"embed"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/khaosat/core"
)

// supported engines
const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

func dsn(dbName string, conf *core.Config) (string, error) {
	switch conf.Database.Engine {
	case SQLite:
		path := conf.Database.Path
		if path != ":memory:" && !filepath.IsAbs(path) {
			path = filepath.Join(conf.WorkDir, path)
		}
		return SQLiteDSN(path), nil

	case Postgres:
		sslMode := "require"
		if conf.Database.DisableTLS {
			sslMode = "disable"
		}
		q := make(url.Values)
		q.Set("sslmode", sslMode)
		q.Set("timezone", "utc")

		u := url.URL{
			Scheme:   Postgres,
			User:     url.UserPassword(conf.Database.User, conf.Database.Password),
			Host:     conf.Database.Address(),
			Path:     dbName,
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	}
	return "", errors.Errorf("unsupported database engine %q", conf.Database.Engine)
}

// SQLiteDSN enables foreign keys and waits on locks instead of failing right away.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000", path)
}

// Open connects to the configured database and waits until it answers.
func Open(conf *core.Config) (*sqlx.DB, error) {
	source, err := dsn(conf.Database.Name, conf)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(conf.Database.Engine, source)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if conf.Database.Engine == SQLite {
		// a single writer avoids "database is locked" errors between pooled connections
		db.SetMaxOpenConns(1)
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// CreateIfNotExist creates the postgres database when missing. It is a no-op for sqlite.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != Postgres {
		return nil
	}

	source, err := dsn("postgres", conf)
	if err != nil {
		return err
	}
	db, err := sqlx.Open(Postgres, source)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	var exists bool
	if err = db.Get(&exists, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name); err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !exists {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %q", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// Migrate runs a goose command (up, down, status, ...) with the embedded migrations of the db's dialect.
func Migrate(db *sqlx.DB, command string, args ...string) error {
	dialect := db.DriverName()
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	dir := "migrations/" + dialect
	if err := goose.Run(command, db.DB, dir, args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}
