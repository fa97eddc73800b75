package postgres

import (
	"embed"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DSN builds a connection string. The scheme is postgres for pgx and pgx5
// for the migrate driver.
func DSN(scheme, addr, user, pass, name string) string {
	return fmt.Sprintf("%s://%s:%s@%s/%s", scheme, user, pass, addr, name)
}

// Migrate applies all pending migrations. steps > 0 applies that many,
// steps < 0 rolls that many back and zero migrates up completely.
func Migrate(dsn string, steps int) (err error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrate: open source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("migrate: setup: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		err = stderrors.Join(err, srcErr, dbErr)
	}()

	if steps == 0 {
		err = m.Up()
	} else {
		err = m.Steps(steps)
	}
	if stderrors.Is(err, migrate.ErrNoChange) {
		slog.Info("migrate: no change")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	v, dirty, _ := m.Version()
	slog.Info("migrate: done", "version", v, "dirty", dirty)
	return nil
}
