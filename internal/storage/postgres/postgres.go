// Package postgres implements storage.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/storage"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	if err = fn(ctx, repos{tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

type repos struct {
	tx pgx.Tx
}

func (r repos) Users() storage.UserRepository           { return users{r.tx} }
func (r repos) Games() storage.GameRepository           { return games{r.tx} }
func (r repos) Products() storage.ProductRepository     { return products{r.tx} }
func (r repos) Questions() storage.QuestionRepository   { return questions{r.tx} }
func (r repos) GameBoards() storage.GameBoardRepository { return boards{r.tx} }
func (r repos) Statistics() storage.StatisticRepository { return statistics{r.tx} }

func collect[T any](rows pgx.Rows, err error, scan func(pgx.Row) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (T, error) {
		return scan(r)
	})
}

func one[T any](row pgx.Row, scan func(pgx.Row) (T, error)) (*T, error) {
	v, err := scan(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// convert maps constraint violations to client facing errors.
func convert(err error, what string) error {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("%s already exists", what),
			errors.WithCause(err))
	case codeForeignKeyViolation:
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("%s references a missing row", what),
			errors.WithCause(err))
	}

	return err
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
