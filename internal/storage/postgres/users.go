package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/victornm/ecoquest/internal/domain"
)

const userColumns = `user_id, last_name, first_name, patronymic, login, password, role, status`

func scanUser(r pgx.Row) (domain.User, error) {
	var u domain.User
	err := r.Scan(&u.UserID, &u.LastName, &u.FirstName, &u.Patronymic, &u.Login, &u.Password, &u.Role, &u.Status)
	return u, err
}

type users struct {
	tx pgx.Tx
}

func (r users) Get(ctx context.Context, id int64) (*domain.User, error) {
	const stmt = `SELECT ` + userColumns + ` FROM users WHERE user_id = $1;`
	return one(r.tx.QueryRow(ctx, stmt, id), scanUser)
}

func (r users) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	const stmt = `SELECT ` + userColumns + ` FROM users WHERE login = $1;`
	return one(r.tx.QueryRow(ctx, stmt, login), scanUser)
}

func (r users) LoginTaken(ctx context.Context, login string, exceptID int64) (bool, error) {
	const stmt = `SELECT EXISTS (SELECT 1 FROM users WHERE login = $1 AND user_id <> $2);`
	var taken bool
	err := r.tx.QueryRow(ctx, stmt, login, exceptID).Scan(&taken)
	return taken, err
}

func (r users) ListByRoleStatus(ctx context.Context, role, status string) ([]domain.User, error) {
	const stmt = `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND status = $2 ORDER BY user_id;`
	rows, err := r.tx.Query(ctx, stmt, role, status)
	return collect(rows, err, scanUser)
}

func (r users) Create(ctx context.Context, u *domain.User) error {
	const stmt = `
INSERT INTO users (last_name, first_name, patronymic, login, password, role, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING user_id;`

	err := r.tx.QueryRow(ctx, stmt, u.LastName, u.FirstName, u.Patronymic, u.Login, u.Password, u.Role, u.Status).Scan(&u.UserID)
	return convert(err, "login "+u.Login)
}

func (r users) Update(ctx context.Context, u *domain.User) error {
	const stmt = `
UPDATE users
SET last_name = $2, first_name = $3, patronymic = $4, login = $5, password = $6, role = $7, status = $8
WHERE user_id = $1;`

	err := affected(r.tx.Exec(ctx, stmt, u.UserID, u.LastName, u.FirstName, u.Patronymic, u.Login, u.Password, u.Role, u.Status))
	return convert(err, "login "+u.Login)
}

func (r users) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1;`, id)
	return err
}
