package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/victornm/ecoquest/internal/domain"
)

const statisticColumns = `record_id, user_id, last_name, first_name, patronymic, login, date, duration, results`

func scanStatistic(r pgx.Row) (domain.Statistic, error) {
	var s domain.Statistic
	err := r.Scan(&s.RecordID, &s.UserID, &s.LastName, &s.FirstName, &s.Patronymic, &s.Login, &s.Date, &s.Duration, &s.Results)
	return s, err
}

type statistics struct {
	tx pgx.Tx
}

func (r statistics) Create(ctx context.Context, s *domain.Statistic) error {
	const stmt = `
INSERT INTO statistics (user_id, last_name, first_name, patronymic, login, date, duration, results)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING record_id;`

	return r.tx.QueryRow(ctx, stmt, s.UserID, s.LastName, s.FirstName, s.Patronymic, s.Login, s.Date, s.Duration, s.Results).Scan(&s.RecordID)
}

func (r statistics) List(ctx context.Context) ([]domain.Statistic, error) {
	const stmt = `SELECT ` + statisticColumns + ` FROM statistics ORDER BY record_id;`
	rows, err := r.tx.Query(ctx, stmt)
	return collect(rows, err, scanStatistic)
}
