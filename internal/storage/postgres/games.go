package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/victornm/ecoquest/internal/domain"
)

const gameColumns = `game_id, user_id, name, message, date, state::text, current_question_id`

func scanGame(r pgx.Row) (domain.Game, error) {
	var g domain.Game
	err := r.Scan(&g.GameID, &g.UserID, &g.Name, &g.Message, &g.Date, &g.State, &g.CurrentQuestionID)
	return g, err
}

type games struct {
	tx pgx.Tx
}

func (r games) Get(ctx context.Context, id int64) (*domain.Game, error) {
	const stmt = `SELECT ` + gameColumns + ` FROM games WHERE game_id = $1;`
	return one(r.tx.QueryRow(ctx, stmt, id), scanGame)
}

func (r games) List(ctx context.Context) ([]domain.Game, error) {
	const stmt = `SELECT ` + gameColumns + ` FROM games ORDER BY game_id;`
	rows, err := r.tx.Query(ctx, stmt)
	return collect(rows, err, scanGame)
}

func (r games) ListByOwner(ctx context.Context, userID int64) ([]domain.Game, error) {
	const stmt = `SELECT ` + gameColumns + ` FROM games WHERE user_id = $1 ORDER BY game_id;`
	rows, err := r.tx.Query(ctx, stmt, userID)
	return collect(rows, err, scanGame)
}

func (r games) IDs(ctx context.Context) ([]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT game_id FROM games ORDER BY game_id;`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r games) Create(ctx context.Context, g *domain.Game) error {
	const stmt = `
INSERT INTO games (game_id, user_id, name, message, date, state, current_question_id)
VALUES ($1, $2, $3, $4, $5, $6::json, $7);`

	_, err := r.tx.Exec(ctx, stmt, g.GameID, g.UserID, g.Name, g.Message, g.Date, g.State, g.CurrentQuestionID)
	return convert(err, "game")
}

func (r games) Update(ctx context.Context, g *domain.Game) error {
	const stmt = `
UPDATE games
SET user_id = $2, name = $3, message = $4, date = $5, state = $6::json, current_question_id = $7
WHERE game_id = $1;`

	err := affected(r.tx.Exec(ctx, stmt, g.GameID, g.UserID, g.Name, g.Message, g.Date, g.State, g.CurrentQuestionID))
	return convert(err, "game")
}

func (r games) UpdateState(ctx context.Context, id int64, state *string, currentQuestionID *int64) error {
	const stmt = `UPDATE games SET state = $2::json, current_question_id = $3 WHERE game_id = $1;`
	return affected(r.tx.Exec(ctx, stmt, id, state, currentQuestionID))
}

func (r games) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.tx.Exec(ctx, `DELETE FROM games WHERE game_id = ANY($1);`, ids)
	return err
}
