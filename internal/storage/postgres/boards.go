package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/victornm/ecoquest/internal/domain"
)

const boardColumns = `game_board_id, name, num_fields, user_id`

func scanBoard(r pgx.Row) (domain.GameBoard, error) {
	var b domain.GameBoard
	err := r.Scan(&b.GameBoardID, &b.Name, &b.NumFields, &b.UserID)
	return b, err
}

type boards struct {
	tx pgx.Tx
}

func (r boards) Get(ctx context.Context, id int64) (*domain.GameBoard, error) {
	const stmt = `SELECT ` + boardColumns + ` FROM game_boards WHERE game_board_id = $1;`
	b, err := one(r.tx.QueryRow(ctx, stmt, id), scanBoard)
	if err != nil {
		return nil, err
	}

	bs := []domain.GameBoard{*b}
	if err := r.attachLinks(ctx, bs); err != nil {
		return nil, err
	}
	return &bs[0], nil
}

func (r boards) List(ctx context.Context) ([]domain.GameBoard, error) {
	const stmt = `SELECT ` + boardColumns + ` FROM game_boards ORDER BY game_board_id;`
	rows, err := r.tx.Query(ctx, stmt)
	bs, err := collect(rows, err, scanBoard)
	if err != nil {
		return nil, err
	}
	return bs, r.attachLinks(ctx, bs)
}

func (r boards) ListByOwner(ctx context.Context, userID int64) ([]domain.GameBoard, error) {
	const stmt = `SELECT ` + boardColumns + ` FROM game_boards WHERE user_id = $1 ORDER BY game_board_id;`
	rows, err := r.tx.Query(ctx, stmt, userID)
	bs, err := collect(rows, err, scanBoard)
	if err != nil {
		return nil, err
	}
	return bs, r.attachLinks(ctx, bs)
}

func (r boards) attachLinks(ctx context.Context, bs []domain.GameBoard) error {
	if len(bs) == 0 {
		return nil
	}

	ids := make([]int64, len(bs))
	index := make(map[int64]int, len(bs))
	for i, b := range bs {
		ids[i] = b.GameBoardID
		index[b.GameBoardID] = i
	}

	const productsStmt = `
SELECT game_board_id, product_id, num_of_repeating
FROM game_boards_products
WHERE game_board_id = ANY($1)
ORDER BY game_board_id, product_id;`

	rows, err := r.tx.Query(ctx, productsStmt, ids)
	links, err := collect(rows, err, func(r pgx.Row) (domain.GameBoardProduct, error) {
		var p domain.GameBoardProduct
		err := r.Scan(&p.GameBoardID, &p.ProductID, &p.NumOfRepeating)
		return p, err
	})
	if err != nil {
		return fmt.Errorf("list board products: %w", err)
	}
	for _, p := range links {
		b := &bs[index[p.GameBoardID]]
		b.Products = append(b.Products, p)
	}

	const questionsStmt = `
SELECT game_board_id, question_id
FROM game_boards_questions
WHERE game_board_id = ANY($1)
ORDER BY game_board_id, question_id;`

	rows, err = r.tx.Query(ctx, questionsStmt, ids)
	type link struct{ board, question int64 }
	qlinks, err := collect(rows, err, func(r pgx.Row) (link, error) {
		var l link
		err := r.Scan(&l.board, &l.question)
		return l, err
	})
	if err != nil {
		return fmt.Errorf("list board questions: %w", err)
	}
	for _, l := range qlinks {
		b := &bs[index[l.board]]
		b.QuestionIDs = append(b.QuestionIDs, l.question)
	}

	return nil
}

func (r boards) Create(ctx context.Context, b *domain.GameBoard) error {
	const stmt = `INSERT INTO game_boards (name, num_fields, user_id) VALUES ($1, $2, $3) RETURNING game_board_id;`
	if err := r.tx.QueryRow(ctx, stmt, b.Name, b.NumFields, b.UserID).Scan(&b.GameBoardID); err != nil {
		return convert(err, "game board owner")
	}
	return r.insertLinks(ctx, b)
}

func (r boards) Replace(ctx context.Context, b *domain.GameBoard) error {
	const stmt = `UPDATE game_boards SET name = $2, num_fields = $3, user_id = $4 WHERE game_board_id = $1;`
	if err := affected(r.tx.Exec(ctx, stmt, b.GameBoardID, b.Name, b.NumFields, b.UserID)); err != nil {
		return convert(err, "game board owner")
	}

	if _, err := r.tx.Exec(ctx, `DELETE FROM game_boards_products WHERE game_board_id = $1;`, b.GameBoardID); err != nil {
		return fmt.Errorf("clear board products: %w", err)
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM game_boards_questions WHERE game_board_id = $1;`, b.GameBoardID); err != nil {
		return fmt.Errorf("clear board questions: %w", err)
	}

	return r.insertLinks(ctx, b)
}

func (r boards) insertLinks(ctx context.Context, b *domain.GameBoard) error {
	if len(b.Products) > 0 {
		_, err := r.tx.CopyFrom(ctx,
			pgx.Identifier{"game_boards_products"},
			[]string{"game_board_id", "product_id", "num_of_repeating"},
			pgx.CopyFromSlice(len(b.Products), func(i int) ([]any, error) {
				b.Products[i].GameBoardID = b.GameBoardID
				p := b.Products[i]
				return []any{p.GameBoardID, p.ProductID, p.NumOfRepeating}, nil
			}),
		)
		if err != nil {
			return convert(fmt.Errorf("insert board products: %w", err), "game board product")
		}
	}

	if len(b.QuestionIDs) > 0 {
		_, err := r.tx.CopyFrom(ctx,
			pgx.Identifier{"game_boards_questions"},
			[]string{"game_board_id", "question_id"},
			pgx.CopyFromSlice(len(b.QuestionIDs), func(i int) ([]any, error) {
				return []any{b.GameBoardID, b.QuestionIDs[i]}, nil
			}),
		)
		if err != nil {
			return convert(fmt.Errorf("insert board questions: %w", err), "game board question")
		}
	}

	return nil
}

func (r boards) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM game_boards WHERE game_board_id = $1;`, id)
	return err
}
