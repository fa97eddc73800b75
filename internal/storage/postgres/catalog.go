package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/victornm/ecoquest/internal/domain"
)

const productColumns = `product_id, colour, name, round, logo`

func scanProduct(r pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := r.Scan(&p.ProductID, &p.Colour, &p.Name, &p.Round, &p.Logo)
	return p, err
}

type products struct {
	tx pgx.Tx
}

func (r products) Get(ctx context.Context, id int64) (*domain.Product, error) {
	const stmt = `SELECT ` + productColumns + ` FROM products WHERE product_id = $1;`
	return one(r.tx.QueryRow(ctx, stmt, id), scanProduct)
}

func (r products) GetMany(ctx context.Context, ids []int64) ([]domain.Product, error) {
	const stmt = `SELECT ` + productColumns + ` FROM products WHERE product_id = ANY($1) ORDER BY product_id;`
	rows, err := r.tx.Query(ctx, stmt, ids)
	return collect(rows, err, scanProduct)
}

func (r products) List(ctx context.Context) ([]domain.Product, error) {
	const stmt = `SELECT ` + productColumns + ` FROM products ORDER BY product_id;`
	rows, err := r.tx.Query(ctx, stmt)
	return collect(rows, err, scanProduct)
}

func (r products) ListByRound(ctx context.Context, round int) ([]domain.Product, error) {
	const stmt = `SELECT ` + productColumns + ` FROM products WHERE round = $1 ORDER BY product_id;`
	rows, err := r.tx.Query(ctx, stmt, round)
	return collect(rows, err, scanProduct)
}

func (r products) NameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	const stmt = `SELECT EXISTS (SELECT 1 FROM products WHERE name = $1 AND product_id <> $2);`
	var taken bool
	err := r.tx.QueryRow(ctx, stmt, name, exceptID).Scan(&taken)
	return taken, err
}

func (r products) Create(ctx context.Context, p *domain.Product) error {
	const stmt = `INSERT INTO products (colour, name, round, logo) VALUES ($1, $2, $3, $4) RETURNING product_id;`
	err := r.tx.QueryRow(ctx, stmt, p.Colour, p.Name, p.Round, p.Logo).Scan(&p.ProductID)
	return convert(err, "product name "+p.Name)
}

func (r products) Update(ctx context.Context, p *domain.Product) error {
	const stmt = `UPDATE products SET colour = $2, name = $3, round = $4, logo = $5 WHERE product_id = $1;`
	err := affected(r.tx.Exec(ctx, stmt, p.ProductID, p.Colour, p.Name, p.Round, p.Logo))
	return convert(err, "product name "+p.Name)
}

func (r products) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM products WHERE product_id = $1;`, id)
	return err
}

const questionColumns = `question_id, answers, type, short_text, text, product_id, media, last_edit_date`

func scanQuestion(r pgx.Row) (domain.Question, error) {
	var q domain.Question
	err := r.Scan(&q.QuestionID, &q.Answers, &q.Type, &q.ShortText, &q.Text, &q.ProductID, &q.Media, &q.LastEditDate)
	return q, err
}

type questions struct {
	tx pgx.Tx
}

func (r questions) Get(ctx context.Context, id int64) (*domain.Question, error) {
	const stmt = `SELECT ` + questionColumns + ` FROM questions WHERE question_id = $1;`
	return one(r.tx.QueryRow(ctx, stmt, id), scanQuestion)
}

func (r questions) GetMany(ctx context.Context, ids []int64) ([]domain.Question, error) {
	const stmt = `SELECT ` + questionColumns + ` FROM questions WHERE question_id = ANY($1) ORDER BY question_id;`
	rows, err := r.tx.Query(ctx, stmt, ids)
	return collect(rows, err, scanQuestion)
}

func (r questions) ListByProducts(ctx context.Context, productIDs []int64) ([]domain.Question, error) {
	const stmt = `SELECT ` + questionColumns + ` FROM questions WHERE product_id = ANY($1) ORDER BY question_id;`
	rows, err := r.tx.Query(ctx, stmt, productIDs)
	return collect(rows, err, scanQuestion)
}

func (r questions) Create(ctx context.Context, q *domain.Question) error {
	const stmt = `
INSERT INTO questions (answers, type, short_text, text, product_id, media, last_edit_date)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING question_id;`

	err := r.tx.QueryRow(ctx, stmt, q.Answers, q.Type, q.ShortText, q.Text, q.ProductID, q.Media, q.LastEditDate).Scan(&q.QuestionID)
	return convert(err, "question")
}

func (r questions) Update(ctx context.Context, q *domain.Question) error {
	const stmt = `
UPDATE questions
SET answers = $2, type = $3, short_text = $4, text = $5, product_id = $6, media = $7, last_edit_date = $8
WHERE question_id = $1;`

	err := affected(r.tx.Exec(ctx, stmt, q.QuestionID, q.Answers, q.Type, q.ShortText, q.Text, q.ProductID, q.Media, q.LastEditDate))
	return convert(err, "question")
}

func (r questions) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM questions WHERE question_id = $1;`, id)
	return err
}

func (r questions) DeleteByProduct(ctx context.Context, productID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM questions WHERE product_id = $1;`, productID)
	return err
}
