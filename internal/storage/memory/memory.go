// Package memory is an in-process storage.Store. Transactions are serialized
// and work on a copy of the data that replaces the committed data only when the
// transaction succeeds.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/storage"
)

type data struct {
	users     map[int64]domain.User
	games     map[int64]domain.Game
	products  map[int64]domain.Product
	questions map[int64]domain.Question
	boards    map[int64]domain.GameBoard
	stats     map[int64]domain.Statistic

	seq struct {
		user, product, question, board, stat int64
	}
}

func newData() *data {
	return &data{
		users:     make(map[int64]domain.User),
		games:     make(map[int64]domain.Game),
		products:  make(map[int64]domain.Product),
		questions: make(map[int64]domain.Question),
		boards:    make(map[int64]domain.GameBoard),
		stats:     make(map[int64]domain.Statistic),
	}
}

func (d *data) clone() *data {
	c := &data{
		users:     maps.Clone(d.users),
		games:     maps.Clone(d.games),
		products:  maps.Clone(d.products),
		questions: maps.Clone(d.questions),
		boards:    make(map[int64]domain.GameBoard, len(d.boards)),
		stats:     maps.Clone(d.stats),
		seq:       d.seq,
	}
	for id, b := range d.boards {
		c.boards[id] = cloneBoard(b)
	}
	return c
}

func cloneBoard(b domain.GameBoard) domain.GameBoard {
	b.Products = slices.Clone(b.Products)
	b.QuestionIDs = slices.Clone(b.QuestionIDs)
	return b
}

type Store struct {
	mu sync.Mutex
	d  *data
}

func New() *Store {
	return &Store{d: newData()}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{d: s.d.clone()}
	if err := fn(ctx, t); err != nil {
		return err
	}

	s.d = t.d
	return nil
}

type tx struct {
	d *data
}

func (t *tx) Users() storage.UserRepository           { return users{t.d} }
func (t *tx) Games() storage.GameRepository           { return games{t.d} }
func (t *tx) Products() storage.ProductRepository     { return products{t.d} }
func (t *tx) Questions() storage.QuestionRepository   { return questions{t.d} }
func (t *tx) GameBoards() storage.GameBoardRepository { return boards{t.d} }
func (t *tx) Statistics() storage.StatisticRepository { return stats{t.d} }

func sortedValues[V any](m map[int64]V, keep func(V) bool) []V {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		if v := m[id]; keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func conflict(format string, args ...any) error {
	return errors.New(errors.CodeAlreadyExists, errors.WithMessagef(format, args...))
}

type users struct{ d *data }

func (r users) Get(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (r users) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	for _, u := range sortedValues(r.d.users, nil) {
		if u.Login == login {
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r users) LoginTaken(_ context.Context, login string, exceptID int64) (bool, error) {
	for id, u := range r.d.users {
		if id != exceptID && u.Login == login {
			return true, nil
		}
	}
	return false, nil
}

func (r users) ListByRoleStatus(_ context.Context, role, status string) ([]domain.User, error) {
	return sortedValues(r.d.users, func(u domain.User) bool {
		return u.Role == role && u.Status == status
	}), nil
}

func (r users) Create(ctx context.Context, u *domain.User) error {
	if taken, _ := r.LoginTaken(ctx, u.Login, 0); taken {
		return conflict("login %q already exists", u.Login)
	}
	r.d.seq.user++
	u.UserID = r.d.seq.user
	r.d.users[u.UserID] = *u
	return nil
}

func (r users) Update(ctx context.Context, u *domain.User) error {
	if _, ok := r.d.users[u.UserID]; !ok {
		return storage.ErrNotFound
	}
	if taken, _ := r.LoginTaken(ctx, u.Login, u.UserID); taken {
		return conflict("login %q already exists", u.Login)
	}
	r.d.users[u.UserID] = *u
	return nil
}

func (r users) Delete(_ context.Context, id int64) error {
	delete(r.d.users, id)
	for gid, g := range r.d.games {
		if g.UserID == id {
			delete(r.d.games, gid)
		}
	}
	for bid, b := range r.d.boards {
		if b.UserID == id {
			delete(r.d.boards, bid)
		}
	}
	return nil
}

type games struct{ d *data }

func (r games) Get(_ context.Context, id int64) (*domain.Game, error) {
	g, ok := r.d.games[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &g, nil
}

func (r games) List(_ context.Context) ([]domain.Game, error) {
	return sortedValues(r.d.games, nil), nil
}

func (r games) ListByOwner(_ context.Context, userID int64) ([]domain.Game, error) {
	return sortedValues(r.d.games, func(g domain.Game) bool { return g.UserID == userID }), nil
}

func (r games) IDs(_ context.Context) ([]int64, error) {
	return slices.Sorted(maps.Keys(r.d.games)), nil
}

func (r games) Create(_ context.Context, g *domain.Game) error {
	if _, ok := r.d.games[g.GameID]; ok {
		return conflict("game %d already exists", g.GameID)
	}
	if _, ok := r.d.users[g.UserID]; !ok {
		return storage.ErrNotFound
	}
	r.d.games[g.GameID] = *g
	return nil
}

func (r games) Update(_ context.Context, g *domain.Game) error {
	if _, ok := r.d.games[g.GameID]; !ok {
		return storage.ErrNotFound
	}
	r.d.games[g.GameID] = *g
	return nil
}

func (r games) UpdateState(_ context.Context, id int64, state *string, currentQuestionID *int64) error {
	g, ok := r.d.games[id]
	if !ok {
		return storage.ErrNotFound
	}
	g.State = state
	g.CurrentQuestionID = currentQuestionID
	r.d.games[id] = g
	return nil
}

func (r games) Delete(_ context.Context, ids ...int64) error {
	for _, id := range ids {
		delete(r.d.games, id)
	}
	return nil
}

type products struct{ d *data }

func (r products) Get(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := r.d.products[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (r products) GetMany(_ context.Context, ids []int64) ([]domain.Product, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return sortedValues(r.d.products, func(p domain.Product) bool { return want[p.ProductID] }), nil
}

func (r products) List(_ context.Context) ([]domain.Product, error) {
	return sortedValues(r.d.products, nil), nil
}

func (r products) ListByRound(_ context.Context, round int) ([]domain.Product, error) {
	return sortedValues(r.d.products, func(p domain.Product) bool { return p.Round == round }), nil
}

func (r products) NameTaken(_ context.Context, name string, exceptID int64) (bool, error) {
	for id, p := range r.d.products {
		if id != exceptID && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r products) Create(ctx context.Context, p *domain.Product) error {
	if taken, _ := r.NameTaken(ctx, p.Name, 0); taken {
		return conflict("product name %q already exists", p.Name)
	}
	r.d.seq.product++
	p.ProductID = r.d.seq.product
	r.d.products[p.ProductID] = stripQuestions(*p)
	return nil
}

func (r products) Update(ctx context.Context, p *domain.Product) error {
	if _, ok := r.d.products[p.ProductID]; !ok {
		return storage.ErrNotFound
	}
	if taken, _ := r.NameTaken(ctx, p.Name, p.ProductID); taken {
		return conflict("product name %q already exists", p.Name)
	}
	r.d.products[p.ProductID] = stripQuestions(*p)
	return nil
}

func (r products) Delete(ctx context.Context, id int64) error {
	if _, ok := r.d.products[id]; !ok {
		return nil
	}
	delete(r.d.products, id)
	if err := (questions{r.d}).DeleteByProduct(ctx, id); err != nil {
		return err
	}
	for bid, b := range r.d.boards {
		b.Products = slices.DeleteFunc(b.Products, func(p domain.GameBoardProduct) bool { return p.ProductID == id })
		r.d.boards[bid] = b
	}
	return nil
}

func stripQuestions(p domain.Product) domain.Product {
	p.Questions = nil
	return p
}

type questions struct{ d *data }

func (r questions) Get(_ context.Context, id int64) (*domain.Question, error) {
	q, ok := r.d.questions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &q, nil
}

func (r questions) GetMany(_ context.Context, ids []int64) ([]domain.Question, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return sortedValues(r.d.questions, func(q domain.Question) bool { return want[q.QuestionID] }), nil
}

func (r questions) ListByProducts(_ context.Context, productIDs []int64) ([]domain.Question, error) {
	want := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	return sortedValues(r.d.questions, func(q domain.Question) bool { return want[q.ProductID] }), nil
}

func (r questions) Create(_ context.Context, q *domain.Question) error {
	if _, ok := r.d.products[q.ProductID]; !ok {
		return storage.ErrNotFound
	}
	r.d.seq.question++
	q.QuestionID = r.d.seq.question
	r.d.questions[q.QuestionID] = *q
	return nil
}

func (r questions) Update(_ context.Context, q *domain.Question) error {
	if _, ok := r.d.questions[q.QuestionID]; !ok {
		return storage.ErrNotFound
	}
	r.d.questions[q.QuestionID] = *q
	return nil
}

func (r questions) Delete(_ context.Context, id int64) error {
	delete(r.d.questions, id)
	r.unlink(func(qid int64) bool { return qid == id })
	return nil
}

func (r questions) DeleteByProduct(_ context.Context, productID int64) error {
	removed := make(map[int64]bool)
	for id, q := range r.d.questions {
		if q.ProductID == productID {
			delete(r.d.questions, id)
			removed[id] = true
		}
	}
	r.unlink(func(qid int64) bool { return removed[qid] })
	return nil
}

func (r questions) unlink(drop func(int64) bool) {
	for bid, b := range r.d.boards {
		b.QuestionIDs = slices.DeleteFunc(b.QuestionIDs, drop)
		r.d.boards[bid] = b
	}
}

type boards struct{ d *data }

func (r boards) Get(_ context.Context, id int64) (*domain.GameBoard, error) {
	b, ok := r.d.boards[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	b = cloneBoard(b)
	return &b, nil
}

func (r boards) List(_ context.Context) ([]domain.GameBoard, error) {
	out := sortedValues(r.d.boards, nil)
	for i := range out {
		out[i] = cloneBoard(out[i])
	}
	return out, nil
}

func (r boards) ListByOwner(_ context.Context, userID int64) ([]domain.GameBoard, error) {
	out := sortedValues(r.d.boards, func(b domain.GameBoard) bool { return b.UserID == userID })
	for i := range out {
		out[i] = cloneBoard(out[i])
	}
	return out, nil
}

func (r boards) Create(_ context.Context, b *domain.GameBoard) error {
	if _, ok := r.d.users[b.UserID]; !ok {
		return storage.ErrNotFound
	}
	r.d.seq.board++
	b.GameBoardID = r.d.seq.board
	r.put(b)
	return nil
}

func (r boards) Replace(_ context.Context, b *domain.GameBoard) error {
	if _, ok := r.d.boards[b.GameBoardID]; !ok {
		return storage.ErrNotFound
	}
	r.put(b)
	return nil
}

func (r boards) put(b *domain.GameBoard) {
	for i := range b.Products {
		b.Products[i].GameBoardID = b.GameBoardID
	}
	r.d.boards[b.GameBoardID] = cloneBoard(*b)
}

func (r boards) Delete(_ context.Context, id int64) error {
	delete(r.d.boards, id)
	return nil
}

type stats struct{ d *data }

func (r stats) Create(_ context.Context, s *domain.Statistic) error {
	r.d.seq.stat++
	s.RecordID = r.d.seq.stat
	r.d.stats[s.RecordID] = *s
	return nil
}

func (r stats) List(_ context.Context) ([]domain.Statistic, error) {
	return sortedValues(r.d.stats, nil), nil
}
