// Package catalog manages products, their questions and the files attached to
// them.
package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/victornm/ecoquest/internal/datetime"
	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/filestore"
	"github.com/victornm/ecoquest/internal/storage"
)

type Config struct {
	Store storage.Store
	Files *filestore.Store
	// Location is the zone edit stamps are written in. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
}

type Service struct {
	store storage.Store
	files *filestore.Store
	loc   *time.Location
	now   func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store: c.Store,
		files: c.Files,
		loc:   c.Location,
		now:   c.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) stamp() string {
	return datetime.FormatEditStamp(s.now(), s.loc)
}

// CreateProduct stores p and its questions and returns the new product id.
func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (int64, error) {
	var id int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) (err error) {
		if err := validateProduct(ctx, tx, p, 0); err != nil {
			return err
		}
		id, err = s.createProduct(ctx, tx, p)
		return err
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "catalog: product created", "product_id", id, "questions", len(p.Questions))
	return id, nil
}

func (s *Service) createProduct(ctx context.Context, tx storage.Tx, p domain.Product) (int64, error) {
	np := domain.Product{
		Colour: p.Colour,
		Name:   p.Name,
		Round:  p.Round,
		Logo:   p.Logo,
	}
	if err := tx.Products().Create(ctx, &np); err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}

	stamp := s.stamp()
	for _, q := range p.Questions {
		nq := newQuestion(q, np.ProductID, stamp)
		if err := tx.Questions().Create(ctx, &nq); err != nil {
			return 0, fmt.Errorf("create question: %w", err)
		}
	}
	return np.ProductID, nil
}

func newQuestion(q domain.Question, productID int64, stamp string) domain.Question {
	nq := domain.Question{
		Answers:      q.Answers,
		Type:         q.Type,
		ShortText:    q.ShortText,
		Text:         q.Text,
		ProductID:    productID,
		Media:        q.Media,
		LastEditDate: stamp,
	}
	if !nq.IsMedia() {
		nq.Media = nil
	}
	return nq
}

// UpdateProduct replaces the fields of a product. Questions of the request
// that match a question of the product by id are updated and the others are
// added; questions missing from the request are kept. A product that does not
// exist is created instead.
func (s *Service) UpdateProduct(ctx context.Context, p domain.Product) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := validateProduct(ctx, tx, p, p.ProductID); err != nil {
			return err
		}

		cur, err := tx.Products().Get(ctx, p.ProductID)
		if stderrors.Is(err, storage.ErrNotFound) {
			_, err = s.createProduct(ctx, tx, p)
			return err
		}
		if err != nil {
			return fmt.Errorf("get product %d: %w", p.ProductID, err)
		}

		cur.Colour, cur.Name, cur.Round, cur.Logo = p.Colour, p.Name, p.Round, p.Logo
		if err := tx.Products().Update(ctx, cur); err != nil {
			return fmt.Errorf("update product %d: %w", p.ProductID, err)
		}

		existing, err := tx.Questions().ListByProducts(ctx, []int64{p.ProductID})
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		byID := make(map[int64]domain.Question, len(existing))
		for _, q := range existing {
			byID[q.QuestionID] = q
		}

		stamp := s.stamp()
		for _, q := range p.Questions {
			cq, ok := byID[q.QuestionID]
			if !ok {
				nq := newQuestion(q, p.ProductID, stamp)
				if err := tx.Questions().Create(ctx, &nq); err != nil {
					return fmt.Errorf("create question: %w", err)
				}
				continue
			}

			cq.Answers, cq.Type, cq.ShortText, cq.Text = q.Answers, q.Type, q.ShortText, q.Text
			cq.LastEditDate = stamp
			cq.Media = nil
			if cq.IsMedia() {
				cq.Media = q.Media
			}
			if err := tx.Questions().Update(ctx, &cq); err != nil {
				return fmt.Errorf("update question %d: %w", cq.QuestionID, err)
			}
		}
		return nil
	})
}

// DeleteProduct removes a product with its questions. Deleting an absent
// product succeeds.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.Products().Delete(ctx, id)
	})
}

// DeleteQuestion removes a question. Deleting an absent question succeeds.
func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.Questions().Delete(ctx, id)
	})
}

// ListProducts returns every product with its questions, ordered by id.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.listProducts(ctx, func(ctx context.Context, tx storage.Tx) ([]domain.Product, error) {
		return tx.Products().List(ctx)
	})
}

func (s *Service) ListProductsByRound(ctx context.Context, round int) ([]domain.Product, error) {
	return s.listProducts(ctx, func(ctx context.Context, tx storage.Tx) ([]domain.Product, error) {
		return tx.Products().ListByRound(ctx, round)
	})
}

func (s *Service) listProducts(ctx context.Context, list func(context.Context, storage.Tx) ([]domain.Product, error)) ([]domain.Product, error) {
	var ps []domain.Product
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) (err error) {
		ps, err = list(ctx, tx)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		return withQuestions(ctx, tx, ps)
	})
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []domain.Product{}
	}
	return ps, nil
}

// withQuestions fills in the questions of every product in ps.
func withQuestions(ctx context.Context, tx storage.Tx, ps []domain.Product) error {
	ids := make([]int64, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ProductID)
	}

	qs, err := tx.Questions().ListByProducts(ctx, ids)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}

	byProduct := make(map[int64][]domain.Question)
	for _, q := range qs {
		byProduct[q.ProductID] = append(byProduct[q.ProductID], q)
	}
	for i := range ps {
		ps[i].Questions = byProduct[ps[i].ProductID]
		if ps[i].Questions == nil {
			ps[i].Questions = []domain.Question{}
		}
	}
	return nil
}

func validateProduct(ctx context.Context, tx storage.Tx, p domain.Product, exceptID int64) error {
	switch {
	case p.Colour == "":
		return errors.InvalidInput("product colour is required")
	case p.Name == "":
		return errors.InvalidInput("product name is required")
	}

	for _, q := range p.Questions {
		if q.Type != nil && !domain.ValidQuestionType(*q.Type) {
			return errors.InvalidInput("question type %q is not supported", *q.Type)
		}
	}

	taken, err := tx.Products().NameTaken(ctx, p.Name, exceptID)
	if err != nil {
		return fmt.Errorf("check product name: %w", err)
	}
	if taken {
		return errors.InvalidInput("product name %q already exists", p.Name)
	}
	return nil
}
