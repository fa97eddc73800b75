package gameboard

import (
	"context"
	"fmt"
	"slices"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/storage"
)

// DTO is the transferable shape of a board: every linked product carries its
// whole question catalog and the ids of the questions picked for the board.
type DTO struct {
	GameBoardID int64        `json:"gameBoardId"`
	Name        string       `json:"name"`
	NumFields   int          `json:"numFields"`
	UserID      int64        `json:"userId"`
	Products    []ProductDTO `json:"products"`
}

type ProductDTO struct {
	GameBoardID     int64             `json:"gameBoardId"`
	ProductID       int64             `json:"productId"`
	Colour          string            `json:"colour"`
	Name            string            `json:"name"`
	Round           int               `json:"round"`
	Logo            *string           `json:"logo"`
	NumOfRepeating  int               `json:"numOfRepeating"`
	AllQuestions    []domain.Question `json:"allQuestions"`
	ActiveQuestions []int64           `json:"activeQuestions"`
}

// Catalog is the slice of the product catalog a board refers to.
type Catalog struct {
	Products  map[int64]domain.Product
	Questions map[int64]domain.Question
}

// Flatten renders b against the catalog. Products missing from the catalog are
// left out, as are linked questions whose product is not on the board.
func Flatten(b domain.GameBoard, c Catalog) DTO {
	d := DTO{
		GameBoardID: b.GameBoardID,
		Name:        b.Name,
		NumFields:   b.NumFields,
		UserID:      b.UserID,
		Products:    make([]ProductDTO, 0, len(b.Products)),
	}

	byProduct := make(map[int64][]domain.Question)
	for _, id := range sortedKeys(c.Questions) {
		q := c.Questions[id]
		byProduct[q.ProductID] = append(byProduct[q.ProductID], q)
	}

	for _, link := range b.Products {
		p, ok := c.Products[link.ProductID]
		if !ok {
			continue
		}

		pd := ProductDTO{
			GameBoardID:     b.GameBoardID,
			ProductID:       p.ProductID,
			Colour:          p.Colour,
			Name:            p.Name,
			Round:           p.Round,
			Logo:            p.Logo,
			NumOfRepeating:  link.NumOfRepeating,
			AllQuestions:    byProduct[p.ProductID],
			ActiveQuestions: []int64{},
		}
		if pd.AllQuestions == nil {
			pd.AllQuestions = []domain.Question{}
		}

		for _, qid := range b.QuestionIDs {
			if q, ok := c.Questions[qid]; ok && q.ProductID == p.ProductID {
				pd.ActiveQuestions = append(pd.ActiveQuestions, qid)
			}
		}

		d.Products = append(d.Products, pd)
	}

	return d
}

// Unflatten builds the board row with its product links and active question
// links. Active question ids absent from the catalog are dropped.
func Unflatten(d DTO, c Catalog) domain.GameBoard {
	b := domain.GameBoard{
		GameBoardID: d.GameBoardID,
		Name:        d.Name,
		NumFields:   d.NumFields,
		UserID:      d.UserID,
		Products:    make([]domain.GameBoardProduct, 0, len(d.Products)),
		QuestionIDs: []int64{},
	}

	seen := make(map[int64]bool)
	for _, p := range d.Products {
		b.Products = append(b.Products, domain.GameBoardProduct{
			GameBoardID:    d.GameBoardID,
			ProductID:      p.ProductID,
			NumOfRepeating: p.NumOfRepeating,
		})

		for _, qid := range p.ActiveQuestions {
			if _, ok := c.Questions[qid]; !ok || seen[qid] {
				continue
			}
			seen[qid] = true
			b.QuestionIDs = append(b.QuestionIDs, qid)
		}
	}

	return b
}

// Validate checks a board before it is stored.
func Validate(ctx context.Context, tx storage.Tx, b domain.GameBoard) error {
	if b.Name == "" {
		return errors.InvalidInput("game board name is required")
	}

	if _, err := activeMaster(ctx, tx, b.UserID); err != nil {
		return err
	}

	ids := make([]int64, 0, len(b.Products))
	for _, p := range b.Products {
		if slices.Contains(ids, p.ProductID) {
			return errors.InvalidInput("product %d is listed more than once", p.ProductID)
		}
		ids = append(ids, p.ProductID)
	}

	ps, err := tx.Products().GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("get products: %w", err)
	}
	if len(ps) != len(ids) {
		return errors.NotFound("one or more products not found")
	}

	qs, err := tx.Questions().GetMany(ctx, b.QuestionIDs)
	if err != nil {
		return fmt.Errorf("get questions: %w", err)
	}
	if len(qs) != len(b.QuestionIDs) {
		return errors.NotFound("one or more questions not found")
	}

	return nil
}

// loadCatalog reads the given products with all of their questions plus the
// extra questions named by id.
func loadCatalog(ctx context.Context, tx storage.Tx, productIDs, questionIDs []int64) (Catalog, error) {
	c := Catalog{
		Products:  make(map[int64]domain.Product),
		Questions: make(map[int64]domain.Question),
	}

	ps, err := tx.Products().GetMany(ctx, productIDs)
	if err != nil {
		return Catalog{}, fmt.Errorf("get products: %w", err)
	}
	for _, p := range ps {
		c.Products[p.ProductID] = p
	}

	qs, err := tx.Questions().ListByProducts(ctx, productIDs)
	if err != nil {
		return Catalog{}, fmt.Errorf("list questions: %w", err)
	}
	extra, err := tx.Questions().GetMany(ctx, questionIDs)
	if err != nil {
		return Catalog{}, fmt.Errorf("get questions: %w", err)
	}
	for _, q := range append(qs, extra...) {
		c.Questions[q.QuestionID] = q
	}

	return c, nil
}

func boardCatalog(ctx context.Context, tx storage.Tx, bs ...domain.GameBoard) (Catalog, error) {
	var pids, qids []int64
	for _, b := range bs {
		for _, p := range b.Products {
			pids = append(pids, p.ProductID)
		}
		qids = append(qids, b.QuestionIDs...)
	}
	return loadCatalog(ctx, tx, pids, qids)
}

func dtoCatalog(ctx context.Context, tx storage.Tx, d DTO) (Catalog, error) {
	var pids, qids []int64
	for _, p := range d.Products {
		pids = append(pids, p.ProductID)
		qids = append(qids, p.ActiveQuestions...)
	}
	return loadCatalog(ctx, tx, pids, qids)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
