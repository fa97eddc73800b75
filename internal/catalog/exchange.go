package catalog

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/spreadsheet"
	"github.com/victornm/ecoquest/internal/storage"
)

// ProductExportPattern matches every product workbook a previous export left.
var ProductExportPattern = regexp.MustCompile(`^product.*\.xlsx$`)

type ExportRequest struct {
	// ProductIDs selects the products to export. Empty means all of them.
	ProductIDs []int64
	FileName   string
}

// ExportProducts renders the selected products into {FileName}.xlsx, replacing
// any earlier product workbook, and returns the name of the written file.
func (s *Service) ExportProducts(ctx context.Context, req ExportRequest) (string, error) {
	var ps []domain.Product
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) (err error) {
		if len(req.ProductIDs) == 0 {
			ps, err = tx.Products().List(ctx)
		} else {
			ps, err = tx.Products().GetMany(ctx, req.ProductIDs)
		}
		if err != nil {
			return fmt.Errorf("get products: %w", err)
		}

		if len(ps) != len(unique(req.ProductIDs)) && len(req.ProductIDs) > 0 {
			return errors.NotFound("one or more products not found")
		}
		if err := validFileName(req.FileName); err != nil {
			return err
		}

		return withQuestions(ctx, tx, ps)
	})
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteProducts(&buf, ps); err != nil {
		return "", err
	}

	name := req.FileName + ".xlsx"
	if err := s.files.Replace(name, ProductExportPattern, &buf); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "catalog: products exported", "file", name, "products", len(ps))
	return name, nil
}

// ImportProducts reads a product workbook. Every sheet that passes product
// validation is applied: a known product id is overwritten together with its
// whole question set, any other sheet becomes a new product. Invalid sheets are
// skipped.
func (s *Service) ImportProducts(ctx context.Context, r io.Reader) error {
	if r == nil {
		return errors.InvalidInput("no file uploaded")
	}

	ps, err := spreadsheet.ReadProducts(r)
	if err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("file is not a product workbook"), errors.WithCause(err))
	}

	var imported, skipped int
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		for _, p := range ps {
			s.keepKnownFiles(&p)

			err := validateProduct(ctx, tx, p, p.ProductID)
			if errors.Is(err, errors.CodeInvalidArgument) {
				slog.WarnContext(ctx, "catalog: import skipped sheet", "product", p.Name, "error", err)
				skipped++
				continue
			}
			if err != nil {
				return err
			}

			if err := s.importProduct(ctx, tx, p); err != nil {
				return err
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "catalog: products imported", "imported", imported, "skipped", skipped)
	return nil
}

func (s *Service) importProduct(ctx context.Context, tx storage.Tx, p domain.Product) error {
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

	if err := tx.Questions().DeleteByProduct(ctx, p.ProductID); err != nil {
		return fmt.Errorf("delete questions of product %d: %w", p.ProductID, err)
	}
	stamp := s.stamp()
	for _, q := range p.Questions {
		nq := newQuestion(q, p.ProductID, stamp)
		if err := tx.Questions().Create(ctx, &nq); err != nil {
			return fmt.Errorf("create question: %w", err)
		}
	}
	return nil
}

// keepKnownFiles clears logo and media references that do not follow the
// naming convention of their owner or whose file is not in the store.
func (s *Service) keepKnownFiles(p *domain.Product) {
	if !s.known(p.Logo, fmt.Sprintf("logo%d", p.ProductID)) {
		p.Logo = nil
	}
	for i := range p.Questions {
		q := &p.Questions[i]
		if !s.known(q.Media, fmt.Sprintf("media%d", q.QuestionID)) {
			q.Media = nil
		}
	}
}

func (s *Service) known(name *string, stem string) bool {
	if name == nil {
		return false
	}
	if strings.TrimSuffix(*name, path.Ext(*name)) != stem {
		return false
	}
	ok, err := s.files.Exists(*name)
	return err == nil && ok
}

func validFileName(name string) error {
	if name == "" {
		return errors.InvalidInput("file name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.InvalidInput("file name %q is not allowed", name)
	}
	return nil
}

func unique(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
