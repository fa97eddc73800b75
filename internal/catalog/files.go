package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/storage"
)

// Upload is a file received from a client. Only the extension of Filename is
// kept.
type Upload struct {
	Filename string
	Content  io.Reader
}

func logoName(productID int64, filename string) string {
	return fmt.Sprintf("logo%d%s", productID, path.Ext(filename))
}

func mediaName(questionID int64, filename string) string {
	return fmt.Sprintf("media%d%s", questionID, path.Ext(filename))
}

// CreateLogo stores the logo of a product that has none yet.
func (s *Service) CreateLogo(ctx context.Context, productID int64, up *Upload) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return s.createLogo(ctx, tx, productID, up)
	})
}

func (s *Service) createLogo(ctx context.Context, tx storage.Tx, productID int64, up *Upload) error {
	p, err := getProduct(ctx, tx, productID)
	if err != nil {
		return err
	}
	if p.Logo != nil {
		return errors.InvalidInput("product %d already has a logo", productID)
	}
	if up == nil || up.Content == nil {
		return errors.InvalidInput("no file uploaded")
	}

	name := logoName(productID, up.Filename)
	if err := s.files.Write(name, up.Content); err != nil {
		return err
	}

	p.Logo = &name
	return tx.Products().Update(ctx, p)
}

// DeleteLogo removes the logo file of a product. A product without a logo, or
// no product at all, is left as it is.
func (s *Service) DeleteLogo(ctx context.Context, productID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return s.deleteLogo(ctx, tx, productID)
	})
}

func (s *Service) deleteLogo(ctx context.Context, tx storage.Tx, productID int64) error {
	p, err := tx.Products().Get(ctx, productID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get product %d: %w", productID, err)
	}
	if p.Logo == nil {
		return nil
	}

	if err := s.files.Delete(path.Base(*p.Logo)); err != nil {
		return err
	}
	p.Logo = nil
	return tx.Products().Update(ctx, p)
}

// UpdateLogo replaces the logo of a product.
func (s *Service) UpdateLogo(ctx context.Context, productID int64, up *Upload) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.deleteLogo(ctx, tx, productID); err != nil {
			return err
		}
		return s.createLogo(ctx, tx, productID, up)
	})
}

// CreateMedia stores the media fragment of a MEDIA question that has none yet.
func (s *Service) CreateMedia(ctx context.Context, questionID int64, up *Upload) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return s.createMedia(ctx, tx, questionID, up)
	})
}

func (s *Service) createMedia(ctx context.Context, tx storage.Tx, questionID int64, up *Upload) error {
	q, err := tx.Questions().Get(ctx, questionID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound("question %d not found", questionID)
	}
	if err != nil {
		return fmt.Errorf("get question %d: %w", questionID, err)
	}
	if !q.IsMedia() {
		return errors.InvalidInput("question %d is not of type %s", questionID, domain.QuestionTypeMedia)
	}
	if q.Media != nil {
		return errors.InvalidInput("question %d already has media", questionID)
	}
	if up == nil || up.Content == nil {
		return errors.InvalidInput("no file uploaded")
	}

	name := mediaName(questionID, up.Filename)
	if err := s.files.Write(name, up.Content); err != nil {
		return err
	}

	q.Media = &name
	return tx.Questions().Update(ctx, q)
}

// DeleteMedia removes the media file of a question, if any.
func (s *Service) DeleteMedia(ctx context.Context, questionID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return s.deleteMedia(ctx, tx, questionID)
	})
}

func (s *Service) deleteMedia(ctx context.Context, tx storage.Tx, questionID int64) error {
	q, err := tx.Questions().Get(ctx, questionID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get question %d: %w", questionID, err)
	}
	if q.Media == nil {
		return nil
	}

	if err := s.files.Delete(path.Base(*q.Media)); err != nil {
		return err
	}
	q.Media = nil
	return tx.Questions().Update(ctx, q)
}

func (s *Service) UpdateMedia(ctx context.Context, questionID int64, up *Upload) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.deleteMedia(ctx, tx, questionID); err != nil {
			return err
		}
		return s.createMedia(ctx, tx, questionID, up)
	})
}

func getProduct(ctx context.Context, tx storage.Tx, id int64) (*domain.Product, error) {
	p, err := tx.Products().Get(ctx, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.NotFound("product %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}
