// Package gameboard manages reusable board templates and converts them to and
// from their transferable shape.
package gameboard

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/storage"
)

type Config struct {
	Store storage.Store
}

type Service struct {
	store storage.Store
}

func NewService(c Config) *Service {
	return &Service{store: c.Store}
}

// Create stores a new board built from d and returns its id. d.GameBoardID is
// ignored.
func (s *Service) Create(ctx context.Context, d DTO) (int64, error) {
	var id int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) (err error) {
		id, err = create(ctx, tx, d)
		return err
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "gameboard: created", "game_board_id", id, "user_id", d.UserID)
	return id, nil
}

func create(ctx context.Context, tx storage.Tx, d DTO) (int64, error) {
	c, err := dtoCatalog(ctx, tx, d)
	if err != nil {
		return 0, err
	}

	b := Unflatten(d, c)
	if err := Validate(ctx, tx, b); err != nil {
		return 0, err
	}

	b.GameBoardID = 0
	if err := tx.GameBoards().Create(ctx, &b); err != nil {
		return 0, fmt.Errorf("create game board: %w", err)
	}
	return b.GameBoardID, nil
}

// Update replaces the board and all of its links with d. A board that does not
// exist is created instead.
func (s *Service) Update(ctx context.Context, d DTO) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		c, err := dtoCatalog(ctx, tx, d)
		if err != nil {
			return err
		}

		b := Unflatten(d, c)
		if err := Validate(ctx, tx, b); err != nil {
			return err
		}

		_, err = tx.GameBoards().Get(ctx, d.GameBoardID)
		if stderrors.Is(err, storage.ErrNotFound) {
			_, err = create(ctx, tx, d)
			return err
		}
		if err != nil {
			return fmt.Errorf("get game board %d: %w", d.GameBoardID, err)
		}

		return tx.GameBoards().Replace(ctx, &b)
	})
}

// Delete removes a board. Deleting an absent board succeeds.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.GameBoards().Delete(ctx, id)
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*DTO, error) {
	var d DTO
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		b, err := tx.GameBoards().Get(ctx, id)
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("game board %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("get game board %d: %w", id, err)
		}

		c, err := boardCatalog(ctx, tx, *b)
		if err != nil {
			return err
		}
		d = Flatten(*b, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &d, nil
}

// List returns every board ordered by id.
func (s *Service) List(ctx context.Context) ([]DTO, error) {
	var ds []DTO
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		bs, err := tx.GameBoards().List(ctx)
		if err != nil {
			return fmt.Errorf("list game boards: %w", err)
		}
		ds, err = flattenAll(ctx, tx, bs)
		return err
	})
	return ds, err
}

// ListByOwner returns the boards of an active master ordered by id.
func (s *Service) ListByOwner(ctx context.Context, userID int64) ([]DTO, error) {
	var ds []DTO
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := activeMaster(ctx, tx, userID); err != nil {
			return err
		}

		bs, err := tx.GameBoards().ListByOwner(ctx, userID)
		if err != nil {
			return fmt.Errorf("list game boards of user %d: %w", userID, err)
		}
		ds, err = flattenAll(ctx, tx, bs)
		return err
	})
	return ds, err
}

func flattenAll(ctx context.Context, tx storage.Tx, bs []domain.GameBoard) ([]DTO, error) {
	c, err := boardCatalog(ctx, tx, bs...)
	if err != nil {
		return nil, err
	}

	ds := make([]DTO, 0, len(bs))
	for _, b := range bs {
		ds = append(ds, Flatten(b, c))
	}
	return ds, nil
}

type ShareRequest struct {
	FromUserID  int64
	GameBoardID int64
	ToUserID    int64
}

// Share copies a board of one active master to another and returns the id of
// the copy.
func (s *Service) Share(ctx context.Context, req ShareRequest) (int64, error) {
	var id int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := activeMaster(ctx, tx, req.FromUserID); err != nil {
			return err
		}

		src, err := tx.GameBoards().Get(ctx, req.GameBoardID)
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("game board %d not found", req.GameBoardID)
		}
		if err != nil {
			return fmt.Errorf("get game board %d: %w", req.GameBoardID, err)
		}
		if src.UserID != req.FromUserID {
			return errors.InvalidInput("game board %d does not belong to user %d", req.GameBoardID, req.FromUserID)
		}

		if _, err := activeMaster(ctx, tx, req.ToUserID); err != nil {
			return err
		}
		if req.FromUserID == req.ToUserID {
			return errors.InvalidInput("a game board cannot be shared with its owner")
		}

		cp := domain.GameBoard{
			Name:        src.Name,
			NumFields:   src.NumFields,
			UserID:      req.ToUserID,
			Products:    make([]domain.GameBoardProduct, 0, len(src.Products)),
			QuestionIDs: append([]int64{}, src.QuestionIDs...),
		}
		for _, p := range src.Products {
			cp.Products = append(cp.Products, domain.GameBoardProduct{
				ProductID:      p.ProductID,
				NumOfRepeating: p.NumOfRepeating,
			})
		}

		if err := tx.GameBoards().Create(ctx, &cp); err != nil {
			return fmt.Errorf("create game board: %w", err)
		}
		id = cp.GameBoardID
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "gameboard: shared",
		"game_board_id", req.GameBoardID,
		"copy_id", id,
		"from_user_id", req.FromUserID,
		"to_user_id", req.ToUserID,
	)
	return id, nil
}

func activeMaster(ctx context.Context, tx storage.Tx, userID int64) (*domain.User, error) {
	u, err := tx.Users().Get(ctx, userID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.NotFound("user %d not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	if !u.IsActiveMaster() {
		return nil, errors.InvalidInput("user %d is not an active master", userID)
	}
	return u, nil
}
