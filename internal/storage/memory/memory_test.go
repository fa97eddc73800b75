package memory_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/storage"
	"github.com/victornm/ecoquest/internal/storage/memory"
)

func TestStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	boom := stderrors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		require.NoError(t, tx.Users().Create(ctx, &domain.User{Login: "ann"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.Users().GetByLogin(ctx, "ann")
		return err
	})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Cascades(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	var board domain.GameBoard
	var owner domain.User
	var q1, q2 domain.Question
	var p domain.Product

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		owner = domain.User{Login: "m", Role: domain.RoleMaster, Status: domain.StatusActive}
		require.NoError(t, tx.Users().Create(ctx, &owner))

		p = domain.Product{Name: "Water", Colour: "blue"}
		require.NoError(t, tx.Products().Create(ctx, &p))

		q1 = domain.Question{ProductID: p.ProductID}
		q2 = domain.Question{ProductID: p.ProductID}
		require.NoError(t, tx.Questions().Create(ctx, &q1))
		require.NoError(t, tx.Questions().Create(ctx, &q2))

		board = domain.GameBoard{
			Name:        "b",
			UserID:      owner.UserID,
			Products:    []domain.GameBoardProduct{{ProductID: p.ProductID, NumOfRepeating: 2}},
			QuestionIDs: []int64{q1.QuestionID, q2.QuestionID},
		}
		require.NoError(t, tx.GameBoards().Create(ctx, &board))
		return tx.Games().Create(ctx, &domain.Game{GameID: 1, UserID: owner.UserID})
	}))

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		require.NoError(t, tx.Questions().Delete(ctx, q1.QuestionID))

		b, err := tx.GameBoards().Get(ctx, board.GameBoardID)
		require.NoError(t, err)
		require.Equal(t, []int64{q2.QuestionID}, b.QuestionIDs)

		require.NoError(t, tx.Products().Delete(ctx, p.ProductID))
		b, err = tx.GameBoards().Get(ctx, board.GameBoardID)
		require.NoError(t, err)
		require.Empty(t, b.Products)
		require.Empty(t, b.QuestionIDs)

		require.NoError(t, tx.Users().Delete(ctx, owner.UserID))
		_, err = tx.GameBoards().Get(ctx, board.GameBoardID)
		require.ErrorIs(t, err, storage.ErrNotFound)
		_, err = tx.Games().Get(ctx, 1)
		require.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	}))
}

func TestStore_UniqueNames(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		require.NoError(t, tx.Products().Create(ctx, &domain.Product{Name: "Air"}))
		return tx.Products().Create(ctx, &domain.Product{Name: "Air"})
	})
	require.True(t, errors.Is(err, errors.CodeAlreadyExists))
}
