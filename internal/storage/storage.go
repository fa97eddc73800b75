// Package storage declares the persistence contract of the services. A Store
// runs a function inside one transaction; repositories obtained from the Tx see
// and change only that transaction's view, and nothing is visible to other
// transactions until the function returns nil.
package storage

import (
	"context"
	stderrors "errors"

	"github.com/victornm/ecoquest/internal/domain"
)

// ErrNotFound is returned by single-row lookups when the row does not exist.
var ErrNotFound = stderrors.New("storage: not found")

type Store interface {
	// InTx runs fn in a transaction. The transaction commits when fn returns
	// nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Users() UserRepository
	Games() GameRepository
	Products() ProductRepository
	Questions() QuestionRepository
	GameBoards() GameBoardRepository
	Statistics() StatisticRepository
}

type UserRepository interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	// LoginTaken reports whether a user other than exceptID uses login.
	LoginTaken(ctx context.Context, login string, exceptID int64) (bool, error)
	ListByRoleStatus(ctx context.Context, role, status string) ([]domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	// Delete removes the user with its games and game boards. Deleting an
	// absent user is not an error.
	Delete(ctx context.Context, id int64) error
}

type GameRepository interface {
	Get(ctx context.Context, id int64) (*domain.Game, error)
	List(ctx context.Context) ([]domain.Game, error)
	ListByOwner(ctx context.Context, userID int64) ([]domain.Game, error)
	IDs(ctx context.Context) ([]int64, error)
	// Create inserts g under g.GameID, which the caller allocates.
	Create(ctx context.Context, g *domain.Game) error
	Update(ctx context.Context, g *domain.Game) error
	UpdateState(ctx context.Context, id int64, state *string, currentQuestionID *int64) error
	Delete(ctx context.Context, ids ...int64) error
}

// ProductRepository stores products without their questions, see
// QuestionRepository.
type ProductRepository interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	GetMany(ctx context.Context, ids []int64) ([]domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	ListByRound(ctx context.Context, round int) ([]domain.Product, error)
	// NameTaken reports whether a product other than exceptID uses name.
	NameTaken(ctx context.Context, name string, exceptID int64) (bool, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	// Delete removes the product with its questions and board links.
	Delete(ctx context.Context, id int64) error
}

type QuestionRepository interface {
	Get(ctx context.Context, id int64) (*domain.Question, error)
	// GetMany returns the questions of ids that exist, ordered by id.
	GetMany(ctx context.Context, ids []int64) ([]domain.Question, error)
	// ListByProducts returns the questions of the given products ordered by id.
	ListByProducts(ctx context.Context, productIDs []int64) ([]domain.Question, error)
	Create(ctx context.Context, q *domain.Question) error
	Update(ctx context.Context, q *domain.Question) error
	Delete(ctx context.Context, id int64) error
	DeleteByProduct(ctx context.Context, productID int64) error
}

// GameBoardRepository stores a board together with its product links and
// active question links.
type GameBoardRepository interface {
	Get(ctx context.Context, id int64) (*domain.GameBoard, error)
	List(ctx context.Context) ([]domain.GameBoard, error)
	ListByOwner(ctx context.Context, userID int64) ([]domain.GameBoard, error)
	Create(ctx context.Context, b *domain.GameBoard) error
	// Replace overwrites the board row and all of its links.
	Replace(ctx context.Context, b *domain.GameBoard) error
	Delete(ctx context.Context, id int64) error
}

type StatisticRepository interface {
	Create(ctx context.Context, s *domain.Statistic) error
	List(ctx context.Context) ([]domain.Statistic, error)
}
