package game

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/victornm/ecoquest/internal/datetime"
	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/event"
	"github.com/victornm/ecoquest/internal/storage"
)

const (
	MinGameID = 1
	MaxGameID = 99999

	DefaultExpiry = 7 * 24 * time.Hour
)

type Config struct {
	Store    storage.Store
	EventBus *event.Bus
	// Locker serializes state mutations per game. Nil disables locking.
	Locker Locker
	// Expiry is how long after its date a game is swept. Defaults to DefaultExpiry.
	Expiry time.Duration
	Now    func() time.Time
}

type Service struct {
	store  storage.Store
	eb     *event.Bus
	locker Locker
	expiry time.Duration
	now    func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store:  c.Store,
		eb:     c.EventBus,
		locker: c.Locker,
		expiry: c.Expiry,
		now:    c.Now,
	}
	if s.expiry <= 0 {
		s.expiry = DefaultExpiry
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// View is a single game as returned to its reader, with the answers of the
// current question resolved.
type View struct {
	domain.Game
	CurrentQuestionAnswer *string `json:"currentQuestionAnswer"`
}

type CreateGameRequest struct {
	UserID            int64
	Name              string
	Message           string
	Date              string
	State             *string
	CurrentQuestionID *int64
}

// CreateGame stores a new game under the smallest free id of the pool.
func (s *Service) CreateGame(ctx context.Context, req CreateGameRequest) (*domain.Game, error) {
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}

	g := &domain.Game{
		UserID:            req.UserID,
		Name:              req.Name,
		Message:           req.Message,
		Date:              req.Date,
		State:             req.State,
		CurrentQuestionID: req.CurrentQuestionID,
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := validateGame(ctx, tx, g); err != nil {
			return err
		}

		ids, err := tx.Games().IDs(ctx)
		if err != nil {
			return fmt.Errorf("list game ids: %w", err)
		}

		id, ok := allocateID(ids)
		if !ok {
			return errors.New(errors.CodeResourceExhausted, errors.WithMessagef("game pool is exhausted"))
		}
		g.GameID = id

		return tx.Games().Create(ctx, g)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "game: created", "game_id", g.GameID, "user_id", g.UserID)
	return g, nil
}

// allocateID returns the smallest id of [MinGameID, MaxGameID] missing from ids.
func allocateID(ids []int64) (int64, bool) {
	used := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		used[id] = struct{}{}
	}
	for id := int64(MinGameID); id <= MaxGameID; id++ {
		if _, ok := used[id]; !ok {
			return id, true
		}
	}
	return 0, false
}

func (s *Service) DeleteGame(ctx context.Context, id int64) error {
	if err := s.Sweep(ctx); err != nil {
		return err
	}

	var existed bool
	err := s.withLock(ctx, id, func() error {
		return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			_, err := tx.Games().Get(ctx, id)
			if stderrors.Is(err, storage.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			existed = true
			return tx.Games().Delete(ctx, id)
		})
	})
	if err != nil {
		return err
	}

	if existed {
		s.eb.Publish(ctx, domain.EventGameDeleted{GameID: id})
	}
	return nil
}

func (s *Service) GetGame(ctx context.Context, id int64) (*View, error) {
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}

	var v View
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		g, err := getGame(ctx, tx, id)
		if err != nil {
			return err
		}
		v.Game = *g

		if g.CurrentQuestionID == nil {
			return nil
		}
		q, err := tx.Questions().Get(ctx, *g.CurrentQuestionID)
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get current question: %w", err)
		}
		v.CurrentQuestionAnswer = q.Answers
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &v, nil
}

// ListGames returns every game ordered by id. The current question is not
// exposed in listings.
func (s *Service) ListGames(ctx context.Context) ([]domain.Game, error) {
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}

	var gs []domain.Game
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) (err error) {
		gs, err = tx.Games().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return stripCurrentQuestion(gs), nil
}

func (s *Service) ListGamesByOwner(ctx context.Context, userID int64) ([]domain.Game, error) {
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}

	var gs []domain.Game
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := activeMaster(ctx, tx, userID); err != nil {
			return err
		}

		var err error
		gs, err = tx.Games().ListByOwner(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return stripCurrentQuestion(gs), nil
}

func stripCurrentQuestion(gs []domain.Game) []domain.Game {
	if gs == nil {
		return []domain.Game{}
	}
	for i := range gs {
		gs[i].CurrentQuestionID = nil
	}
	return gs
}

type UpdateGameRequest struct {
	GameID            int64
	UserID            int64
	Name              string
	Message           string
	Date              string
	State             *string
	CurrentQuestionID *int64
}

// UpdateGame replaces every field of an existing game.
func (s *Service) UpdateGame(ctx context.Context, req UpdateGameRequest) error {
	if err := s.Sweep(ctx); err != nil {
		return err
	}

	g := &domain.Game{
		GameID:            req.GameID,
		UserID:            req.UserID,
		Name:              req.Name,
		Message:           req.Message,
		Date:              req.Date,
		State:             req.State,
		CurrentQuestionID: req.CurrentQuestionID,
	}

	err := s.withLock(ctx, g.GameID, func() error {
		return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			if err := validateGame(ctx, tx, g); err != nil {
				return err
			}
			if _, err := getGame(ctx, tx, g.GameID); err != nil {
				return err
			}
			return gameWritten(g.GameID, tx.Games().Update(ctx, g))
		})
	})
	s.observe("update", err)
	if err != nil {
		return err
	}

	s.publishState(ctx, g)
	return nil
}

type UpdateStateRequest struct {
	GameID            int64
	State             *string
	CurrentQuestionID *int64
}

// UpdateStateAndQuestion replaces only the state document and the current
// question of a game.
func (s *Service) UpdateStateAndQuestion(ctx context.Context, req UpdateStateRequest) error {
	if err := s.Sweep(ctx); err != nil {
		return err
	}

	if err := validateState(req.State); err != nil {
		return err
	}

	var g *domain.Game
	err := s.withLock(ctx, req.GameID, func() error {
		return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) (err error) {
			g, err = getGame(ctx, tx, req.GameID)
			if err != nil {
				return err
			}
			g.State = req.State
			g.CurrentQuestionID = req.CurrentQuestionID
			return gameWritten(g.GameID, tx.Games().UpdateState(ctx, g.GameID, g.State, g.CurrentQuestionID))
		})
	})
	s.observe("update_state", err)
	if err != nil {
		return err
	}

	s.publishState(ctx, g)
	return nil
}

func getGame(ctx context.Context, tx storage.Tx, id int64) (*domain.Game, error) {
	g, err := tx.Games().Get(ctx, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.NotFound("game %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get game %d: %w", id, err)
	}
	return g, nil
}

// gameWritten reports a game deleted by a concurrent sweep as NotFound.
func gameWritten(id int64, err error) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound("game %d not found", id)
	}
	return err
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

func validateGame(ctx context.Context, tx storage.Tx, g *domain.Game) error {
	switch {
	case g.Name == "":
		return errors.InvalidInput("game name is required")
	case g.Message == "":
		return errors.InvalidInput("game message is required")
	case g.Date == "":
		return errors.InvalidInput("game date is required")
	}

	if _, err := datetime.ParseDate(g.Date); err != nil {
		return errors.InvalidInput("game date %q has an invalid format", g.Date)
	}

	if err := validateState(g.State); err != nil {
		return err
	}

	_, err := activeMaster(ctx, tx, g.UserID)
	return err
}

func validateState(state *string) error {
	if state != nil && !json.Valid([]byte(*state)) {
		return errors.InvalidInput("game state is not valid JSON")
	}
	return nil
}

func (s *Service) withLock(ctx context.Context, gameID int64, fn func() error) error {
	if s.locker == nil {
		return fn()
	}

	unlock, err := s.locker.Lock(ctx, "game:"+strconv.FormatInt(gameID, 10))
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "game: release lock failed", "game_id", gameID, "error", err)
		}
	}()

	return fn()
}

func (s *Service) publishState(ctx context.Context, g *domain.Game) {
	s.eb.Publish(ctx, domain.EventGameStateUpdated{
		GameID:            g.GameID,
		State:             g.State,
		CurrentQuestionID: g.CurrentQuestionID,
	})
}
