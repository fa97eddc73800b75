package game

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/gamestate"
	"github.com/victornm/ecoquest/internal/storage"
	"github.com/victornm/ecoquest/internal/telemetry"
)

type AddPlayerRequest struct {
	GameID int64
	Login  string
	List   json.RawMessage
}

// AddPlayer appends a player to the state of a game under the smallest unused
// player id and returns that id.
func (s *Service) AddPlayer(ctx context.Context, req AddPlayerRequest) (int64, error) {
	var id int64
	err := s.mutatePlayers(ctx, "add_player", req.GameID, func(p *gamestate.Players) (bool, error) {
		var err error
		id, err = p.Add(req.Login, req.List)
		return true, err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RemovePlayer deletes a player from the state of a game. Removing a player
// that is not in the list succeeds without changing the game.
func (s *Service) RemovePlayer(ctx context.Context, gameID, playerID int64) error {
	return s.mutatePlayers(ctx, "remove_player", gameID, func(p *gamestate.Players) (bool, error) {
		return p.Remove(playerID), nil
	})
}

type UpdatePlayerRequest struct {
	GameID   int64
	PlayerID int64
	Login    string
	List     json.RawMessage
}

// UpdatePlayer replaces Login and List of one player, leaving its id and every
// other part of the document untouched.
func (s *Service) UpdatePlayer(ctx context.Context, req UpdatePlayerRequest) error {
	return s.mutatePlayers(ctx, "update_player", req.GameID, func(p *gamestate.Players) (bool, error) {
		ok, err := p.Update(req.PlayerID, req.Login, req.List)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, errors.NotFound("player %d not found in game %d", req.PlayerID, req.GameID)
		}
		return true, nil
	})
}

// mutatePlayers runs fn on the player list of a game and persists the
// rewritten document when fn reports a change. The read, the rewrite and the
// write happen in one transaction under the game's lock.
func (s *Service) mutatePlayers(ctx context.Context, op string, gameID int64, fn func(*gamestate.Players) (bool, error)) (err error) {
	defer func() { s.observe(op, err) }()

	if err := s.Sweep(ctx); err != nil {
		return err
	}

	var (
		g       *domain.Game
		changed bool
	)
	err = s.withLock(ctx, gameID, func() error {
		return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) (err error) {
			g, err = getGame(ctx, tx, gameID)
			if err != nil {
				return err
			}

			doc, players, err := parsePlayers(g.State)
			if err != nil {
				return err
			}

			changed, err = fn(players)
			if err != nil || !changed {
				return err
			}

			if err := doc.SetPlayers(players); err != nil {
				return err
			}
			state, err := doc.Encode()
			if err != nil {
				return err
			}
			g.State = &state

			return gameWritten(g.GameID, tx.Games().UpdateState(ctx, g.GameID, g.State, g.CurrentQuestionID))
		})
	})
	if err != nil {
		return err
	}

	if changed {
		s.publishState(ctx, g)
	}
	return nil
}

func parsePlayers(state *string) (*gamestate.Document, *gamestate.Players, error) {
	doc, err := gamestate.Parse(state)
	if err != nil {
		return nil, nil, stateError(err)
	}
	players, err := doc.Players()
	if err != nil {
		return nil, nil, stateError(err)
	}
	return doc, players, nil
}

func stateError(err error) error {
	switch {
	case stderrors.Is(err, gamestate.ErrNoState):
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("State is null"), errors.WithCause(err))
	case stderrors.Is(err, gamestate.ErrNoPlayers):
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("Players is null"), errors.WithCause(err))
	case stderrors.Is(err, gamestate.ErrMalformedPlayers):
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("Players is malformed"), errors.WithCause(err))
	}
	return fmt.Errorf("parse state: %w", err)
}

func (s *Service) observe(op string, err error) {
	telemetry.GameMutations.WithLabelValues(op, telemetry.Result(err)).Inc()
}
