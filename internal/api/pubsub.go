package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/victornm/ecoquest/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	GameState struct {
		GameID            int64   `json:"gameId"`
		State             *string `json:"state"`
		CurrentQuestionID *int64  `json:"currentQuestionId"`
	}

	GameDeleted struct {
		GameID  int64 `json:"gameId"`
		Expired bool  `json:"expired"`
	}
)

func (a *API) PublishGameStateUpdated(ctx context.Context, e domain.EventGameStateUpdated) error {
	return a.publishNotification(ctx, e.GameID, e.Name(), GameState{
		GameID:            e.GameID,
		State:             e.State,
		CurrentQuestionID: e.CurrentQuestionID,
	})
}

func (a *API) PublishGameDeleted(ctx context.Context, e domain.EventGameDeleted) error {
	return a.publishNotification(ctx, e.GameID, e.Name(), GameDeleted{
		GameID:  e.GameID,
		Expired: e.Expired,
	})
}

func (a *API) publishNotification(ctx context.Context, gameID int64, event string, data any) error {
	b, err := encodeNotification(event, data)
	if err != nil {
		return err
	}

	return a.redis.Publish(ctx, a.gameChannel(gameID), b).Err()
}

func (a *API) gameChannel(gameID int64) string {
	return fmt.Sprintf("%s:game:%d", a.prefix, gameID)
}

func encodeNotification(event string, data any) ([]byte, error) {
	b, err := json.Marshal(Notification{
		Event: event,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}
	return b, nil
}
