package domain

import "strconv"

const (
	EventNameGameStateUpdated = "game.state.updated"
	EventNameGameDeleted      = "game.deleted"
)

// gameKey orders the events of one game.
func gameKey(id int64) string {
	return "game:" + strconv.FormatInt(id, 10)
}

type EventGameStateUpdated struct {
	GameID            int64
	State             *string
	CurrentQuestionID *int64
}

func (EventGameStateUpdated) Name() string { return EventNameGameStateUpdated }

func (e EventGameStateUpdated) Key() string { return gameKey(e.GameID) }

type EventGameDeleted struct {
	GameID int64
	// Expired is set when the game was removed by the expiry sweep.
	Expired bool
}

func (EventGameDeleted) Name() string { return EventNameGameDeleted }

func (e EventGameDeleted) Key() string { return gameKey(e.GameID) }
