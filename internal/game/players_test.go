package game_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/event"
	"github.com/victornm/ecoquest/internal/game"
)

func TestService_AddPlayer(t *testing.T) {
	tests := map[string]struct {
		state    *string
		wantID   int64
		wantCode errors.Code
		assert   func(t *testing.T, state string)
	}{
		"first player of an empty list": {
			state:  ptr(`{"Players":[]}`),
			wantID: 1,
			assert: func(t *testing.T, state string) {
				require.JSONEq(t, `{"Players":[{"PlayerId":1,"Login":"alice","List":[]}]}`, state)
			},
		},
		"smallest unused id is reused": {
			state:  ptr(`{"Players":[{"PlayerId":1,"Login":"a","List":[]},{"PlayerId":3,"Login":"c","List":[]}]}`),
			wantID: 2,
		},
		"other keys survive": {
			state:  ptr(`{"Round":4,"Players":[],"Teams":{"red":[1]}}`),
			wantID: 1,
			assert: func(t *testing.T, state string) {
				require.JSONEq(t, `{"Round":4,"Players":[{"PlayerId":1,"Login":"alice","List":[]}],"Teams":{"red":[1]}}`, state)
			},
		},
		"null state": {
			state:    nil,
			wantCode: errors.CodeFailedPrecondition,
		},
		"null players": {
			state:    ptr(`{"Players":null}`),
			wantCode: errors.CodeFailedPrecondition,
		},
		"missing players": {
			state:    ptr(`{"Round":1}`),
			wantCode: errors.CodeFailedPrecondition,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.addGame(t, domain.Game{GameID: 1, State: tt.state})

			id, err := f.svc.AddPlayer(context.Background(), game.AddPlayerRequest{
				GameID: 1,
				Login:  "alice",
				List:   json.RawMessage(`[]`),
			})
			if tt.wantCode != 0 {
				requireCode(t, err, tt.wantCode)
				require.Equal(t, "InvalidState", errors.Convert(err).Kind())
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.wantID, id)
			if tt.assert != nil {
				tt.assert(t, f.state(t, 1))
			}
		})
	}
}

func TestService_AddPlayer_UnknownGame(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddPlayer(context.Background(), game.AddPlayerRequest{GameID: 42, Login: "x"})
	requireCode(t, err, errors.CodeNotFound)
}

func TestService_RemovePlayer(t *testing.T) {
	f := newFixture(t)
	f.addGame(t, domain.Game{GameID: 1, State: ptr(`{"Players":[{"PlayerId":1,"Login":"a","List":[]},{"PlayerId":2,"Login":"b","List":[]}]}`)})

	require.NoError(t, f.svc.RemovePlayer(context.Background(), 1, 1))
	require.JSONEq(t, `{"Players":[{"PlayerId":2,"Login":"b","List":[]}]}`, f.state(t, 1))

	before := f.state(t, 1)
	require.NoError(t, f.svc.RemovePlayer(context.Background(), 1, 9), "removing an absent player succeeds")
	require.Equal(t, before, f.state(t, 1))

	events := f.recorded()
	require.Len(t, events, 1, "only the effective removal is published")
	require.Equal(t, int64(1), events[0].(domain.EventGameStateUpdated).GameID)
}

func TestService_UpdatePlayer(t *testing.T) {
	f := newFixture(t)
	f.addGame(t, domain.Game{GameID: 1, State: ptr(`{"Players":[{"PlayerId":5,"Login":"old","List":[1],"Team":"red"}],"Round":2}`)})

	err := f.svc.UpdatePlayer(context.Background(), game.UpdatePlayerRequest{
		GameID:   1,
		PlayerID: 5,
		Login:    "новый",
		List:     json.RawMessage(`[2,3]`),
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"Players":[{"PlayerId":5,"Login":"новый","List":[2,3],"Team":"red"}],"Round":2}`, f.state(t, 1))

	err = f.svc.UpdatePlayer(context.Background(), game.UpdatePlayerRequest{GameID: 1, PlayerID: 6, Login: "x"})
	requireCode(t, err, errors.CodeNotFound)

	err = f.svc.UpdatePlayer(context.Background(), game.UpdatePlayerRequest{GameID: 2, PlayerID: 5, Login: "x"})
	requireCode(t, err, errors.CodeNotFound)
}

func TestService_PlayerOps_SweepFirst(t *testing.T) {
	f := newFixture(t)
	f.addGame(t, domain.Game{GameID: 1, Date: "1/1/2024 12:00:00 PM", State: ptr(`{"Players":[]}`)})

	_, err := f.svc.AddPlayer(context.Background(), game.AddPlayerRequest{GameID: 1, Login: "late"})
	requireCode(t, err, errors.CodeNotFound)

	require.Equal(t, []event.Event{domain.EventGameDeleted{GameID: 1, Expired: true}}, f.recorded())
}
