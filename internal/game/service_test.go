package game_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/event"
	"github.com/victornm/ecoquest/internal/game"
	"github.com/victornm/ecoquest/internal/storage"
	"github.com/victornm/ecoquest/internal/storage/memory"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

const freshDate = "6/14/2024 10:00:00 AM"

type fixture struct {
	store  *memory.Store
	bus    *event.Bus
	svc    *game.Service
	master domain.User

	mu     sync.Mutex
	events []event.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: memory.New(),
		bus:   event.NewBus(),
	}
	f.svc = game.NewService(game.Config{
		Store:    f.store,
		EventBus: f.bus,
		Now:      func() time.Time { return now },
	})

	record := func(_ context.Context, e event.Event) error {
		f.mu.Lock()
		f.events = append(f.events, e)
		f.mu.Unlock()
		return nil
	}
	f.bus.Subscribe(domain.EventNameGameStateUpdated, record)
	f.bus.Subscribe(domain.EventNameGameDeleted, record)

	f.master = domain.User{Login: "master", Role: domain.RoleMaster, Status: domain.StatusActive}
	f.tx(t, func(ctx context.Context, tx storage.Tx) error {
		return tx.Users().Create(ctx, &f.master)
	})
	return f
}

func (f *fixture) tx(t *testing.T, fn func(ctx context.Context, tx storage.Tx) error) {
	t.Helper()
	require.NoError(t, f.store.InTx(context.Background(), fn))
}

func (f *fixture) addGame(t *testing.T, g domain.Game) {
	t.Helper()
	if g.UserID == 0 {
		g.UserID = f.master.UserID
	}
	if g.Date == "" {
		g.Date = freshDate
	}
	f.tx(t, func(ctx context.Context, tx storage.Tx) error {
		return tx.Games().Create(ctx, &g)
	})
}

func (f *fixture) state(t *testing.T, id int64) string {
	t.Helper()
	var state string
	f.tx(t, func(ctx context.Context, tx storage.Tx) error {
		g, err := tx.Games().Get(ctx, id)
		if err != nil {
			return err
		}
		require.NotNil(t, g.State)
		state = *g.State
		return nil
	})
	return state
}

func (f *fixture) recorded() []event.Event {
	f.bus.Stop()
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Event(nil), f.events...)
}

func ptr[T any](v T) *T { return &v }

func requireCode(t *testing.T, err error, code errors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, errors.Convert(err).Code, err.Error())
}

func TestService_CreateGame(t *testing.T) {
	type (
		inputs struct {
			existing []int64
			req      func(f *fixture) game.CreateGameRequest
		}

		outputs struct {
			game *domain.Game
			err  error
		}
	)

	valid := func(f *fixture) game.CreateGameRequest {
		return game.CreateGameRequest{
			UserID:  f.master.UserID,
			Name:    "Eco night",
			Message: "Welcome",
			Date:    freshDate,
			State:   ptr(`{"Players":[]}`),
		}
	}

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"first game gets id 1": {
			arrange: func() inputs { return inputs{req: valid} },
			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)
				require.EqualValues(t, 1, out.game.GameID)
			},
		},
		"smallest free id is allocated": {
			arrange: func() inputs { return inputs{existing: []int64{1, 2, 4}, req: valid} },
			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)
				require.EqualValues(t, 3, out.game.GameID)
			},
		},
		"name is required": {
			arrange: func() inputs {
				return inputs{req: func(f *fixture) game.CreateGameRequest {
					r := valid(f)
					r.Name = ""
					return r
				}}
			},
			assert: func(t *testing.T, out outputs) { requireCode(t, out.err, errors.CodeInvalidArgument) },
		},
		"date must parse": {
			arrange: func() inputs {
				return inputs{req: func(f *fixture) game.CreateGameRequest {
					r := valid(f)
					r.Date = "next friday"
					return r
				}}
			},
			assert: func(t *testing.T, out outputs) { requireCode(t, out.err, errors.CodeInvalidArgument) },
		},
		"state must be json": {
			arrange: func() inputs {
				return inputs{req: func(f *fixture) game.CreateGameRequest {
					r := valid(f)
					r.State = ptr(`{"Players":`)
					return r
				}}
			},
			assert: func(t *testing.T, out outputs) { requireCode(t, out.err, errors.CodeInvalidArgument) },
		},
		"owner must exist": {
			arrange: func() inputs {
				return inputs{req: func(f *fixture) game.CreateGameRequest {
					r := valid(f)
					r.UserID = 999
					return r
				}}
			},
			assert: func(t *testing.T, out outputs) { requireCode(t, out.err, errors.CodeNotFound) },
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			in := tt.arrange()
			for _, id := range in.existing {
				f.addGame(t, domain.Game{GameID: id, Name: "g", Message: "m"})
			}

			g, err := f.svc.CreateGame(context.Background(), in.req(f))
			tt.assert(t, outputs{game: g, err: err})
		})
	}
}

func TestService_CreateGame_InactiveOwner(t *testing.T) {
	f := newFixture(t)
	inactive := domain.User{Login: "sleepy", Role: domain.RoleMaster, Status: domain.StatusInactive}
	f.tx(t, func(ctx context.Context, tx storage.Tx) error { return tx.Users().Create(ctx, &inactive) })

	_, err := f.svc.CreateGame(context.Background(), game.CreateGameRequest{
		UserID: inactive.UserID, Name: "n", Message: "m", Date: freshDate,
	})
	requireCode(t, err, errors.CodeInvalidArgument)
}

func TestService_CreateGame_PoolExhausted(t *testing.T) {
	f := newFixture(t)
	f.tx(t, func(ctx context.Context, tx storage.Tx) error {
		for id := int64(game.MinGameID); id <= game.MaxGameID; id++ {
			if err := tx.Games().Create(ctx, &domain.Game{GameID: id, UserID: f.master.UserID, Date: freshDate}); err != nil {
				return err
			}
		}
		return nil
	})

	_, err := f.svc.CreateGame(context.Background(), game.CreateGameRequest{
		UserID: f.master.UserID, Name: "n", Message: "m", Date: freshDate,
	})
	requireCode(t, err, errors.CodeResourceExhausted)
	require.Equal(t, "PoolExhausted", errors.Convert(err).Kind())
}

func TestService_Sweep(t *testing.T) {
	f := newFixture(t)
	f.addGame(t, domain.Game{GameID: 1, Date: "6/7/2024 12:00:00 PM"}) // 8 days old
	f.addGame(t, domain.Game{GameID: 2, Date: "6/9/2024 12:00:00 PM"}) // 6 days old
	f.addGame(t, domain.Game{GameID: 3, Date: "6/8/2024 12:00:00 PM"}) // exactly 7 days old
	f.addGame(t, domain.Game{GameID: 4, Date: "garbage"})

	gs, err := f.svc.ListGames(context.Background())
	require.NoError(t, err)

	var ids []int64
	for _, g := range gs {
		ids = append(ids, g.GameID)
	}
	require.Equal(t, []int64{2, 4}, ids)

	assert.ElementsMatch(t, []event.Event{
		domain.EventGameDeleted{GameID: 1, Expired: true},
		domain.EventGameDeleted{GameID: 3, Expired: true},
	}, f.recorded())
}

func TestService_GetGame(t *testing.T) {
	f := newFixture(t)

	var q domain.Question
	f.tx(t, func(ctx context.Context, tx storage.Tx) error {
		p := domain.Product{Name: "Water", Colour: "blue"}
		if err := tx.Products().Create(ctx, &p); err != nil {
			return err
		}
		q = domain.Question{ProductID: p.ProductID, Answers: ptr(`{"AllAnswers":["a"],"CorrectAnswers":["a"]}`)}
		return tx.Questions().Create(ctx, &q)
	})
	f.addGame(t, domain.Game{GameID: 1, Name: "g", CurrentQuestionID: ptr(q.QuestionID)})
	f.addGame(t, domain.Game{GameID: 2, Name: "h", CurrentQuestionID: ptr(int64(404))})

	v, err := f.svc.GetGame(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, q.Answers, v.CurrentQuestionAnswer)
	require.Equal(t, ptr(q.QuestionID), v.CurrentQuestionID)

	v, err = f.svc.GetGame(context.Background(), 2)
	require.NoError(t, err)
	require.Nil(t, v.CurrentQuestionAnswer)

	_, err = f.svc.GetGame(context.Background(), 3)
	requireCode(t, err, errors.CodeNotFound)

	gs, err := f.svc.ListGames(context.Background())
	require.NoError(t, err)
	for _, g := range gs {
		require.Nil(t, g.CurrentQuestionID, "listings never expose the current question")
	}

	b, err := json.Marshal(gs[0])
	require.NoError(t, err)
	require.NotContains(t, string(b), "currentQuestionId")
}

func TestService_ListGamesByOwner(t *testing.T) {
	f := newFixture(t)
	other := domain.User{Login: "other", Role: domain.RoleMaster, Status: domain.StatusActive}
	admin := domain.User{Login: "admin", Role: domain.RoleAdmin, Status: domain.StatusActive}
	f.tx(t, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Users().Create(ctx, &other); err != nil {
			return err
		}
		return tx.Users().Create(ctx, &admin)
	})
	f.addGame(t, domain.Game{GameID: 1})
	f.addGame(t, domain.Game{GameID: 2, UserID: other.UserID})
	f.addGame(t, domain.Game{GameID: 3})

	gs, err := f.svc.ListGamesByOwner(context.Background(), f.master.UserID)
	require.NoError(t, err)
	require.Len(t, gs, 2)
	require.EqualValues(t, 1, gs[0].GameID)
	require.EqualValues(t, 3, gs[1].GameID)

	_, err = f.svc.ListGamesByOwner(context.Background(), admin.UserID)
	requireCode(t, err, errors.CodeInvalidArgument)

	_, err = f.svc.ListGamesByOwner(context.Background(), 12345)
	requireCode(t, err, errors.CodeNotFound)
}

func TestService_DeleteGame(t *testing.T) {
	f := newFixture(t)
	f.addGame(t, domain.Game{GameID: 5})

	require.NoError(t, f.svc.DeleteGame(context.Background(), 5))
	require.NoError(t, f.svc.DeleteGame(context.Background(), 5), "deleting twice is not an error")

	_, err := f.svc.GetGame(context.Background(), 5)
	requireCode(t, err, errors.CodeNotFound)

	require.Equal(t, []event.Event{domain.EventGameDeleted{GameID: 5}}, f.recorded())
}

func TestService_UpdateGame(t *testing.T) {
	f := newFixture(t)
	f.addGame(t, domain.Game{GameID: 1, Name: "old", Message: "m"})

	err := f.svc.UpdateGame(context.Background(), game.UpdateGameRequest{
		GameID: 1, UserID: f.master.UserID, Name: "new", Message: "hi", Date: freshDate, State: ptr(`{"Players":[]}`),
	})
	require.NoError(t, err)

	v, err := f.svc.GetGame(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "new", v.Name)
	require.Equal(t, "hi", v.Message)

	err = f.svc.UpdateGame(context.Background(), game.UpdateGameRequest{
		GameID: 2, UserID: f.master.UserID, Name: "new", Message: "hi", Date: freshDate,
	})
	requireCode(t, err, errors.CodeNotFound)
}

func TestService_UpdateStateAndQuestion(t *testing.T) {
	f := newFixture(t)
	f.addGame(t, domain.Game{GameID: 1, Name: "g", Message: "m", State: ptr(`{"Players":[]}`)})

	err := f.svc.UpdateStateAndQuestion(context.Background(), game.UpdateStateRequest{
		GameID: 1, State: ptr(`{"Players":[],"Round":2}`), CurrentQuestionID: ptr(int64(7)),
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"Players":[],"Round":2}`, f.state(t, 1))

	v, err := f.svc.GetGame(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "g", v.Name, "other fields are untouched")
	require.Equal(t, ptr(int64(7)), v.CurrentQuestionID)

	err = f.svc.UpdateStateAndQuestion(context.Background(), game.UpdateStateRequest{GameID: 9})
	requireCode(t, err, errors.CodeNotFound)

	err = f.svc.UpdateStateAndQuestion(context.Background(), game.UpdateStateRequest{GameID: 1, State: ptr("{")})
	requireCode(t, err, errors.CodeInvalidArgument)
}

// vanishingStore loses every game row between the read and the write of a
// transaction, as a sweep running in between would.
type vanishingStore struct{ storage.Store }

func (s vanishingStore) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, vanishingTx{tx})
	})
}

type vanishingTx struct{ storage.Tx }

func (t vanishingTx) Games() storage.GameRepository { return vanishingGames{t.Tx.Games()} }

type vanishingGames struct{ storage.GameRepository }

func (vanishingGames) Update(context.Context, *domain.Game) error { return storage.ErrNotFound }

func (vanishingGames) UpdateState(context.Context, int64, *string, *int64) error {
	return storage.ErrNotFound
}

func TestService_WritesToVanishedGame(t *testing.T) {
	f := newFixture(t)
	f.addGame(t, domain.Game{GameID: 1, Name: "g", Message: "m", State: ptr(`{"Players":[]}`)})

	svc := game.NewService(game.Config{
		Store:    vanishingStore{f.store},
		EventBus: f.bus,
		Now:      func() time.Time { return now },
	})
	ctx := context.Background()

	tests := map[string]func() error{
		"update game": func() error {
			return svc.UpdateGame(ctx, game.UpdateGameRequest{
				GameID: 1, UserID: f.master.UserID, Name: "g", Message: "m", Date: freshDate,
			})
		},
		"update state": func() error {
			return svc.UpdateStateAndQuestion(ctx, game.UpdateStateRequest{GameID: 1, State: ptr(`{"Players":[]}`)})
		},
		"add player": func() error {
			_, err := svc.AddPlayer(ctx, game.AddPlayerRequest{GameID: 1, Login: "alice"})
			return err
		},
	}

	for name, call := range tests {
		t.Run(name, func(t *testing.T) {
			requireCode(t, call(), errors.CodeNotFound)
		})
	}
}
