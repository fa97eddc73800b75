//go:build integration_test

package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/ecoquest/internal/api"
	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/user"
)

const (
	addr = "http://localhost:8080"
)

// TestGame runs against a server started with the local config. The admin
// credentials come from AUTH_ADMIN_LOGIN and AUTH_ADMIN_PASSWORD.
func TestGame(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		wg      = new(sync.WaitGroup)
		players = []string{"red", "green", "blue"}
	)

	admin := loginMaster(t, env("AUTH_ADMIN_LOGIN", "admin"), env("AUTH_ADMIN_PASSWORD", "admin"))

	// Register a game master and have the admin activate it
	login := fmt.Sprintf("master-%d", time.Now().UnixNano())
	post(t, "/user/create", "", user.CreateUserRequest{
		LastName:   "Demo",
		FirstName:  "Game",
		Patronymic: "Master",
		Login:      login,
		Password:   "demo",
	}, nil)
	master := loginMaster(t, login, "demo")
	post(t, fmt.Sprintf("/user/toActiveMaster/%d", master.UserID), admin.AuthorizationToken, nil, nil)
	master = loginMaster(t, login, "demo")
	t.Cleanup(func() {
		_ = send(http.MethodDelete, fmt.Sprintf("/user/delete/%d", master.UserID), admin.AuthorizationToken, nil, nil)
	})

	// Create new game
	state := `{"Players":[],"Round":1}`
	post(t, "/game/create", master.AuthorizationToken, api.GameRequest{
		UserID:  master.UserID,
		Name:    "demo",
		Message: "welcome",
		Date:    time.Now().Format("1/2/2006"),
		State:   &state,
	}, nil)

	var games []domain.Game
	get(t, fmt.Sprintf("/game/get/all/%d", master.UserID), master.AuthorizationToken, &games)
	require.NotEmpty(t, games)
	g := games[len(games)-1]

	// Prepare Redis subscriber
	subscribeGame(ctx, t, makeRedis(t), wg, g.GameID)

	// All players join concurrently
	var eg errgroup.Group
	for _, p := range players {
		eg.Go(func() error {
			var s user.PlayerSession
			if err := send(http.MethodPost, "/authentication/login/player", "", api.LoginPlayerRequest{GameID: g.GameID, Login: p}, &s); err != nil {
				return fmt.Errorf("player %q login: %w", p, err)
			}
			if err := send(http.MethodPost, fmt.Sprintf("/game/state/players/create/%d", g.GameID), s.AuthorizationToken, api.PlayerRequest{Login: p}, nil); err != nil {
				return fmt.Errorf("player %q join: %w", p, err)
			}
			t.Logf("Player %q joined game %d", p, g.GameID)
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	var view domain.Game
	get(t, fmt.Sprintf("/game/get/%d", g.GameID), master.AuthorizationToken, &view)
	t.Logf("State after joining:\n%s", deref(view.State))

	for q := int64(1); q <= 3; q++ {
		post(t, "/game/update/stateAndQuestion", master.AuthorizationToken, api.StateRequest{
			GameID:            g.GameID,
			State:             view.State,
			CurrentQuestionID: &q,
		}, nil)
		time.Sleep(500 * time.Millisecond)
	}

	require.NoError(t, send(http.MethodDelete, fmt.Sprintf("/game/delete/%d", g.GameID), master.AuthorizationToken, nil, nil))

	wg.Wait()
}

func subscribeGame(ctx context.Context, t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, id int64) {
	sub := rc.Subscribe(ctx, fmt.Sprintf("%s:game:%d", env("REDIS_PREFIX", "ecoquest"), id))
	t.Cleanup(func() { sub.Close() })

	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				t.Log(err)
				return
			}

			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			switch n.Event {
			case domain.EventNameGameStateUpdated:
				var s api.GameState
				if err := json.Unmarshal(n.Data, &s); err != nil {
					t.Logf("unmarshal game state: %v", err)
					continue
				}
				t.Logf("Game %d on question %s", s.GameID, formatQuestion(s.CurrentQuestionID))

			case domain.EventNameGameDeleted:
				t.Logf("Game %d deleted", id)
				return
			}
		}
	}()
}

func loginMaster(t *testing.T, login, password string) user.MasterSession {
	var s user.MasterSession
	post(t, "/authentication/login/master", "", api.LoginMasterRequest{Login: login, Password: password}, &s)
	return s
}

func post(t *testing.T, path, token string, body, out any) {
	t.Helper()
	require.NoError(t, send(http.MethodPost, path, token, body, out))
}

func get(t *testing.T, path, token string, out any) {
	t.Helper()
	require.NoError(t, send(http.MethodGet, path, token, nil, out))
}

func send(method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, addr+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(b, out)
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{env("REDIS_ADDR", "localhost:6379")},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func formatQuestion(id *int64) string {
	if id == nil {
		return "none"
	}
	return fmt.Sprint(*id)
}
