package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/telemetry"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// liveGame streams the notifications of one game over a websocket. The first
// message is the current state; the stream ends when the game is deleted.
func (a *API) liveGame(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	ctx := c.Request.Context()

	sub := a.redis.Subscribe(ctx, a.gameChannel(uri.ID))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		renderError(c, fmt.Errorf("subscribe game %d: %w", uri.ID, err))
		return
	}

	g, err := a.gs.GetGame(ctx, uri.ID)
	if err != nil {
		renderError(c, err)
		return
	}
	snapshot, err := encodeNotification(domain.EventNameGameStateUpdated, GameState{
		GameID:            g.GameID,
		State:             g.State,
		CurrentQuestionID: g.CurrentQuestionID,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "api: websocket upgrade failed", "game_id", uri.ID, "error", err)
		return
	}
	defer conn.Close()

	telemetry.LiveSubscribers.Inc()
	defer telemetry.LiveSubscribers.Dec()

	closed := readUntilClosed(conn)

	if err := write(conn, websocket.TextMessage, snapshot); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	ch := sub.Channel()
	for {
		select {
		case <-closed:
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := write(conn, websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
			if isDeletion(msg.Payload) {
				_ = write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game deleted"))
				return
			}

		case <-ping.C:
			if err := write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readUntilClosed drains client frames and closes the returned channel once
// the client goes away or stops answering pings.
func readUntilClosed(conn *websocket.Conn) <-chan struct{} {
	closed := make(chan struct{})

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return closed
}

func write(conn *websocket.Conn, kind int, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(kind, data)
}

func isDeletion(payload string) bool {
	var n struct {
		Event string `json:"event"`
	}
	return json.Unmarshal([]byte(payload), &n) == nil && n.Event == domain.EventNameGameDeleted
}
