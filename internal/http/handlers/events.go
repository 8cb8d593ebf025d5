package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"brandstudio/internal/session"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

func (a *App) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     a.checkOrigin,
	}
}

// checkOrigin accepts same-host requests and the configured CORS origins.
func (a *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range a.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// Events streams session snapshots over a WebSocket. The current snapshot is
// sent first, then every change. While a batch runs the snapshot is re-sent
// whenever its loading message rotates. Client messages are ignored.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	updates, cancel := a.Sessions.Hub().Subscribe(s.ID())

	conn, err := a.upgrader().Upgrade(w, r, nil)
	if err != nil {
		cancel()
		a.Logger.Warn().Err(err).Str("session", s.ID()).Msg("handlers: websocket upgrade failed")
		return
	}
	logger := a.Logger.With().Str("session", s.ID()).Logger()
	logger.Debug().Msg("handlers: event stream opened")

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug().Err(err).Msg("handlers: event stream read error")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	refresh := a.LoadingRefresh
	if refresh <= 0 {
		refresh = session.LoadingMessageInterval
	}
	loading := time.NewTicker(refresh)
	defer func() {
		ticker.Stop()
		loading.Stop()
		cancel()
		_ = conn.Close()
		logger.Debug().Msg("handlers: event stream closed")
	}()

	current := s.Snapshot()
	lastVersion := current.Version
	generating, lastMessage := current.Generating, current.LoadingMessage
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(current); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case snap, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if snap.Version <= lastVersion {
				continue
			}
			lastVersion = snap.Version
			generating, lastMessage = snap.Generating, snap.LoadingMessage
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-loading.C:
			if !generating {
				continue
			}
			snap := s.Snapshot()
			if snap.Version < lastVersion || (snap.Version == lastVersion && snap.LoadingMessage == lastMessage) {
				continue
			}
			lastVersion = snap.Version
			generating, lastMessage = snap.Generating, snap.LoadingMessage
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
