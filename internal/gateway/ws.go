// README: WebSocket endpoint: handshake auth, read pump and write pump.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 64
)

type Server struct {
	hub      *Hub
	mux      *Mux
	auth     *Authenticator
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewServer(hub *Hub, mux *Mux, auth *Authenticator, log zerolog.Logger) *Server {
	return &Server{
		hub:  hub,
		mux:  mux,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := s.auth.AuthenticateRequest(r)
	if err != nil {
		s.log.Info().Err(err).Str("remote", r.RemoteAddr).Msg("ws_auth_rejected")
		http.Error(w, "Authentication invalid", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws_upgrade_failed")
		return
	}

	c := NewConn(identity, sendQueueSize)
	s.hub.Register(c)
	s.log.Info().
		Str("handle", string(c.Handle())).
		Str("user_id", string(identity.UserID)).
		Str("role", string(identity.Role)).
		Msg("ws_connected")

	go s.writePump(ws, c)
	s.readPump(ws, c)
}

func (s *Server) readPump(ws *websocket.Conn, c *Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.mux.Closed(context.Background(), c)
		s.hub.Unregister(c)
		_ = ws.Close()
		s.log.Info().Str("handle", string(c.Handle())).Str("user_id", string(c.Identity().UserID)).Msg("ws_disconnected")
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Str("handle", string(c.Handle())).Msg("ws_read_error")
			}
			return
		}
		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil || in.Event == "" {
			c.EmitError("Malformed message")
			continue
		}
		if err := s.mux.Dispatch(ctx, c, in); err != nil {
			s.log.Debug().Err(err).Str("event", in.Event).Str("handle", string(c.Handle())).Msg("ws_event_failed")
		}
	}
}

func (s *Server) writePump(ws *websocket.Conn, c *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case env := <-c.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(env); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.Done():
			// flush what is already queued before closing
			for {
				select {
				case env := <-c.Outbound():
					_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
					if err := ws.WriteJSON(env); err != nil {
						return
					}
				default:
					_ = ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(writeWait))
					return
				}
			}
		}
	}
}
