package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single websocket write.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before dropping the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames. Chat histories are the largest
	// payloads and stay well under this.
	maxMessageSize = 256 * 1024

	// sendBuffer is the per-session outbound queue. A session that falls
	// this far behind is dropped rather than allowed to stall the room.
	sendBuffer = 256
)

// Session is one websocket connection. A session belongs to at most one
// room at a time, entered via a join-room intent.
type Session struct {
	router *Router
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	closeOnce sync.Once

	// owned by the read pump once set
	hub  *Hub
	user *User

	// logRoom mirrors the joined room id for log lines emitted from other
	// goroutines (broadcast fan-out), which must not touch hub.
	logRoomMu sync.Mutex
	logRoom   string

	// inflight tracks at most one outstanding concept-service call per
	// kind; a new call of the same kind cancels its predecessor.
	inflightMu sync.Mutex
	inflight   map[string]*callToken
}

type callToken struct {
	cancel context.CancelFunc
}

func newSession(r *Router, conn *websocket.Conn) *Session {
	return &Session{
		router:   r,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		logger:   r.logger,
		inflight: make(map[string]*callToken),
	}
}

// Run services the connection until it closes. It blocks in the read loop;
// the write pump runs alongside.
func (s *Session) Run() {
	go s.writePump()
	s.readPump()
}

func (s *Session) readPump() {
	defer func() {
		s.router.handleDisconnect(s)
		s.close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", "err", err)
			}
			return
		}
		var intent Intent
		if err := json.Unmarshal(raw, &intent); err != nil {
			s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "malformed intent"}})
			continue
		}
		s.router.dispatch(s, intent)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case raw, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues a frame for delivery without blocking. A full buffer means
// the consumer is stuck; the connection is closed and the read pump performs
// the usual disconnect cleanup.
func (s *Session) enqueue(raw []byte) {
	select {
	case s.send <- raw:
	default:
		s.logger.Warn("dropping slow session", "room", s.roomID())
		s.close()
	}
}

// sendEvent delivers an event to this session only.
func (s *Session) sendEvent(ev Event) {
	s.enqueue(ev.encode())
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.cancelAllCalls()
		_ = s.conn.Close()
	})
}

func (s *Session) setLogRoom(id string) {
	s.logRoomMu.Lock()
	s.logRoom = id
	s.logRoomMu.Unlock()
}

func (s *Session) roomID() string {
	s.logRoomMu.Lock()
	defer s.logRoomMu.Unlock()
	return s.logRoom
}

// beginCall registers an outstanding concept-service call of the given
// kind, cancelling any prior call of the same kind from this session.
func (s *Session) beginCall(kind string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	tok := &callToken{cancel: cancel}

	s.inflightMu.Lock()
	if prev, ok := s.inflight[kind]; ok {
		prev.cancel()
	}
	s.inflight[kind] = tok
	s.inflightMu.Unlock()

	return ctx, func() {
		s.inflightMu.Lock()
		if s.inflight[kind] == tok {
			delete(s.inflight, kind)
		}
		s.inflightMu.Unlock()
		cancel()
	}
}

// cancelCall aborts the outstanding call of a kind, if any.
func (s *Session) cancelCall(kind string) {
	s.inflightMu.Lock()
	if tok, ok := s.inflight[kind]; ok {
		tok.cancel()
		delete(s.inflight, kind)
	}
	s.inflightMu.Unlock()
}

func (s *Session) cancelAllCalls() {
	s.inflightMu.Lock()
	for kind, tok := range s.inflight {
		tok.cancel()
		delete(s.inflight, kind)
	}
	s.inflightMu.Unlock()
}
