// Package server exposes the REST and websocket surface: room management,
// snapshot fetch, seeding, and the realtime intent stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/nickelm/tapestry/internal/concept"
	"github.com/nickelm/tapestry/internal/graph"
	"github.com/nickelm/tapestry/internal/room"
	"github.com/nickelm/tapestry/internal/store"
)

// Server wires the store, the concept service, and the room router behind
// an HTTP mux.
type Server struct {
	store  *store.DB
	svc    concept.Service
	router *room.Router
	logger *slog.Logger

	upgrader websocket.Upgrader
}

// New creates a server.
func New(db *store.DB, svc concept.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  db,
		svc:    svc,
		router: room.NewRouter(db, svc, logger),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler builds the route table with request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			s.logger.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})

	r.Methods(http.MethodGet).Path("/api/rooms").HandlerFunc(s.listRooms)
	r.Methods(http.MethodPost).Path("/api/rooms").HandlerFunc(s.createRoom)
	r.Methods(http.MethodGet).Path("/api/rooms/{room}/state").HandlerFunc(s.roomState)
	r.Methods(http.MethodPost).Path("/api/rooms/{room}/seed").HandlerFunc(s.seedRoom)
	r.Methods(http.MethodPost).Path("/api/rooms/{room}/describe-concept").HandlerFunc(s.describeConcept)
	r.Path("/ws").HandlerFunc(s.serveWS)

	return r
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListRooms()
	if err != nil {
		s.internalError(w, "listing rooms", err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rm, err := s.store.CreateRoom(body.Name)
	if err != nil {
		if errors.Is(err, graph.ErrEmptyRoomName) {
			writeError(w, http.StatusBadRequest, "name required")
			return
		}
		s.internalError(w, "creating room", err)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) roomState(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room"]
	snap, err := s.store.RoomSnapshot(roomID)
	if err != nil {
		if errors.Is(err, graph.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		s.internalError(w, "loading snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*store.Snapshot
		UserCount int `json:"userCount"`
	}{snap, s.router.Hubs().Count(roomID)})
}

// seedSystemUser is the synthetic creator for seeded concepts.
const (
	seedSystemUser  = "system"
	seedSystemName  = "System"
	seedSystemColor = "#94a3b8"
)

func (s *Server) seedRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room"]
	if _, err := s.store.GetRoom(roomID); err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	var body struct {
		Concepts []struct {
			Title       string  `json:"title"`
			Description string  `json:"description"`
			X           float64 `json:"x"`
			Y           float64 `json:"y"`
		} `json:"concepts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := s.store.GetUser(seedSystemUser)
	if err != nil {
		s.internalError(w, "looking up seed user", err)
		return
	}
	if existing == nil {
		if err := s.store.CreateUser(seedSystemUser, seedSystemName, seedSystemColor, roomID); err != nil {
			s.internalError(w, "creating seed user", err)
			return
		}
	}

	seeded := make([]graph.Node, 0, len(body.Concepts))
	for _, c := range body.Concepts {
		node, err := s.store.CreateNode(roomID, c.Title, c.Description, c.X, c.Y, seedSystemUser)
		if err != nil {
			if errors.Is(err, graph.ErrEmptyTitle) {
				writeError(w, http.StatusBadRequest, "concept title required")
				return
			}
			s.internalError(w, "seeding node", err)
			return
		}
		_ = s.store.AppendActivity(store.Activity{
			RoomID: roomID, UserID: seedSystemUser, UserName: seedSystemName,
			Action: "seed", TargetType: "node", TargetID: node.ID, Details: node.Title,
		})
		seeded = append(seeded, *node)
	}
	writeJSON(w, http.StatusOK, map[string]any{"seeded": seeded})
}

func (s *Server) describeConcept(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title      string   `json:"title"`
		Breadcrumb []string `json:"breadcrumb"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}
	description, err := s.svc.DescribeConcept(r.Context(), body.Title, body.Breadcrumb)
	if err != nil {
		s.logger.Error("describe-concept failed", "title", body.Title, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate description")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": description})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	s.router.NewSession(conn).Run()
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
