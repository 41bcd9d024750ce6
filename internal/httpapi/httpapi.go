// Package httpapi exposes the registry's query and mutation surface over
// HTTP: a gorilla/mux router, grounded on the rest of the retrieval pack's
// use of gorilla/mux for path-parameterized routes, with mutation routes
// gated behind a golang-jwt/jwt/v5 bearer-auth middleware.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mmcdole/permtree/pkg/permevents"
	"github.com/mmcdole/permtree/pkg/permguard"
	"github.com/mmcdole/permtree/pkg/permid"
	"github.com/mmcdole/permtree/pkg/registry"
)

type contextKey int

const subjectContextKey contextKey = 0

// Server wires a Guarded registry, an event bus, and a websocket
// broadcaster to a gorilla/mux router.
type Server struct {
	guard       *permguard.Guarded[string]
	bus         *permevents.Bus
	broadcaster *permevents.WebSocketBroadcaster
	signingKey  []byte
	router      *mux.Router
	upgrader    websocket.Upgrader
}

// New builds a Server whose mutation routes require a bearer token signed
// with signingKey. broadcaster may be nil, in which case /events responds
// with 404 rather than upgrading the connection.
func New(guard *permguard.Guarded[string], bus *permevents.Bus, broadcaster *permevents.WebSocketBroadcaster, signingKey []byte) *Server {
	s := &Server{guard: guard, bus: bus, broadcaster: broadcaster, signingKey: signingKey}
	s.router = mux.NewRouter()
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	s.router.HandleFunc("/users/{id}/has", s.handleUserHas).Methods(http.MethodGet)
	s.router.HandleFunc("/groups/{name}/status", s.handleGroupStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/default/has", s.handleDefaultHas).Methods(http.MethodGet)
	s.router.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	s.router.Handle("/users/{id}/permissions",
		s.requireAuth(http.HandlerFunc(s.handleAssignUserPermission))).Methods(http.MethodPost)
	s.router.Handle("/groups/{name}/permissions",
		s.requireAuth(http.HandlerFunc(s.handleAssignGroupPermission))).Methods(http.MethodPost)
	s.router.Handle("/me/has",
		s.requireAuth(http.HandlerFunc(s.handleMeHas))).Methods(http.MethodGet)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var stats registry.Stats
	s.guard.Do(func(reg *registry.Registry[string]) {
		stats = reg.Stats()
	})
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var data []byte
	var err error
	s.guard.Do(func(reg *registry.Registry[string]) {
		data, err = reg.ExportJSON()
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleUserHas(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	path := r.URL.Query().Get("path")
	has := s.guard.UserHas(id, path)
	writeJSON(w, http.StatusOK, map[string]bool{"has": has})
}

func (s *Server) handleGroupStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	path := r.URL.Query().Get("path")
	var status registry.Status
	s.guard.Do(func(reg *registry.Registry[string]) {
		status = reg.GroupStatus(name, path)
	})
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDefaultHas(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	writeJSON(w, http.StatusOK, map[string]bool{"has": s.guard.DefaultHas(path)})
}

// handleMeHas answers the has query for the caller's own identity, read
// from the bearer token's subject via permid.SubjectFromToken rather than
// a path parameter.
func (s *Server) handleMeHas(w http.ResponseWriter, r *http.Request) {
	sub, _ := r.Context().Value(subjectContextKey).(string)
	path := r.URL.Query().Get("path")
	writeJSON(w, http.StatusOK, map[string]bool{"has": s.guard.UserHas(sub, path)})
}

// handleEvents upgrades to a websocket connection and relays every
// published permevents.Event to it until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.broadcaster == nil {
		http.NotFound(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.broadcaster.Add(conn)
	defer func() {
		s.broadcaster.Remove(conn)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type permissionRequest struct {
	Permission string `json:"permission"`
}

func (s *Server) handleAssignUserPermission(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.guard.AssignUserPermission(id, req.Permission); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.bus.Publish(permevents.Event{Kind: permevents.KindUserPermission, Entity: id, Path: req.Permission})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignGroupPermission(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.guard.AssignGroupPermission(name, req.Permission); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.bus.Publish(permevents.Event{Kind: permevents.KindGroupPermission, Entity: name, Path: req.Permission})
	w.WriteHeader(http.StatusNoContent)
}

// requireAuth validates a "Bearer <token>" Authorization header against
// s.signingKey before calling next.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return s.signingKey, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		sub, err := permid.SubjectFromToken(token)
		if err != nil {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), subjectContextKey, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
