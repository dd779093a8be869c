// Package httpserver provides the HTTP transport: the MCP endpoint,
// queue inspection, event streaming and operational endpoints.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/queue"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/infra/config"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/observability"
)

const (
	// AuthorizationHeader carries the bearer token when one is configured.
	AuthorizationHeader = "Authorization"

	healthProbeTimeout = 2 * time.Second
)

// EngineProber reports engine reachability for the health endpoint.
type EngineProber interface {
	Version(ctx context.Context) (string, error)
}

// Server serves the HTTP transport.
type Server struct {
	cfg      *config.Config
	queue    *queue.Manager
	engine   EngineProber
	hub      *Hub
	mcp      http.Handler
	upgrader websocket.Upgrader
}

// New creates the HTTP server and subscribes its event hub to the
// queue. mcpServer may be nil when the MCP endpoint is not wanted.
func New(cfg *config.Config, mgr *queue.Manager, engine EngineProber, mcpServer *mcp.Server) *Server {
	s := &Server{
		cfg:    cfg,
		queue:  mgr,
		engine: engine,
		hub:    NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
	if mcpServer != nil {
		s.mcp = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return mcpServer
		}, nil)
	}
	mgr.Events().Subscribe(s.hub.Broadcast)
	return s
}

// Hub returns the websocket event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router builds the route table. Operational endpoints are open; the
// MCP endpoint, queue inspection and event stream honor the configured
// bearer token.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		if s.mcp != nil {
			r.Handle("/mcp", s.mcp)
		}
		r.Get("/queue", s.handleQueueStatus)
		r.Get("/events", s.handleEventsWS)
	})

	return r
}

// requireAuth validates the bearer token on protected routes. An empty
// configured token disables the check. A bare token without the Bearer
// prefix is also accepted.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := s.cfg.Server.AuthToken
		if want == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get(AuthorizationHeader), "Bearer ")
		if got == "" || got != want {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	resp := map[string]any{
		"status":      "ok",
		"queue_state": s.queue.State().String(),
		"subscribers": s.hub.SubscriberCount(),
	}
	if version, err := s.engine.Version(ctx); err != nil {
		resp["engine"] = "unreachable"
	} else {
		resp["engine"] = "ok"
		resp["engine_version"] = version
	}
	respondJSON(w, http.StatusOK, resp)
}

type queueItemView struct {
	ID        string    `json:"id"`
	Text      string    `json:"text,omitempty"`
	Speaker   int       `json:"speaker"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type queueStatusResponse struct {
	State   string          `json:"state"`
	Length  int             `json:"length"`
	Current *queueItemView  `json:"current,omitempty"`
	Queued  []queueItemView `json:"queued"`
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, _ *http.Request) {
	current, queued := s.queue.Snapshot()

	resp := queueStatusResponse{
		State:  s.queue.State().String(),
		Length: s.queue.Length(),
		Queued: make([]queueItemView, 0, len(queued)),
	}
	if current != nil {
		v := itemView(*current)
		resp.Current = &v
	}
	for _, snap := range queued {
		resp.Queued = append(resp.Queued, itemView(snap))
	}
	respondJSON(w, http.StatusOK, resp)
}

func itemView(snap queue.ItemSnapshot) queueItemView {
	return queueItemView{
		ID:        snap.ID,
		Text:      snap.Text,
		Speaker:   snap.Speaker,
		Status:    snap.Status.String(),
		CreatedAt: snap.CreatedAt,
	}
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.hub.serveConn(r.Context(), conn)
}

// checkOrigin only allows browser websocket connections from the same
// origin. Non-browser clients often omit Origin and are allowed.
func checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
