// Package api serves the story generation HTTP surface: session
// control, progress polling, manuscript download, and a websocket
// stream of live progress events.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/AFK4203/Book-generator-V3/internal/config"
	"github.com/AFK4203/Book-generator-V3/internal/core"
	"github.com/AFK4203/Book-generator-V3/internal/events"
)

// Server holds the API's collaborators.
type Server struct {
	manager  *core.SessionManager
	bus      *events.Bus
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer builds the API server. Origins are the allowed browser
// origins for CORS and websocket upgrades.
func NewServer(manager *core.SessionManager, bus *events.Bus, cfg config.ServerConfig) *Server {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	wildcard := false
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}

	return &Server{
		manager: manager,
		bus:     bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if wildcard {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
		logger: slog.Default().With("component", "api"),
	}
}

// Routes assembles the router.
func (s *Server) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleRoot)
		r.Route("/story", func(r chi.Router) {
			r.Post("/generate", s.handleGenerate)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/progress", s.handleProgress)
				r.Get("/preview", s.handlePreview)
				r.Get("/download", s.handleDownload)
				r.Get("/file", s.handleFile)
				r.Delete("/", s.handleCancel)
			})
		})
		r.Get("/ws/{sessionID}", s.handleWebsocket)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Book Generator API - multi-agent story generation",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
