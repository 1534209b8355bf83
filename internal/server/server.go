package server

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/headline-lab/headline-lab/internal/config"
	"github.com/headline-lab/headline-lab/internal/engine"
	"github.com/headline-lab/headline-lab/internal/store"
)

// Server exposes the test engine over HTTP: a beacon endpoint for
// telemetry, a small JSON API for test management, and a health check.
type Server struct {
	engine    *engine.Engine
	store     *store.SQLiteStore
	port      int
	limiter   *rate.Limiter
	router    *http.ServeMux
	startTime time.Time
}

func New(eng *engine.Engine, st *store.SQLiteStore, cfg config.ServerConfig) *Server {
	srv := &Server{
		engine:    eng,
		store:     st,
		port:      cfg.Port,
		limiter:   rate.NewLimiter(rate.Limit(cfg.BeaconRateLimit), cfg.BeaconBurst),
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/b", s.handleBeacon)
	s.router.HandleFunc("/api/tests", s.handleTests)
	s.router.HandleFunc("/api/tests/", s.handleTest)
}

func (s *Server) Start() error {
	fmt.Printf("headline-lab running on http://localhost:%d\n", s.port)
	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), s.router)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) StartTime() time.Time {
	return s.startTime
}
