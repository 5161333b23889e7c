package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/AnuragDani/gateway-decider/internal/config"
	"github.com/AnuragDani/gateway-decider/internal/decider"
	"github.com/AnuragDani/gateway-decider/internal/eligibility"
	"github.com/AnuragDani/gateway-decider/internal/events"
	"github.com/AnuragDani/gateway-decider/internal/logger"
	"github.com/AnuragDani/gateway-decider/internal/metrics"
	ws "github.com/AnuragDani/gateway-decider/internal/websocket"
)

// healthCheck reports whether one dependency is reachable
type healthCheck func(ctx context.Context) error

type DeciderService struct {
	decider    *decider.Decider
	static     *eligibility.Static
	configPath string
	scoreTTL   time.Duration
	checks     map[string]healthCheck
	wsHub      *ws.Hub
	publisher  *events.Publisher
	metrics    *metrics.Metrics
	log        *logger.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastReload  time.Time
	reloadCount int
}

// loadConfig reads the decider YAML and applies the environment's score TTL
// override
func (s *DeciderService) loadConfig() (*config.DeciderConfig, error) {
	cfg, err := config.LoadDeciderConfig(s.configPath)
	if err != nil {
		return nil, err
	}
	if s.scoreTTL > 0 {
		cfg.Cache.ScoreTTL = s.scoreTTL
	}
	return cfg, nil
}

// apply swaps cfg into the decider and the static eligibility source
func (s *DeciderService) apply(cfg *config.DeciderConfig) {
	s.decider.SetConfig(cfg)
	s.static.Replace(cfg.Eligibility)

	s.mu.Lock()
	s.lastReload = time.Now()
	s.reloadCount++
	s.mu.Unlock()
}

func (s *DeciderService) router() *mux.Router {
	r := mux.NewRouter()

	// Decision endpoints
	r.HandleFunc("/decider/decide", s.decide).Methods("POST")
	r.HandleFunc("/decider/outcome", s.recordOutcome).Methods("POST")

	// Configuration
	r.HandleFunc("/decider/config", s.getConfig).Methods("GET")
	r.HandleFunc("/decider/reload", s.reloadConfig).Methods("POST")

	// Live feed
	r.HandleFunc("/ws", s.wsHub.ServeWs).Methods("GET")
	r.HandleFunc("/ws/stats", s.wsStats).Methods("GET")

	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	r.HandleFunc("/health", s.health).Methods("GET")

	return r
}

func newServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}
