package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/AnuragDani/gateway-decider/internal/decider"
	"github.com/AnuragDani/gateway-decider/internal/events"
	"github.com/AnuragDani/gateway-decider/internal/models"
	ws "github.com/AnuragDani/gateway-decider/internal/websocket"
)

type DecideRequest struct {
	DecisionID    string                      `json:"decision_id,omitempty"`
	Merchant      models.MerchantAccount      `json:"merchant"`
	Order         models.Order                `json:"order"`
	Txn           models.TxnDetail            `json:"txn"`
	Card          models.TxnCardInfo          `json:"card"`
	PriorityLogic decider.PriorityLogicOutput `json:"priority_logic"`
}

type DecideResponse struct {
	decider.Decision
	DurationMs float64 `json:"duration_ms"`
}

func (s *DeciderService) decide(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Merchant.MerchantID == "" {
		http.Error(w, "merchant.merchant_id is required", http.StatusBadRequest)
		return
	}

	dc := &decider.DecisionContext{
		ID:            req.DecisionID,
		Merchant:      req.Merchant,
		Order:         req.Order,
		Txn:           req.Txn,
		Card:          req.Card,
		PriorityLogic: req.PriorityLogic,
	}

	start := time.Now()
	decision := s.decider.Decide(r.Context(), dc)
	elapsed := time.Since(start)
	s.metrics.ObserveDecision(string(decision.Approach), string(decision.DownTime), len(decision.FunctionalGateways), elapsed)

	writeJSON(w, http.StatusOK, DecideResponse{
		Decision:   decision,
		DurationMs: float64(elapsed.Microseconds()) / 1000.0,
	})
}

func (s *DeciderService) recordOutcome(w http.ResponseWriter, r *http.Request) {
	var in decider.OutcomeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if in.Gateway == "" || in.Merchant.MerchantID == "" {
		http.Error(w, "gateway and merchant.merchant_id are required", http.StatusBadRequest)
		return
	}

	err := s.decider.RecordOutcome(r.Context(), in)
	s.metrics.ObserveOutcome(string(in.Gateway), in.Success, err)

	data := ws.OutcomeData{
		MerchantID: in.Merchant.MerchantID,
		Gateway:    string(in.Gateway),
		Success:    in.Success,
	}
	s.wsHub.BroadcastEvent(ws.TypeOutcome, ws.EventOutcomeRecorded, data)
	if s.publisher != nil {
		s.publisher.PublishAsync(events.TypeOutcome, ws.EventOutcomeRecorded, data)
	}

	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"gateway": in.Gateway,
	})
}

func (s *DeciderService) getConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	lastReload := s.lastReload
	reloadCount := s.reloadCount
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"config":       s.decider.Config(),
		"config_path":  s.configPath,
		"last_reload":  lastReload,
		"reload_count": reloadCount,
	})
}

func (s *DeciderService) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.loadConfig()
	s.metrics.ObserveReload(err)
	if err != nil {
		s.log.Error("Failed to reload decider config", "path", s.configPath, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	s.apply(cfg)

	s.mu.RLock()
	reloadCount := s.reloadCount
	s.mu.RUnlock()

	s.log.Info("Decider config reloaded", "version", cfg.Version, "reload_count", reloadCount)
	s.wsHub.BroadcastEvent(ws.TypeHealth, ws.EventConfigReloaded, map[string]interface{}{
		"version": cfg.Version,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Configuration reloaded successfully",
		"version":      cfg.Version,
		"reload_count": reloadCount,
		"timestamp":    time.Now(),
	})
}

func (s *DeciderService) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	dependencies := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			dependencies[name] = "unhealthy"
			status = "degraded"
			continue
		}
		dependencies[name] = "healthy"
	}

	s.mu.RLock()
	startedAt := s.startedAt
	s.mu.RUnlock()

	response := map[string]interface{}{
		"service":      "decider-service",
		"status":       status,
		"timestamp":    time.Now(),
		"uptime":       time.Since(startedAt).String(),
		"version":      "1.0.0",
		"dependencies": dependencies,
	}
	if s.publisher != nil {
		response["telemetry"] = s.publisher.Stats()
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

func (s *DeciderService) wsStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wsHub.GetStats())
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
