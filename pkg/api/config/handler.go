package config

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"saas_stack/pkg/core/agent"

	"github.com/go-chi/chi/v5"
)

type Response struct {
	ActiveProvider string   `json:"active_provider"`
	Available      []string `json:"available"`
}

type SwitchRequest struct {
	Provider string `json:"provider"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	AgentMgr *agent.Manager
	Logger   *slog.Logger
}

// NewHandler creates a new config handler
func NewHandler(agentMgr *agent.Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		AgentMgr: agentMgr,
		Logger:   logger,
	}
}

// Routes mounts the config endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/config", h.HandleConfig)
	r.Post("/config/switch", h.HandleSwitch)
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK)
}

func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.AgentMgr.SetGlobalProvider(req.Provider); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, http.StatusOK)
}

func (h *Handler) respond(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := Response{
		ActiveProvider: h.AgentMgr.GetActiveProvider(),
		Available:      h.AgentMgr.Available(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Error("failed to encode config response", "error", err)
	}
}
