package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"saas_stack/pkg/core/agent"

	"github.com/go-chi/chi/v5"
)

func TestConfigEndpoints(t *testing.T) {
	cfg, err := agent.LoadConfig("../../../config/models.yaml")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	mgr := agent.NewManager(cfg, nil)
	r := chi.NewRouter()
	r.Route("/api", NewHandler(mgr, nil).Routes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	var resp Response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ActiveProvider != "gemini" || len(resp.Available) != 3 {
		t.Errorf("Unexpected config %+v", resp)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config/switch", strings.NewReader(`{"provider":"deepseek"}`)))
	if rec.Code != http.StatusOK || mgr.GetActiveProvider() != "deepseek" {
		t.Errorf("Expected switch to deepseek, got %d %q", rec.Code, mgr.GetActiveProvider())
	}
	if _, name, _ := mgr.GetProvider("narrative"); name != "deepseek" {
		t.Errorf("Expected the narrative agent to follow the switch, got %q", name)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config/switch", strings.NewReader(`{"provider":"nope"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown provider, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config/switch", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET switch, got %d", rec.Code)
	}
}
