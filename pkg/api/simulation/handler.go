package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"

	"saas_stack/pkg/core/narrative"
	"saas_stack/pkg/core/projection"
	"saas_stack/pkg/core/report"

	"github.com/go-chi/chi/v5"
)

// Error codes returned in JSON error bodies
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL_ERROR"
)

// maxBodyBytes caps request bodies; parameters are a handful of numbers.
const maxBodyBytes = 1 << 16

// Analyzer produces a narrative for a projection without failing
type Analyzer interface {
	Analyze(ctx context.Context, proj *projection.Projection) narrative.Result
}

// Handler holds dependencies for simulation endpoints
type Handler struct {
	Analyzer Analyzer
	Logger   *slog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(analyzer Analyzer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Analyzer: analyzer, Logger: logger}
}

// Routes mounts the simulation endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/simulate", h.HandleSimulate)
	r.Post("/simulate/analyze", h.HandleAnalyze)
	r.Post("/simulate/report", h.HandleReport)
	r.Get("/scenarios", h.HandleScenarios)
	r.Get("/scenarios/{name}", h.HandleScenario)
}

type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []projection.FieldError `json:"fields,omitempty"`
}

type AnalyzeResponse struct {
	Projection *projection.Projection `json:"projection"`
	Analysis   narrative.Result       `json:"analysis"`
}

func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	proj, ok := h.runFromBody(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, proj)
}

func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	proj, ok := h.runFromBody(w, r)
	if !ok {
		return
	}

	var res narrative.Result
	if h.Analyzer != nil {
		res = h.Analyzer.Analyze(r.Context(), proj)
	} else {
		res = narrative.FallbackResult(proj.Parameters)
	}
	h.Logger.Info("simulation analyzed",
		"fingerprint", res.Fingerprint,
		"source", res.Source,
		"months", proj.Parameters.Months)

	h.writeJSON(w, http.StatusOK, AnalyzeResponse{Projection: proj, Analysis: res})
}

// HandleReport renders the projection (and narrative, with ?analyze=true) as HTML or Markdown.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	proj, ok := h.runFromBody(w, r)
	if !ok {
		return
	}

	var n *narrative.Narrative
	if r.URL.Query().Get("analyze") == "true" && h.Analyzer != nil {
		res := h.Analyzer.Analyze(r.Context(), proj)
		n = &res.Narrative
	}

	switch r.URL.Query().Get("format") {
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, report.Markdown(proj, n))
	case "", "html":
		html, err := report.HTML(proj, n)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: "failed to render report"})
			h.Logger.Error("report rendering failed", "error", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, html)
	default:
		h.writeError(w, http.StatusBadRequest, ErrorResponse{Code: CodeBadRequest, Message: "format must be html or markdown"})
	}
}

func (h *Handler) HandleScenarios(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, projection.Scenarios())
}

// HandleScenario runs a named preset
func (h *Handler) HandleScenario(w http.ResponseWriter, r *http.Request) {
	scenario, err := projection.Preset(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, ErrorResponse{Code: CodeNotFound, Message: err.Error()})
		return
	}
	proj, err := projection.Run(scenario.Parameters)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, proj)
}

// runFromBody decodes parameters (unset fields keep the default preset values)
// and runs the projection, writing an error response on failure.
func (h *Handler) runFromBody(w http.ResponseWriter, r *http.Request) (*projection.Projection, bool) {
	params := projection.DefaultParameters()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			h.writeError(w, http.StatusUnprocessableEntity, ErrorResponse{
				Code:    CodeValidation,
				Message: projection.ErrInvalidParameters.Error(),
				Fields:  []projection.FieldError{{Field: typeErr.Field, Reason: typeReason(typeErr)}},
			})
			return nil, false
		}
		h.writeError(w, http.StatusBadRequest, ErrorResponse{Code: CodeBadRequest, Message: fmt.Sprintf("invalid request body: %v", err)})
		return nil, false
	}

	proj, err := projection.Run(params)
	if err != nil {
		var verr *projection.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, http.StatusUnprocessableEntity, ErrorResponse{
				Code:    CodeValidation,
				Message: projection.ErrInvalidParameters.Error(),
				Fields:  verr.Fields,
			})
			return nil, false
		}
		h.Logger.Error("projection failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: "projection failed"})
		return nil, false
	}
	return proj, true
}

// typeReason describes a JSON value that does not fit the parameter type.
func typeReason(err *json.UnmarshalTypeError) string {
	if err.Type != nil && err.Type.Kind() == reflect.Int {
		return "must be a whole number"
	}
	return "must be a number"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	h.writeJSON(w, status, resp)
}
