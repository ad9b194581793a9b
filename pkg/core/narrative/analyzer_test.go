package narrative

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"saas_stack/pkg/core/llm"
	"saas_stack/pkg/core/projection"
	"saas_stack/pkg/core/prompt"
)

// --- Mocks ---

type MockGenerator struct {
	Calls   int
	Prompts []string
	Func    func(ctx context.Context, prompt, system string) (string, error)
}

func (m *MockGenerator) ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error) {
	m.Calls++
	m.Prompts = append(m.Prompts, rawPrompt)
	if m.Func != nil {
		return m.Func(ctx, rawPrompt, rawSystemPrompt)
	}
	return "", nil
}

// RoutingGenerator reports the provider it routes to, like *agent.Manager.
type RoutingGenerator struct {
	MockGenerator
	Provider string
}

func (g *RoutingGenerator) GetProvider(agentType string) (llm.Provider, string, error) {
	return nil, g.Provider, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustRun(t *testing.T, p projection.Parameters) *projection.Projection {
	t.Helper()
	proj, err := projection.Run(p)
	if err != nil {
		t.Fatalf("projection.Run failed: %v", err)
	}
	return proj
}

const goodResponse = `{"headline":"Subscriptions stack","insights":["MRR compounds","Churn caps growth"],"verdict":"Keep churn low."}`

func TestAnalyzeModelResponse(t *testing.T) {
	gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
		return goodResponse, nil
	}}
	a := NewAnalyzer(gen, nil, quietLogger())
	proj := mustRun(t, projection.DefaultParameters())

	res := a.Analyze(context.Background(), proj)
	if res.Source != SourceModel {
		t.Errorf("Expected source model, got %q", res.Source)
	}
	if res.Narrative.Headline != "Subscriptions stack" || len(res.Narrative.Insights) != 2 {
		t.Errorf("Unexpected narrative %+v", res.Narrative)
	}
	if res.ID == "" {
		t.Error("Expected a result ID")
	}
	if res.Fingerprint != proj.Parameters.Fingerprint() {
		t.Error("Expected result to carry the parameter fingerprint")
	}

	// The prompt embeds the formatted summary numbers
	sent := gen.Prompts[0]
	for _, want := range []string{"Monthly Price: $20", "Churn Rate: 3%", "Duration: 24 months", "Total Cumulative Revenue: $"} {
		if !strings.Contains(sent, want) {
			t.Errorf("Prompt missing %q:\n%s", want, sent)
		}
	}
}

func TestAnalyzePromptKeepsEnteredPrecision(t *testing.T) {
	gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
		return goodResponse, nil
	}}
	p := projection.Parameters{
		StartingCustomers:   2.5,
		MonthlyNewCustomers: 1.5,
		PricePerCustomer:    9.99,
		ChurnRatePercent:    2.25,
		Months:              12,
		OneTimeSalePrice:    100,
	}
	NewAnalyzer(gen, nil, quietLogger()).Analyze(context.Background(), mustRun(t, p))

	sent := gen.Prompts[0]
	for _, want := range []string{
		"Starting Customers: 2.5\n",
		"Monthly New Customers: 1.5\n",
		"Monthly Price: $9.99\n",
		"Churn Rate: 2.25%\n",
	} {
		if !strings.Contains(sent, want) {
			t.Errorf("Prompt missing %q:\n%s", want, sent)
		}
	}
}

func TestAnalyzeFallbackOnError(t *testing.T) {
	gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
		return "", errors.New("connection refused")
	}}
	a := NewAnalyzer(gen, nil, quietLogger())

	res := a.Analyze(context.Background(), mustRun(t, projection.DefaultParameters()))
	if res.Source != SourceFallback {
		t.Errorf("Expected fallback source, got %q", res.Source)
	}
	if !reflect.DeepEqual(res.Narrative, Fallback()) {
		t.Errorf("Expected the fixed fallback narrative, got %+v", res.Narrative)
	}
}

func TestAnalyzeFallbackOnBadOutput(t *testing.T) {
	outputs := []string{
		"I am not JSON at all",
		`{"headline":"Only a headline"}`,
		`{"headline":"h","insights":[],"verdict":"v"}`,
	}
	for _, out := range outputs {
		out := out
		gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
			return out, nil
		}}
		res := NewAnalyzer(gen, nil, quietLogger()).Analyze(context.Background(), mustRun(t, projection.DefaultParameters()))
		if res.Source != SourceFallback {
			t.Errorf("Output %q: expected fallback, got %q", out, res.Source)
		}
	}
}

func TestAnalyzeFallbackWithoutGenerator(t *testing.T) {
	res := NewAnalyzer(nil, nil, quietLogger()).Analyze(context.Background(), mustRun(t, projection.DefaultParameters()))
	if res.Source != SourceFallback || res.Narrative.Headline != "The Power of Compound Growth" {
		t.Errorf("Expected fallback, got %+v", res)
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	a := NewAnalyzer(gen, nil, quietLogger())
	a.Timeout = 10 * time.Millisecond

	start := time.Now()
	res := a.Analyze(context.Background(), mustRun(t, projection.DefaultParameters()))
	if res.Source != SourceFallback {
		t.Errorf("Expected fallback after timeout, got %q", res.Source)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Timeout was not applied")
	}
}

func TestAnalyzeRepairsFencedOutput(t *testing.T) {
	gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
		return "```json\n{\"headline\": \"Fenced\", \"insights\": [\"a\",], \"verdict\": \"ok\"}\n```", nil
	}}
	res := NewAnalyzer(gen, nil, quietLogger()).Analyze(context.Background(), mustRun(t, projection.DefaultParameters()))
	if res.Source != SourceModel || res.Narrative.Headline != "Fenced" {
		t.Errorf("Expected repaired model output, got %+v", res)
	}
}

func TestAnalyzeCache(t *testing.T) {
	gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
		return goodResponse, nil
	}}
	a := NewAnalyzer(gen, nil, quietLogger())
	p := projection.DefaultParameters()

	first := a.Analyze(context.Background(), mustRun(t, p))
	second := a.Analyze(context.Background(), mustRun(t, p))
	if gen.Calls != 1 {
		t.Errorf("Expected 1 model call for identical parameters, got %d", gen.Calls)
	}
	if second.Source != SourceCache || second.ID != first.ID {
		t.Errorf("Expected cached result, got %+v", second)
	}

	p.ChurnRatePercent = 4
	third := a.Analyze(context.Background(), mustRun(t, p))
	if gen.Calls != 2 || third.Source != SourceModel {
		t.Errorf("Expected a fresh call after a parameter change, calls=%d source=%s", gen.Calls, third.Source)
	}
}

func TestAnalyzeCacheFollowsProviderSwitch(t *testing.T) {
	gen := &RoutingGenerator{Provider: "gemini"}
	gen.Func = func(ctx context.Context, prompt, system string) (string, error) {
		return goodResponse, nil
	}
	a := NewAnalyzer(gen, nil, quietLogger())
	proj := mustRun(t, projection.DefaultParameters())

	first := a.Analyze(context.Background(), proj)
	if first.Provider != "gemini" {
		t.Errorf("Expected provider gemini, got %q", first.Provider)
	}

	gen.Provider = "deepseek"
	second := a.Analyze(context.Background(), proj)
	if gen.Calls != 2 || second.Source != SourceModel || second.Provider != "deepseek" {
		t.Errorf("Expected a fresh deepseek call after the switch, calls=%d got %+v", gen.Calls, second)
	}

	if third := a.Analyze(context.Background(), proj); third.Source != SourceCache {
		t.Errorf("Expected cache hit for the same provider, got %q", third.Source)
	}
}

func TestAnalyzeRejectsSchemaViolation(t *testing.T) {
	reg := prompt.NewRegistry()
	err := reg.RegisterSchema(&prompt.ResponseSchema{
		ID:         prompt.SchemaIDs.RevenueAnalysis,
		JSONSchema: `{"type":"object","properties":{"insights":{"type":"array","maxItems":1}}}`,
	})
	if err != nil {
		t.Fatalf("RegisterSchema failed: %v", err)
	}
	gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
		return goodResponse, nil
	}}
	a := NewAnalyzer(gen, reg, quietLogger())

	res := a.Analyze(context.Background(), mustRun(t, projection.DefaultParameters()))
	if res.Source != SourceFallback {
		t.Errorf("Expected fallback for a response with two insights, got %q", res.Source)
	}
}

func TestFallbackResult(t *testing.T) {
	p := projection.DefaultParameters()
	res := FallbackResult(p)
	if res.ID == "" || res.GeneratedAt.IsZero() {
		t.Errorf("Expected ID and timestamp, got %+v", res)
	}
	if res.Source != SourceFallback || res.Fingerprint != p.Fingerprint() {
		t.Errorf("Unexpected fallback result %+v", res)
	}
	if !reflect.DeepEqual(res.Narrative, Fallback()) {
		t.Errorf("Expected the fixed narrative, got %+v", res.Narrative)
	}
}

func TestAnalyzeDoesNotCacheFallback(t *testing.T) {
	fail := true
	gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
		if fail {
			return "", errors.New("unavailable")
		}
		return goodResponse, nil
	}}
	a := NewAnalyzer(gen, nil, quietLogger())
	proj := mustRun(t, projection.DefaultParameters())

	if res := a.Analyze(context.Background(), proj); res.Source != SourceFallback {
		t.Fatalf("Expected fallback, got %q", res.Source)
	}
	fail = false
	if res := a.Analyze(context.Background(), proj); res.Source != SourceModel {
		t.Errorf("Expected model result once the service recovers, got %q", res.Source)
	}
}

func TestAnalyzeUsesRegistryPrompt(t *testing.T) {
	reg := prompt.NewRegistry()
	reg.Register(&prompt.PromptTemplate{
		ID:             prompt.PromptIDs.NarrativeRevenueAnalysis,
		SystemPrompt:   "custom system",
		UserPromptTmpl: "MRR={{.FinalMRR}} churn={{.ChurnRate}}",
	})

	var gotSystem string
	gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
		gotSystem = system
		return goodResponse, nil
	}}
	a := NewAnalyzer(gen, reg, quietLogger())

	p := projection.DefaultParameters()
	p.Months = 1
	a.Analyze(context.Background(), mustRun(t, p))

	if gotSystem != "custom system" {
		t.Errorf("Expected registry system prompt, got %q", gotSystem)
	}
	if gen.Prompts[0] != "MRR=$59 churn=3%" {
		t.Errorf("Unexpected prompt %q", gen.Prompts[0])
	}
}

func TestNewRequest(t *testing.T) {
	p := projection.DefaultParameters()
	p.Months = 1
	req := NewRequest(mustRun(t, p))

	want := Request{
		StartingCustomers:   1,
		MonthlyNewCustomers: 2,
		PricePerCustomer:    20,
		ChurnRatePercent:    3,
		Months:              1,
		FinalMRR:            59,
		TotalRevenue:        79,
	}
	if req != want {
		t.Errorf("Unexpected request:\n got  %+v\n want %+v", req, want)
	}
}

func TestAnalyzeWithShippedPrompt(t *testing.T) {
	reg := prompt.NewRegistry()
	if _, err := prompt.LoadFS(reg, os.DirFS("../../../resources")); err != nil {
		t.Fatalf("Failed to load shipped resources: %v", err)
	}
	if _, err := reg.GetSchema(prompt.SchemaIDs.RevenueAnalysis); err != nil {
		t.Errorf("Expected shipped response schema: %v", err)
	}

	gen := &MockGenerator{Func: func(ctx context.Context, prompt, system string) (string, error) {
		return goodResponse, nil
	}}
	s, _ := projection.Preset("startup")
	res := NewAnalyzer(gen, reg, quietLogger()).Analyze(context.Background(), mustRun(t, s.Parameters))

	if res.Source != SourceModel {
		t.Fatalf("Expected model result, got %q", res.Source)
	}
	sent := gen.Prompts[0]
	for _, want := range []string{"Starting Customers: 50", "Monthly Price: $99", "Churn Rate: 5%"} {
		if !strings.Contains(sent, want) {
			t.Errorf("Prompt missing %q:\n%s", want, sent)
		}
	}
}
