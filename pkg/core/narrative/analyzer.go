package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"saas_stack/pkg/core/format"
	"saas_stack/pkg/core/llm"
	"saas_stack/pkg/core/projection"
	"saas_stack/pkg/core/prompt"
	"saas_stack/pkg/core/utils"

	"google.golang.org/genai"
)

// AgentType routes narrative requests in the provider manager config.
const AgentType = "narrative"

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 20 * time.Second

const defaultSystemPrompt = `You are a friendly SaaS finance coach explaining subscription economics to first-time founders.
Answer with a JSON object {"headline": string, "insights": [string], "verdict": string}.`

const defaultUserTemplate = `Analyze this recurring revenue simulation:
- Starting Customers: {{.StartingCustomers}}
- Monthly New Customers: {{.MonthlyNewCustomers}}
- Monthly Price: {{.Price}}
- Churn Rate: {{.ChurnRate}}
- Duration: {{.Months}} months
- Resulting Monthly Recurring Revenue (MRR): {{.FinalMRR}}
- Total Cumulative Revenue: {{.TotalRevenue}}

Explain why these numbers matter. Compare the "stacking" effect of subscriptions vs one-time sales.
Provide actionable insights on how churn impacts the ceiling of the business.`

// providerResolver is implemented by generators that route agent types to
// named providers, such as *agent.Manager.
type providerResolver interface {
	GetProvider(agentType string) (llm.Provider, string, error)
}

// Generator executes a prompt against the configured model.
// *agent.Manager satisfies it.
type Generator interface {
	ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error)
}

// Analyzer produces narratives for projections
type Analyzer struct {
	Generator Generator
	Prompts   *prompt.Registry // Optional; built-in prompt when nil or missing the id
	Cache     *Cache           // Optional
	Logger    *slog.Logger
	Timeout   time.Duration

	now func() time.Time
}

// NewAnalyzer creates an analyzer with a fresh single-entry cache.
func NewAnalyzer(gen Generator, prompts *prompt.Registry, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		Generator: gen,
		Prompts:   prompts,
		Cache:     NewCache(),
		Logger:    logger,
		Timeout:   DefaultTimeout,
		now:       time.Now,
	}
}

// Analyze returns a narrative for proj. It never fails: any error from the
// model, its transport or its output is logged and replaced by Fallback().
func (a *Analyzer) Analyze(ctx context.Context, proj *projection.Projection) Result {
	params := proj.Parameters
	fp := params.Fingerprint()
	provider := a.providerName()

	if a.Cache != nil {
		if cached, ok := a.Cache.Lookup(params, provider); ok {
			cached.Source = SourceCache
			return cached
		}
	}

	n, err := a.generate(ctx, NewRequest(proj))
	if err != nil {
		a.logger().Warn("narrative generation failed, using fallback",
			"fingerprint", fp[:12],
			"provider", provider,
			"error", err)
		return a.result(Fallback(), SourceFallback, fp, "")
	}

	res := a.result(n, SourceModel, fp, provider)
	if a.Cache != nil {
		a.Cache.Store(params, provider, res)
	}
	return res
}

// providerName reports which provider the generator routes narrative calls to,
// or "" when it cannot tell.
func (a *Analyzer) providerName() string {
	r, ok := a.Generator.(providerResolver)
	if !ok {
		return ""
	}
	if _, name, err := r.GetProvider(AgentType); err == nil {
		return name
	}
	return ""
}

func (a *Analyzer) generate(ctx context.Context, req Request) (Narrative, error) {
	if a.Generator == nil {
		return Narrative{}, fmt.Errorf("NARRATIVE_NO_GENERATOR: no model configured")
	}

	pt := a.template()
	system, user, err := renderPrompt(pt, req)
	if err != nil {
		return Narrative{}, err
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := a.Generator.ExecutePrompt(ctx, AgentType, user, system, map[string]interface{}{
		llm.OptResponseFormat: map[string]interface{}{"type": "json_object"},
		llm.OptResponseSchema: ResponseSchema(),
	})
	if err != nil {
		return Narrative{}, fmt.Errorf("NARRATIVE_MODEL_ERROR: %w", err)
	}

	n, doc, err := decode(raw)
	if err != nil {
		return Narrative{}, err
	}
	if a.Prompts != nil {
		if schema, err := a.Prompts.SchemaFor(pt); err == nil {
			if err := schema.Validate(doc); err != nil {
				return Narrative{}, fmt.Errorf("NARRATIVE_SCHEMA_VIOLATION: %w", err)
			}
		}
	}
	return n, nil
}

// Parse decodes a model response leniently and checks that all three fields are present.
func Parse(raw string) (Narrative, error) {
	n, _, err := decode(raw)
	return n, err
}

// decode returns the narrative and the generic JSON document it was read from.
func decode(raw string) (Narrative, interface{}, error) {
	var n Narrative
	normalized, err := utils.SmartParse(raw, &n)
	if err != nil {
		return Narrative{}, nil, fmt.Errorf("NARRATIVE_PARSE_ERROR: %w", err)
	}
	if !n.Complete() {
		return Narrative{}, nil, fmt.Errorf("NARRATIVE_SCHEMA_VIOLATION: headline, insights and verdict are required")
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(normalized), &doc); err != nil {
		return Narrative{}, nil, fmt.Errorf("NARRATIVE_PARSE_ERROR: %w", err)
	}
	return n, doc, nil
}

// ResponseSchema is the structured-output schema for the three-field narrative.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"headline": {Type: genai.TypeString},
			"insights": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"verdict": {Type: genai.TypeString},
		},
		Required: []string{"headline", "insights", "verdict"},
	}
}

// template returns the registry prompt, or the built-in one when none is loaded.
func (a *Analyzer) template() *prompt.PromptTemplate {
	if a.Prompts != nil {
		if loaded, err := a.Prompts.GetPrompt(prompt.PromptIDs.NarrativeRevenueAnalysis); err == nil {
			return loaded
		}
	}
	return &prompt.PromptTemplate{
		ID:               prompt.PromptIDs.NarrativeRevenueAnalysis,
		SystemPrompt:     defaultSystemPrompt,
		UserPromptTmpl:   defaultUserTemplate,
		ResponseSchemaID: prompt.SchemaIDs.RevenueAnalysis,
	}
}

// renderPrompt returns the system and user prompts for req
func renderPrompt(pt *prompt.PromptTemplate, req Request) (string, string, error) {
	pctx := prompt.NewContext().
		Set("StartingCustomers", format.Quantity(req.StartingCustomers)).
		Set("MonthlyNewCustomers", format.Quantity(req.MonthlyNewCustomers)).
		Set("Price", format.Price(req.PricePerCustomer)).
		Set("ChurnRate", format.Percent(req.ChurnRatePercent)).
		Set("Months", req.Months).
		Set("FinalMRR", format.Currency(req.FinalMRR)).
		Set("TotalRevenue", format.Currency(req.TotalRevenue))

	user, err := prompt.RenderUserPrompt(pt, pctx)
	if err != nil {
		return "", "", fmt.Errorf("NARRATIVE_PROMPT_ERROR: %w", err)
	}
	return pt.SystemPrompt, user, nil
}

func (a *Analyzer) result(n Narrative, source, fp, provider string) Result {
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	return newResult(n, source, fp, provider, now())
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
