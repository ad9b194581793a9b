// Package narrative asks a text-generation model to explain a projection.
// Every failure degrades to a fixed fallback narrative; callers never see an error.
package narrative

import (
	"time"

	"saas_stack/pkg/core/projection"

	"github.com/google/uuid"
)

// Source values for Result.Source
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
	SourceCache    = "cache"
)

// Request is the numeric summary sent to the model
type Request struct {
	StartingCustomers   float64 `json:"starting_customers"`
	MonthlyNewCustomers float64 `json:"monthly_new_customers"`
	PricePerCustomer    float64 `json:"price_per_customer"`
	ChurnRatePercent    float64 `json:"churn_rate_percent"`
	Months              int     `json:"months"`
	FinalMRR            float64 `json:"final_mrr"`
	TotalRevenue        float64 `json:"total_revenue"`
}

// NewRequest builds the model request from a finished projection.
func NewRequest(p *projection.Projection) Request {
	return Request{
		StartingCustomers:   p.Parameters.StartingCustomers,
		MonthlyNewCustomers: p.Parameters.MonthlyNewCustomers,
		PricePerCustomer:    p.Parameters.PricePerCustomer,
		ChurnRatePercent:    p.Parameters.ChurnRatePercent,
		Months:              p.Parameters.Months,
		FinalMRR:            p.Metrics.NextMonthRevenue,
		TotalRevenue:        p.Metrics.TotalRevenueEarned,
	}
}

// Narrative is the three-field explanation returned by the model
type Narrative struct {
	Headline string   `json:"headline"`
	Insights []string `json:"insights"`
	Verdict  string   `json:"verdict"`
}

// Complete reports whether every field carries content.
func (n Narrative) Complete() bool {
	if n.Headline == "" || n.Verdict == "" || len(n.Insights) == 0 {
		return false
	}
	for _, s := range n.Insights {
		if s == "" {
			return false
		}
	}
	return true
}

// Fallback returns the fixed narrative used whenever the model is unavailable.
func Fallback() Narrative {
	return Narrative{
		Headline: "The Power of Compound Growth",
		Insights: []string{
			"Recurring revenue creates a stable baseline that builds month over month.",
			"Even small churn rates can significantly impact long-term scalability.",
			"New customer acquisition is the engine, but retention is the fuel tank.",
		},
		Verdict: "A subscription model transforms a treadmill business into an escalator.",
	}
}

// Result is a narrative tied to the exact parameter tuple that produced it
type Result struct {
	ID          string    `json:"id"`
	Narrative   Narrative `json:"narrative"`
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	Provider    string    `json:"provider,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// FallbackResult wraps Fallback() for the parameter tuple p.
func FallbackResult(p projection.Parameters) Result {
	return newResult(Fallback(), SourceFallback, p.Fingerprint(), "", time.Now())
}

func newResult(n Narrative, source, fp, provider string, at time.Time) Result {
	return Result{
		ID:          uuid.NewString(),
		Narrative:   n,
		Source:      source,
		Fingerprint: fp,
		Provider:    provider,
		GeneratedAt: at.UTC(),
	}
}
