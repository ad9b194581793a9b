package projection

import (
	"encoding/json"
	"fmt"
	"math"
)

// Parameters defines the business drivers for a single simulation run
type Parameters struct {
	StartingCustomers   float64 `json:"starting_customers"`
	MonthlyNewCustomers float64 `json:"monthly_new_customers"`
	PricePerCustomer    float64 `json:"price_per_customer"` // Monthly subscription price (ARPU)
	ChurnRatePercent    float64 `json:"churn_rate_percent"` // % of the base lost per month
	Months              int     `json:"months"`             // Horizon, month 0 included
	OneTimeSalePrice    float64 `json:"one_time_sale_price"`
}

// MonthlySnapshot is one emitted row of the projection.
// Customer counts are rounded to 1 decimal, currency to whole units.
type MonthlySnapshot struct {
	Month                      int     `json:"month"`
	NewCustomers               float64 `json:"new_customers"`
	TotalCustomers             float64 `json:"total_customers"`
	ChurnedCustomers           float64 `json:"churned_customers"`
	MonthlyRecurringRevenue    float64 `json:"mrr"`
	CumulativeRecurringRevenue float64 `json:"cumulative_recurring_revenue"`
	CumulativeOneTimeRevenue   float64 `json:"cumulative_one_time_revenue"`
}

// LifetimeValue is a customer lifetime value that may be unbounded (zero churn)
type LifetimeValue struct {
	Value     float64
	Unbounded bool
}

// Float returns the value as a float64, +Inf when unbounded.
func (v LifetimeValue) Float() float64 {
	if v.Unbounded {
		return math.Inf(1)
	}
	return v.Value
}

func (v LifetimeValue) String() string {
	if v.Unbounded {
		return "infinite"
	}
	return fmt.Sprintf("%.2f", v.Value)
}

// MarshalJSON encodes an unbounded value as "infinite"; JSON has no Inf literal.
func (v LifetimeValue) MarshalJSON() ([]byte, error) {
	if v.Unbounded {
		return []byte(`"infinite"`), nil
	}
	return json.Marshal(v.Value)
}

func (v *LifetimeValue) UnmarshalJSON(data []byte) error {
	if string(data) == `"infinite"` {
		*v = LifetimeValue{Unbounded: true}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("lifetime value: %w", err)
	}
	*v = LifetimeValue{Value: f}
	return nil
}

// DerivedMetrics summarizes the final month of a projection
type DerivedMetrics struct {
	NextMonthRevenue      float64       `json:"next_month_revenue"`
	AnnualizedRevenue     float64       `json:"annualized_revenue"`
	TotalCustomersFinal   float64       `json:"total_customers_final"`
	TotalRevenueEarned    float64       `json:"total_revenue_earned"`
	CustomerLifetimeValue LifetimeValue `json:"customer_lifetime_value"`

	// One-time sale contrast
	OneTimeRevenueEarned float64 `json:"one_time_revenue_earned"`
	RecurringAdvantage   float64 `json:"recurring_advantage"`
}

// Projection bundles the inputs with the full monthly trajectory and its summary
type Projection struct {
	Parameters Parameters        `json:"parameters"`
	Snapshots  []MonthlySnapshot `json:"snapshots"`
	Metrics    DerivedMetrics    `json:"metrics"`
}

// Last returns the final snapshot of the projection.
func (p *Projection) Last() MonthlySnapshot {
	if len(p.Snapshots) == 0 {
		return MonthlySnapshot{}
	}
	return p.Snapshots[len(p.Snapshots)-1]
}
