package projection

import (
	"errors"
	"math"
)

// ErrEmptyProjection is returned when metrics are derived from no snapshots.
var ErrEmptyProjection = errors.New("projection has no snapshots")

// Run validates the parameters, projects every month and derives the summary.
func Run(p Parameters) (*Projection, error) {
	snaps, err := Project(p)
	if err != nil {
		return nil, err
	}
	metrics, err := Derive(p, snaps)
	if err != nil {
		return nil, err
	}
	return &Projection{
		Parameters: p,
		Snapshots:  snaps,
		Metrics:    metrics,
	}, nil
}

// Project simulates months 0..p.Months inclusive.
// Month 0 is the initial state; revenue for month m is billed against the
// customer base carried into month m, before churn and growth are applied.
// Only the emitted fields are rounded, the carried state stays exact.
func Project(p Parameters) ([]MonthlySnapshot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	churn := p.ChurnRatePercent / 100
	current := p.StartingCustomers
	cumRecurring := 0.0
	cumOneTime := 0.0

	snaps := make([]MonthlySnapshot, 0, p.Months+1)
	for m := 0; m <= p.Months; m++ {
		mrr := current * p.PricePerCustomer

		// Month 0 counts the starting base as a sale for the one-time comparison
		acquired := p.MonthlyNewCustomers
		if m == 0 {
			acquired = p.StartingCustomers
		}
		cumOneTime += acquired * p.OneTimeSalePrice

		snaps = append(snaps, MonthlySnapshot{
			Month:                      m,
			NewCustomers:               acquired,
			TotalCustomers:             round1(current),
			ChurnedCustomers:           round1(current * churn),
			MonthlyRecurringRevenue:    round0(mrr),
			CumulativeRecurringRevenue: round0(cumRecurring + mrr),
			CumulativeOneTimeRevenue:   round0(cumOneTime),
		})

		cumRecurring += mrr
		lost := current * churn
		// Growth always uses MonthlyNewCustomers, including the 0 -> 1 transition
		current = math.Max(0, current-lost+p.MonthlyNewCustomers)
	}
	return snaps, nil
}

// Derive computes the summary metrics from the last snapshot and the parameters.
func Derive(p Parameters, snaps []MonthlySnapshot) (DerivedMetrics, error) {
	if len(snaps) == 0 {
		return DerivedMetrics{}, ErrEmptyProjection
	}
	last := snaps[len(snaps)-1]

	ltv := LifetimeValue{Unbounded: true}
	if p.ChurnRatePercent > 0 {
		ltv = LifetimeValue{Value: p.PricePerCustomer / (p.ChurnRatePercent / 100)}
	}

	return DerivedMetrics{
		NextMonthRevenue:      last.MonthlyRecurringRevenue,
		AnnualizedRevenue:     last.MonthlyRecurringRevenue * 12,
		TotalCustomersFinal:   last.TotalCustomers,
		TotalRevenueEarned:    last.CumulativeRecurringRevenue,
		CustomerLifetimeValue: ltv,
		OneTimeRevenueEarned:  last.CumulativeOneTimeRevenue,
		RecurringAdvantage:    last.CumulativeRecurringRevenue - last.CumulativeOneTimeRevenue,
	}, nil
}

// round1 rounds half away from zero to one decimal place
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round0(v float64) float64 {
	return math.Round(v)
}
