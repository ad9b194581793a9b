// Package report renders a projection and its narrative as Markdown or HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"saas_stack/pkg/core/format"
	"saas_stack/pkg/core/narrative"
	"saas_stack/pkg/core/projection"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders the report. n may be nil when no narrative was requested.
func Markdown(proj *projection.Projection, n *narrative.Narrative) string {
	var b strings.Builder
	p := proj.Parameters
	m := proj.Metrics

	b.WriteString("# Recurring Revenue Simulation\n\n")

	b.WriteString("## Parameters\n\n")
	fmt.Fprintf(&b, "- Starting customers: %s\n", format.Quantity(p.StartingCustomers))
	fmt.Fprintf(&b, "- New customers / month: %s\n", format.Quantity(p.MonthlyNewCustomers))
	fmt.Fprintf(&b, "- Monthly price: %s\n", format.Price(p.PricePerCustomer))
	fmt.Fprintf(&b, "- Churn rate: %s\n", format.Percent(p.ChurnRatePercent))
	fmt.Fprintf(&b, "- Horizon: %d months\n", p.Months)
	fmt.Fprintf(&b, "- One-time sale price: %s\n\n", format.Price(p.OneTimeSalePrice))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Next month revenue | %s |\n", format.Currency(m.NextMonthRevenue))
	fmt.Fprintf(&b, "| Annualized revenue | %s |\n", format.Currency(m.AnnualizedRevenue))
	fmt.Fprintf(&b, "| Customers | %s |\n", format.Count(m.TotalCustomersFinal))
	fmt.Fprintf(&b, "| Total recurring revenue | %s |\n", format.Currency(m.TotalRevenueEarned))
	fmt.Fprintf(&b, "| Total one-time revenue | %s |\n", format.Currency(m.OneTimeRevenueEarned))
	fmt.Fprintf(&b, "| Customer lifetime value | %s |\n\n", lifetimeValue(m.CustomerLifetimeValue))

	if n != nil {
		fmt.Fprintf(&b, "## %s\n\n", escape(n.Headline))
		for _, insight := range n.Insights {
			fmt.Fprintf(&b, "- %s\n", escape(insight))
		}
		fmt.Fprintf(&b, "\n> %s\n\n", escape(n.Verdict))
	}

	b.WriteString("## Monthly Trajectory\n\n")
	b.WriteString("| Month | New | Customers | Churned | MRR | Recurring (cum.) | One-time (cum.) |\n")
	b.WriteString("|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range proj.Snapshots {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s |\n",
			s.Month,
			format.Count(s.NewCustomers),
			format.Count(s.TotalCustomers),
			format.Count(s.ChurnedCustomers),
			format.Currency(s.MonthlyRecurringRevenue),
			format.Currency(s.CumulativeRecurringRevenue),
			format.Currency(s.CumulativeOneTimeRevenue),
		)
	}
	return b.String()
}

// HTML renders the Markdown report to an HTML fragment.
func HTML(proj *projection.Projection, n *narrative.Narrative) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(proj, n)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func lifetimeValue(v projection.LifetimeValue) string {
	if v.Unbounded {
		return "∞ (no churn)"
	}
	return format.Currency(v.Value)
}

// escape keeps model text from breaking table or heading syntax
func escape(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
