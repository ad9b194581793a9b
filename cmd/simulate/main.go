package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"saas_stack/internal/config"
	"saas_stack/internal/logging"
	"saas_stack/pkg/core/agent"
	"saas_stack/pkg/core/format"
	"saas_stack/pkg/core/narrative"
	"saas_stack/pkg/core/projection"
	"saas_stack/pkg/core/prompt"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, "text")

	if err := run(os.Args[1:], os.Stdout, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type output struct {
	*projection.Projection
	Analysis *narrative.Result `json:"analysis,omitempty"`
}

func run(args []string, stdout io.Writer, cfg config.Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(stdout)

	preset := fs.String("preset", "default", "scenario preset: "+strings.Join(projection.PresetNames(), ", "))
	starting := fs.Float64("starting", -1, "starting customers (overrides preset)")
	newPerMonth := fs.Float64("new", -1, "new customers per month (overrides preset)")
	price := fs.Float64("price", -1, "monthly price per customer (overrides preset)")
	churn := fs.Float64("churn", -1, "monthly churn rate in percent (overrides preset)")
	months := fs.Int("months", -1, "horizon in months (overrides preset)")
	oneTime := fs.Float64("one-time", -1, "one-time sale price (overrides preset)")
	analyze := fs.Bool("analyze", false, "request an AI narrative")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	scenario, err := projection.Preset(*preset)
	if err != nil {
		return err
	}
	params := scenario.Parameters

	// Only flags the user actually set override the preset
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "starting":
			params.StartingCustomers = *starting
		case "new":
			params.MonthlyNewCustomers = *newPerMonth
		case "price":
			params.PricePerCustomer = *price
		case "churn":
			params.ChurnRatePercent = *churn
		case "months":
			params.Months = *months
		case "one-time":
			params.OneTimeSalePrice = *oneTime
		}
	})

	proj, err := projection.Run(params)
	if err != nil {
		return err
	}

	var analysis *narrative.Result
	if *analyze {
		if _, err := prompt.LoadFromDirectory(cfg.ResourcesDir); err != nil {
			logger.Warn("prompt library not loaded, using built-in prompt", "error", err)
		}
		agentCfg, err := agent.LoadConfig(cfg.ModelsConfig)
		if err != nil {
			logger.Warn("model config not loaded, using defaults", "error", err)
		}
		a := narrative.NewAnalyzer(agent.NewManager(agentCfg, logger), prompt.Get(), logger)
		a.Timeout = cfg.AnalysisTimeout
		res := a.Analyze(context.Background(), proj)
		analysis = &res
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(output{Projection: proj, Analysis: analysis})
	}

	printTable(stdout, proj)
	if analysis != nil {
		printNarrative(stdout, analysis.Narrative)
	}
	return nil
}

func printTable(w io.Writer, proj *projection.Projection) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tNew\tCustomers\tChurned\tMRR\tRecurring\tOne-time\t")
	for _, s := range proj.Snapshots {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.Month,
			format.Count(s.NewCustomers),
			format.Count(s.TotalCustomers),
			format.Count(s.ChurnedCustomers),
			format.Currency(s.MonthlyRecurringRevenue),
			format.Currency(s.CumulativeRecurringRevenue),
			format.Currency(s.CumulativeOneTimeRevenue))
	}
	tw.Flush()

	m := proj.Metrics
	ltv := format.Currency(m.CustomerLifetimeValue.Value)
	if m.CustomerLifetimeValue.Unbounded {
		ltv = "∞"
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Next month revenue:  %s\n", format.Currency(m.NextMonthRevenue))
	fmt.Fprintf(w, "Annualized revenue:  %s\n", format.Currency(m.AnnualizedRevenue))
	fmt.Fprintf(w, "Customers:           %s\n", format.Count(m.TotalCustomersFinal))
	fmt.Fprintf(w, "Recurring revenue:   %s\n", format.Currency(m.TotalRevenueEarned))
	fmt.Fprintf(w, "One-time revenue:    %s\n", format.Currency(m.OneTimeRevenueEarned))
	fmt.Fprintf(w, "Lifetime value:      %s\n", ltv)
}

func printNarrative(w io.Writer, n narrative.Narrative) {
	fmt.Fprintf(w, "\n%s\n", n.Headline)
	for _, insight := range n.Insights {
		fmt.Fprintf(w, "  - %s\n", insight)
	}
	fmt.Fprintf(w, "Verdict: %s\n", n.Verdict)
}
