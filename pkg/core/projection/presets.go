package projection

import (
	"fmt"
	"sort"
)

// Scenario is a named, ready-to-run parameter set
type Scenario struct {
	Name        string     `json:"name"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

var presets = map[string]Scenario{
	"default": {
		Name:        "default",
		Label:       "Getting Started",
		Description: "One customer, two new sign-ups a month at $20.",
		Parameters: Parameters{
			StartingCustomers:   1,
			MonthlyNewCustomers: 2,
			PricePerCustomer:    20,
			ChurnRatePercent:    3,
			Months:              24,
			OneTimeSalePrice:    150,
		},
	},
	"solo": {
		Name:        "solo",
		Label:       "Solo-preneur",
		Description: "A side project adding one $10 subscriber a month.",
		Parameters: Parameters{
			StartingCustomers:   1,
			MonthlyNewCustomers: 1,
			PricePerCustomer:    10,
			ChurnRatePercent:    2,
			Months:              24,
			OneTimeSalePrice:    50,
		},
	},
	"startup": {
		Name:        "startup",
		Label:       "Growth Startup",
		Description: "Fifty seed customers and fifteen new $99 accounts a month.",
		Parameters: Parameters{
			StartingCustomers:   50,
			MonthlyNewCustomers: 15,
			PricePerCustomer:    99,
			ChurnRatePercent:    5,
			Months:              24,
			OneTimeSalePrice:    500,
		},
	},
}

// DefaultParameters returns the parameters the simulator opens with.
func DefaultParameters() Parameters {
	return presets["default"].Parameters
}

// Preset looks up a scenario by name
func Preset(name string) (Scenario, error) {
	s, ok := presets[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
	return s, nil
}

// PresetNames returns the scenario names in sorted order
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scenarios returns every preset, sorted by name.
func Scenarios() []Scenario {
	out := make([]Scenario, 0, len(presets))
	for _, name := range PresetNames() {
		out = append(out, presets[name])
	}
	return out
}
