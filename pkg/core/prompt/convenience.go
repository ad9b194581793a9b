package prompt

// PromptIDs contains all known prompt identifiers
var PromptIDs = struct {
	NarrativeRevenueAnalysis string
}{
	NarrativeRevenueAnalysis: "narrative.revenue_analysis",
}

// SchemaIDs contains all known response schema identifiers
var SchemaIDs = struct {
	RevenueAnalysis string
}{
	RevenueAnalysis: "revenue_analysis",
}
