package model

import "time"

// AnalysisSummary aggregates the headline counts of one analysis run.
type AnalysisSummary struct {
	TotalIssues      int       `yaml:"total_issues" json:"total_issues"`
	CriticalCount    int       `yaml:"critical_count" json:"critical_count"`
	SuggestionsCount int       `yaml:"suggestions_count" json:"suggestions_count"`
	Timestamp        time.Time `yaml:"timestamp" json:"timestamp"`
}

// AnalysisResult is the externally visible product of one orchestrator run.
// It is immutable once created; the external store appends it to history.
type AnalysisResult struct {
	Conflicts       []Conflict       `yaml:"conflicts" json:"conflicts"`
	Optimizations   []Suggestion     `yaml:"optimizations" json:"optimizations"`
	AutoCorrections []AutoCorrection `yaml:"auto_corrections" json:"auto_corrections"`
	Summary         AnalysisSummary  `yaml:"summary" json:"summary"`
}

// NewAnalysisResult assembles a result and derives its summary at the given
// timestamp.
func NewAnalysisResult(conflicts []Conflict, optimizations []Suggestion, corrections []AutoCorrection, at time.Time) AnalysisResult {
	critical := 0
	for _, c := range conflicts {
		if c.Severity == SeverityCritical {
			critical++
		}
	}
	return AnalysisResult{
		Conflicts:       conflicts,
		Optimizations:   optimizations,
		AutoCorrections: corrections,
		Summary: AnalysisSummary{
			TotalIssues:      len(conflicts),
			CriticalCount:    critical,
			SuggestionsCount: len(optimizations),
			Timestamp:        at,
		},
	}
}
