package domain

import "time"

// AnalysisFailure records a computation that was skipped without aborting
// the run.
type AnalysisFailure struct {
	Analysis string
	Subject  string
	Err      error
}

// Report is everything a run produced. It is assembled once and handed to
// the optional sinks.
type Report struct {
	GeneratedAt    time.Time
	Region         string
	Monthly        Table
	Annual         Table
	Climatology    Table
	Trends         []TrendResult
	Decompositions []DecompositionResult
	Correlations   []CorrelationResult
	Failures       []AnalysisFailure
	Outputs        []string
}
