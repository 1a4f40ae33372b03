// Package history records check runs in a local sqlite database.
package history

import "time"

// SchemaVersion is the newest schema this build can read and write.
const SchemaVersion = 1

// Run is one invocation of the checker over a source: a declaration file or
// the command line.
type Run struct {
	ID           string
	Source       string
	StartedAt    time.Time
	Declarations int
	Failures     int
}

// Result is the outcome of one declaration within a run. Index is -1 on
// success.
type Result struct {
	RunID   string
	Line    int
	Kind    string
	Text    string
	Success bool
	Message string
	Index   int
}

// Summary aggregates a list of runs.
type Summary struct {
	Runs         int
	Declarations int
	Failures     int
	FailureRate  float64
}

// Summarize totals runs. FailureRate is a percentage of declarations.
func Summarize(runs []Run) Summary {
	var s Summary
	for _, r := range runs {
		s.Runs++
		s.Declarations += r.Declarations
		s.Failures += r.Failures
	}
	if s.Declarations > 0 {
		s.FailureRate = float64(s.Failures) * 100 / float64(s.Declarations)
	}
	return s
}
