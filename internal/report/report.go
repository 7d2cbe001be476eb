// Package report collects per-path warnings and node outcomes for a build
// pass and derives the overall exit category.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomePartial  BuildOutcome = "partial"
	OutcomeFatal    BuildOutcome = "fatal"
	OutcomeCanceled BuildOutcome = "canceled"
)

// Exit codes mirror the CLI contract: cycles always abort with 1; a build
// that completed but left failed nodes exits 2.
const (
	ExitOK           = 0
	ExitCycle        = 1
	ExitNodeFailures = 2
)

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one reported problem, attributed to a path where possible.
type Issue struct {
	Path     string
	Severity IssueSeverity
	Message  string
}

// BuildReport captures the result of one build pass.
type BuildReport struct {
	BuildID string
	Start   time.Time
	End     time.Time

	Scanned  int
	Rendered int
	Clean    int
	Failed   int
	Poisoned int

	Issues []Issue

	CycleErr error
	Canceled bool
}

// New creates a report for a build pass.
func New(buildID string) *BuildReport {
	return &BuildReport{BuildID: buildID, Start: time.Now()}
}

// AddWarning records a non-fatal issue for path.
func (r *BuildReport) AddWarning(path, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Path: path, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)})
}

// AddError records a per-path error. Per-path errors never abort the build;
// they surface in the summary and the exit code.
func (r *BuildReport) AddError(path, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Path: path, Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
}

// Finish stamps the end time.
func (r *BuildReport) Finish() {
	r.End = time.Now()
}

// Outcome derives the overall result.
func (r *BuildReport) Outcome() BuildOutcome {
	switch {
	case r.CycleErr != nil:
		return OutcomeFatal
	case r.Canceled:
		return OutcomeCanceled
	case r.Failed > 0 || r.Poisoned > 0:
		return OutcomePartial
	case len(r.Issues) > 0:
		return OutcomeWarning
	default:
		return OutcomeSuccess
	}
}

// ExitCode maps the outcome to the process exit code.
func (r *BuildReport) ExitCode() int {
	switch {
	case r.CycleErr != nil:
		return ExitCycle
	case r.Failed > 0 || r.Poisoned > 0:
		return ExitNodeFailures
	default:
		return ExitOK
	}
}

// WriteSummary prints the end-of-build summary: issues grouped by path, then
// outcome counts. Every build ends with this, regardless of outcome.
func (r *BuildReport) WriteSummary(w io.Writer) {
	issues := make([]Issue, len(r.Issues))
	copy(issues, r.Issues)
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })

	for _, issue := range issues {
		path := issue.Path
		if path == "" {
			path = "(build)"
		}
		fmt.Fprintf(w, "%s: %s: %s\n", issue.Severity, path, issue.Message)
	}

	if r.CycleErr != nil {
		fmt.Fprintf(w, "fatal: %v\n", r.CycleErr)
	}

	fmt.Fprintf(w, "build %s: %s (%d scanned, %d rendered, %d clean, %d failed, %d failed-dependency) in %s\n",
		r.BuildID, r.Outcome(), r.Scanned, r.Rendered, r.Clean, r.Failed, r.Poisoned,
		r.End.Sub(r.Start).Round(time.Millisecond))
}
