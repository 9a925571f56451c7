// Package pepclean defines the domain types shared by the whitespace checks,
// the per-file orchestrator and the command line tool.
package pepclean

import (
	"io"
)

// LineBreak is the canonical line terminator.
const LineBreak = '\n'

// Verdict is the outcome of running a detector against a file.
type Verdict int

const (
	// NoIssue means the file satisfies the rule.
	NoIssue Verdict = iota
	// HasIssue means the file violates the rule and the fixer must run.
	HasIssue
	// DetectionFailed means the file could not be examined. It is always
	// accompanied by a non-nil error.
	DetectionFailed
)

// String returns the lowercase name of the verdict.
func (v Verdict) String() string {
	switch v {
	case NoIssue:
		return "no-issue"
	case HasIssue:
		return "has-issue"
	case DetectionFailed:
		return "detection-failed"
	}
	return "unknown"
}

// Check pairs a read-only detector with the fixer that repairs what the
// detector reports.
//
// Detect receives a handle opened for reading and is responsible for seeking
// to wherever it needs to start; it may leave the offset anywhere. Fix only
// receives the path, since it either replaces or truncates the file.
type Check interface {
	Name() string
	Detect(f io.ReadSeeker) (Verdict, error)
	Fix(path string) error
}

// Status is the per-file result of a run.
type Status int

const (
	// StatusUnchanged means every detector reported NoIssue.
	StatusUnchanged Status = iota
	// StatusFixed means at least one fixer ran successfully. In dry run
	// mode it means the file needs fixing.
	StatusFixed
	// StatusFailed means a detector or a fixer returned an error.
	StatusFailed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusFixed:
		return "fixed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result describes what happened to a single path.
type Result struct {
	Path   string
	Status Status
	// Fixed lists the names of the checks whose detector fired, in
	// registry order.
	Fixed []string
	Err   error

	SizeBefore int64
	SizeAfter  int64
}

// Process exit codes. Both non-zero codes abort a pre-commit hook.
const (
	ExitUnchanged = 0
	ExitFailed    = 1
	ExitFixed     = 2
)

// ExitCode maps a batch of results onto a process exit code. A failure
// anywhere in the batch wins over files that were fixed.
func ExitCode(results []Result) int {
	code := ExitUnchanged
	for _, r := range results {
		switch r.Status {
		case StatusFailed:
			return ExitFailed
		case StatusFixed:
			code = ExitFixed
		}
	}
	return code
}
