package clean

import (
	"github.com/influxdata/pepclean"
)

// Summary aggregates the results of a run.
type Summary struct {
	Unchanged int
	Fixed     int
	Failed    int

	// BytesRemoved is the net number of bytes removed from fixed files.
	// Expanding TABs can make a file grow, so it may be negative.
	BytesRemoved int64
}

// Summarize aggregates results.
func Summarize(results []pepclean.Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case pepclean.StatusUnchanged:
			s.Unchanged++
		case pepclean.StatusFixed:
			s.Fixed++
			s.BytesRemoved += r.SizeBefore - r.SizeAfter
		case pepclean.StatusFailed:
			s.Failed++
		}
	}
	return s
}

// ExitCode returns the process exit code for the run.
func (s Summary) ExitCode() int {
	switch {
	case s.Failed > 0:
		return pepclean.ExitFailed
	case s.Fixed > 0:
		return pepclean.ExitFixed
	}
	return pepclean.ExitUnchanged
}
