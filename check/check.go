// Package check implements the whitespace checks run against every file.
//
// Each check pairs a read-only detector with a fixer. Detectors share one
// read handle per file and never write; fixers either replace the file
// through a temporary copy (LineCheck) or truncate it in place (TailCheck).
package check

import (
	"github.com/influxdata/pepclean"
	"go.uber.org/zap"
)

var (
	_ pepclean.Check = LineCheck{}
	_ pepclean.Check = TailCheck{}
)

// Registry returns the checks in the order their fixers must run. Trailing
// line breaks can only be collapsed once every line ends in a bare line
// break, so LineCheck comes first.
func Registry(log *zap.Logger) []pepclean.Check {
	return []pepclean.Check{
		LineCheck{Logger: log},
		TailCheck{Logger: log},
	}
}

// nameOf returns the file name of f when it has one.
func nameOf(f interface{}) string {
	if n, ok := f.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}
