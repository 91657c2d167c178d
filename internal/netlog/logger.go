// Package netlog provides the minimal logging contract the engine depends
// on, grounded in the retrieved transport library's controller.Logger:
// any value with a Printf method will do, so tests can swap in a NoOp
// implementation without pulling in a logging framework.
package netlog

import (
	"log"
	"os"
)

// Logger is satisfied by *log.Logger and by NoOp.
type Logger interface {
	Printf(format string, v ...interface{})
}

// NoOp discards every line. Used by tests that don't want transition noise
// on stderr.
type NoOp struct{}

func (NoOp) Printf(format string, v ...interface{}) {}

// New returns a *log.Logger writing to stderr with a "[<class><rank>] "
// style prefix applied by callers via their own format strings, matching
// the retrieved library's plain stdlib logger usage (no third-party
// logging framework appears anywhere in that library).
func New(prefix string) *log.Logger {
	return log.New(os.Stderr, prefix, log.LstdFlags)
}
