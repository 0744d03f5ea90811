package master

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrFatal is a generic fatal-error sentinel. Orchestrator.Run does not
// return it: after a Core.Fatal call it returns the recorded error itself
// (see FatalErr).
var ErrFatal = errors.New("master: fatal error, see log")

// Fatal logs err via klog at error severity and marks the run as doomed.
// Callers on a handler goroutine should return immediately afterward;
// Orchestrator.Run polls Core.FatalErr() between phases and after the
// mode loop exits.
func (c *Core) Fatal(err error) {
	c.mOrch.Lock()
	if c.fatalErr == nil {
		c.fatalErr = err
	}
	c.mOrch.Unlock()
	klog.Errorf("fatal: %v", err)
}

// Fatalf is a convenience wrapper around Fatal(errors.Errorf(...)).
func (c *Core) Fatalf(format string, args ...interface{}) {
	c.Fatal(errors.Errorf(format, args...))
}

// FatalErr returns the first error passed to Fatal, or nil.
func (c *Core) FatalErr() error {
	c.mOrch.Lock()
	defer c.mOrch.Unlock()
	return c.fatalErr
}
