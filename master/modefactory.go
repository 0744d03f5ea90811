package master

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/syncmaster/ring"
	"github.com/unixpickle/syncmaster/sizer"
)

// NewModeForConfig builds the Mode named by c.Config.Mode, wiring whatever
// mode-specific collaborator it needs onto c before returning. Call this
// before Core.Connect so that Ring/Sizer are sized from c.Config.NW rather
// than the (still empty) worker map. FSP's Interval estimator is instead
// constructed lazily inside FSP.Init, since it needs nothing beyond Core.
func NewModeForConfig(c *Core) (Mode, error) {
	switch c.Config.Mode {
	case ModeBSP:
		return BSP{}, nil
	case ModeTAP:
		return TAP{}, nil
	case ModeSSP:
		return SSP{}, nil
	case ModeSAP:
		return SAP{}, nil
	case ModeFSP:
		return FSP{}, nil
	case ModeAAP:
		c.Ring = ring.NewWorkerRing(c.Config.NW, 8)
		return AAP{}, nil
	case ModePAP:
		c.Sizer = sizer.New(c.Config.NW, c.Config.BatchSize, c.Config.ReportSize)
		return NewPAP(), nil
	default:
		return nil, errors.Errorf("master: unknown mode %q", c.Config.Mode)
	}
}
