package tool

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// HealthScheduler runs the registry's Rescan on a cron schedule, so manifest
// changes, newly-installed scripts, and remote server availability are
// picked up without an explicit CLI invocation.
type HealthScheduler struct {
	cron *cron.Cron
	reg  *Registry
	log  *slog.Logger
}

// NewHealthScheduler builds a scheduler that calls reg.Rescan on every
// expr firing (standard five-field cron syntax). It does not start the
// schedule; call Start.
func NewHealthScheduler(reg *Registry, expr string, log *slog.Logger) (*HealthScheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	c := cron.New()
	hs := &HealthScheduler{cron: c, reg: reg, log: log}
	_, err := c.AddFunc(expr, hs.runOnce)
	if err != nil {
		return nil, err
	}
	return hs, nil
}

func (hs *HealthScheduler) runOnce() {
	ctx := context.Background()
	if err := hs.reg.Rescan(ctx); err != nil {
		hs.log.Warn("tool registry rescan failed", "error", err)
	}
}

// Start begins the cron schedule in the background.
func (hs *HealthScheduler) Start() { hs.cron.Start() }

// Stop cancels pending runs and waits for any in-flight run to finish.
func (hs *HealthScheduler) Stop() { <-hs.cron.Stop().Done() }
