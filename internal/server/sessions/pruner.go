package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/logging"
)

type pruneFunc func(ctx context.Context) error

// Pruner periodically removes expired sessions. A failing or panicking
// round is logged and the next tick runs as usual.
type Pruner struct {
	prune    pruneFunc
	interval time.Duration
	logger   logging.Logger
}

func NewPruner(r *Registry, interval time.Duration, logger logging.Logger) *Pruner {
	return &Pruner{prune: r.Prune, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (p *Pruner) Run(ctx context.Context) {
	if p.interval <= 0 {
		p.logger.Warn(ctx, "session pruning disabled")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Pruner) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(ctx, "recovered panic in session pruner", "panic", r)
		}
	}()

	if err := p.prune(ctx); err != nil {
		p.logger.Error(ctx, "session prune failed", "error", err)
	}
}
