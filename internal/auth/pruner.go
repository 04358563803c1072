package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/task-manager/internal/metrics"
)

// Pruner periodically deletes expired sessions. Expired sessions are
// already rejected by VerifySession; pruning only reclaims storage.
type Pruner struct {
	sessions *SessionStore
	interval time.Duration
	metrics  *metrics.Auth
	log      *slog.Logger
}

// NewPruner returns a pruner running every interval. A nil logger discards.
func NewPruner(sessions *SessionStore, interval time.Duration, m *metrics.Auth, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pruner{sessions: sessions, interval: interval, metrics: m, log: log}
}

// PruneOnce runs a single pass and returns how much was removed.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	n, err := p.sessions.PruneExpired(ctx)
	if err != nil {
		return 0, err
	}
	p.metrics.Pruned(n)
	return n, nil
}

// Run prunes on every tick until ctx is done. Failed passes are logged and
// retried on the next tick.
func (p *Pruner) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := p.PruneOnce(ctx)
			if err != nil {
				p.log.WarnContext(ctx, "session prune failed", "error", err)
				continue
			}
			if n > 0 {
				p.log.InfoContext(ctx, "pruned expired sessions", "removed", n)
			}
		}
	}
}
