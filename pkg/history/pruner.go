// Package history enforces the retention policy of the canvas audit log.
//
// History rows are append-only and, with the default policy, kept forever.
// When a policy is configured the [Pruner] deletes expired rows, optionally
// writing them to a CBOR archive file first.
package history

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/appcanvas/appcanvas/pkg/config"
	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/store"
)

// Policy describes which history rows may be deleted. Zero fields disable
// the respective rule.
type Policy struct {
	// MaxAge prunes rows older than this.
	MaxAge time.Duration
	// KeepPerCanvas prunes all but the newest KeepPerCanvas rows of a canvas.
	KeepPerCanvas int
}

// PolicyFromConfig builds the policy of the history config section.
func PolicyFromConfig(h config.HistoryConfig) Policy {
	return Policy{MaxAge: h.RetainFor(), KeepPerCanvas: h.KeepPerCanvas}
}

// IsZero reports whether the policy keeps everything.
func (p Policy) IsZero() bool {
	return p.MaxAge <= 0 && p.KeepPerCanvas <= 0
}

func (p Policy) storePolicy(now time.Time) store.PrunePolicy {
	sp := store.PrunePolicy{KeepPerCanvas: p.KeepPerCanvas}
	if p.MaxAge > 0 {
		sp.Before = now.Add(-p.MaxAge)
	}
	return sp
}

// Result reports one pruning pass.
type Result struct {
	Pruned  int
	Archive string
}

// Pruner applies a Policy to a store.
type Pruner struct {
	store      store.Store
	policy     Policy
	archiveDir string
	logger     zerolog.Logger
	now        func() time.Time
}

// NewPruner returns a Pruner. An empty archiveDir deletes without archiving.
func NewPruner(s store.Store, policy Policy, archiveDir string, log zerolog.Logger) *Pruner {
	return &Pruner{
		store:      s,
		policy:     policy,
		archiveDir: archiveDir,
		logger:     log.With().Str("component", "history").Logger(),
		now:        time.Now,
	}
}

// Prune runs one pass.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	var res Result
	if p.policy.IsZero() {
		return res, nil
	}
	now := p.now()

	var archive store.ArchiveFunc
	if p.archiveDir != "" {
		archive = func(_ context.Context, rows []*models.CanvasHistory) error {
			path, err := writeArchive(p.archiveDir, newArchive(rows, now))
			if err != nil {
				return err
			}
			res.Archive = path
			return nil
		}
	}

	n, err := p.store.PruneHistory(ctx, p.policy.storePolicy(now), archive)
	if err != nil {
		return Result{}, err
	}
	res.Pruned = n
	if n > 0 {
		p.logger.Info().Int("pruned", n).Str("archive", res.Archive).Msg("History pruned")
	}
	return res, nil
}

// Run prunes every interval until ctx is done. Failures are logged and the
// next tick tries again.
func (p *Pruner) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || p.policy.IsZero() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Prune(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn().Err(err).Msg("History prune failed")
			}
		}
	}
}
