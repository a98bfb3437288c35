// Package watcher detects solver progress by polling the output artifact.
//
// The watcher and the solver share no memory; the output file's
// modification time is the only channel between them. The poll loop is
// deliberately tolerant of staleness: a missed update is caught on the
// next tick, and every iteration's errors are independent and non-fatal.
package watcher

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/compmat-es/scrunner/internal/metrics"
	"github.com/compmat-es/scrunner/internal/observability"
	"github.com/compmat-es/scrunner/pkg/status"
)

// Sender posts a status update. *status.Reporter satisfies it.
type Sender interface {
	Send(ctx context.Context, u status.Update) error
}

// Config parameterizes one watch loop.
type Config struct {
	// Path is the output artifact to poll.
	Path string

	// ProjectID identifies the job in status updates.
	ProjectID string

	// Interval is the poll period. Defaults to 10s when zero.
	Interval time.Duration
}

// Watcher polls an output artifact and reports modifications.
type Watcher struct {
	cfg      Config
	sender   Sender
	log      *zap.Logger
	lastSeen time.Time
}

// New creates a watcher. The last-seen modification time is captured at
// construction (zero when the artifact does not exist yet) so writes that
// predate the watch are not reported as progress.
func New(cfg Config, sender Sender) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}

	w := &Watcher{
		cfg:    cfg,
		sender: sender,
		log:    observability.Logger.Named("watcher"),
	}
	if info, err := os.Stat(cfg.Path); err == nil {
		w.lastSeen = info.ModTime()
	}
	return w
}

// Watch runs the poll loop until ctx is cancelled. It has no natural
// termination of its own; cancellation by the supervisor is the only
// exit. It always returns nil so a cancelled watch never surfaces as a
// job failure.
func (w *Watcher) Watch(ctx context.Context) error {
	t := time.NewTicker(w.cfg.Interval)
	defer t.Stop()

	w.log.Info("watching output artifact",
		zap.String("path", w.cfg.Path),
		zap.Duration("interval", w.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watch cancelled", zap.String("path", w.cfg.Path))
			return nil
		case <-t.C:
			w.poll(ctx)
		}
	}
}

// poll performs one liveness check. The file handle behind os.Stat is
// released before poll returns, so nothing is held across iterations.
func (w *Watcher) poll(ctx context.Context) {
	metrics.WatcherPolls.Inc()

	info, err := os.Stat(w.cfg.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.log.Warn("stat output artifact", zap.String("path", w.cfg.Path), zap.Error(err))
		}
		return
	}

	mod := info.ModTime()
	if !mod.After(w.lastSeen) {
		return
	}

	metrics.WatcherModifications.Inc()
	w.log.Info("output artifact modified",
		zap.String("path", w.cfg.Path),
		zap.String("project_id", w.cfg.ProjectID),
		zap.Time("mtime", mod))

	// Delivery is best-effort: the error is already logged and counted
	// by the sender, and the watch moves on either way. One modification
	// maps to at most one update attempt.
	_ = w.sender.Send(ctx, status.Update{ProjectID: w.cfg.ProjectID, Status: status.StatusRunning})
	w.lastSeen = mod
}

// LastSeen returns the most recently observed modification time.
func (w *Watcher) LastSeen() time.Time {
	return w.lastSeen
}
