// Package rebuild drives the offline half of the engine: periodic build
// cycles that turn the term store into fresh snapshots, and a file watcher
// that hot-loads snapshots produced out of process. A failed cycle never
// touches the active snapshot; serving always continues on the last known
// good build.
package rebuild

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/termserve/termserve/internal/metrics"
	"github.com/termserve/termserve/internal/utils"
	"github.com/termserve/termserve/pkg/config"
	"github.com/termserve/termserve/pkg/snapfile"
	"github.com/termserve/termserve/pkg/suggest"
	"github.com/termserve/termserve/pkg/termstore"
)

// Runner executes build cycles: term store in, installed snapshot out.
type Runner struct {
	builder  *suggest.Builder
	handle   *suggest.Handle
	m        *metrics.Metrics
	cfg      config.BuildConfig
	snapPath string
}

// NewRunner wires a runner onto the shared active-snapshot handle. Metrics
// may be nil.
func NewRunner(handle *suggest.Handle, cfg config.BuildConfig, snapPath string, m *metrics.Metrics) *Runner {
	builder := suggest.NewBuilder(suggest.BuildOptions{
		TopK:         cfg.TopK,
		MaxTermLen:   cfg.MaxTermLen,
		MaxErrorRate: cfg.MaxErrorRate,
	})
	return &Runner{builder: builder, handle: handle, m: m, cfg: cfg, snapPath: snapPath}
}

// Bootstrap installs the snapshot file from disk if one exists, so the
// process starts serving before the first build cycle finishes. Starting
// cold with no file is fine; queries report not-ready until a cycle lands.
// A corrupt bootstrap file is logged and skipped, never fatal.
func (r *Runner) Bootstrap() {
	if !utils.FileExists(r.snapPath) {
		log.Warnf("No bootstrap snapshot at %s, serving starts after the first build", r.snapPath)
		return
	}
	snap, err := snapfile.Read(r.snapPath)
	if err != nil {
		log.Errorf("Bootstrap snapshot unusable: %v", err)
		return
	}
	r.install(snap)
}

// RunOnce executes one full build cycle: read the term store, build, persist,
// read back, install. The read-back guarantees the active snapshot is exactly
// what a restart would load. Cancellation mid-cycle discards the build.
func (r *Runner) RunOnce(ctx context.Context) error {
	start := time.Now()
	err := r.cycle(ctx)
	if r.m != nil {
		r.m.BuildDuration.Observe(time.Since(start).Seconds())
		switch {
		case err == nil:
			r.m.BuildsTotal.WithLabelValues("ok").Inc()
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			r.m.BuildsTotal.WithLabelValues("cancelled").Inc()
		default:
			r.m.BuildsTotal.WithLabelValues("failed").Inc()
		}
	}
	return err
}

func (r *Runner) cycle(ctx context.Context) error {
	terms, err := termstore.ReadFile(r.cfg.TermsPath)
	if err != nil {
		return fmt.Errorf("build cycle: %w", err)
	}
	snap, err := r.builder.Build(ctx, terms)
	if err != nil {
		return fmt.Errorf("build cycle: %w", err)
	}
	if err := snapfile.Write(r.snapPath, snap); err != nil {
		return fmt.Errorf("build cycle: %w", err)
	}
	loaded, err := snapfile.Read(r.snapPath)
	if err != nil {
		return fmt.Errorf("build cycle: read-back: %w", err)
	}
	if err := ctx.Err(); err != nil {
		// Superseded while persisting; leave the previous snapshot active.
		return fmt.Errorf("build cycle discarded: %w", err)
	}
	r.install(loaded)
	return nil
}

// Run executes build cycles on the configured interval until ctx is
// cancelled. A zero or negative interval disables periodic rebuilds after
// the initial cycle. Cycle failures are logged and retried on the next tick.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Errorf("Initial build cycle failed: %v", err)
	}
	if r.cfg.IntervalSecs <= 0 {
		log.Debug("Periodic rebuilds disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(time.Duration(r.cfg.IntervalSecs) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Errorf("Build cycle failed, previous snapshot stays active: %v", err)
			}
		}
	}
}

func (r *Runner) install(snap *suggest.Snapshot) {
	r.handle.Install(snap)
	r.builder.SetBaseVersion(snap.Version())
	if r.m != nil {
		r.m.SnapshotInstallsTotal.Inc()
		r.m.ActiveSnapshotVersion.Set(float64(snap.Version()))
		r.m.ActiveTermCount.Set(float64(snap.TermCount()))
	}
	log.Infof("Installed snapshot version=%d terms=%d nodes=%d",
		snap.Version(), snap.TermCount(), snap.NodeCount())
}
