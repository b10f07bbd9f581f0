package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// DetectionSource supplies raw detection rows.
type DetectionSource interface {
	Name() string
	ReadRows(ctx context.Context) ([]domain.RawRow, error)
}

// RegionSource supplies region boundaries.
type RegionSource interface {
	ReadRegions(ctx context.Context) ([]domain.Region, error)
}

// SnapshotSink receives every successfully built snapshot.
type SnapshotSink interface {
	Name() string
	Publish(ctx context.Context, snap *domain.Snapshot) error
}

// Pipeline builds immutable snapshots (load, classify) and keeps the most
// recent one available to readers.
type Pipeline struct {
	detections DetectionSource
	regions    RegionSource
	sinks      []SnapshotSink
	logger     *slog.Logger
	metrics    *observability.Metrics
	workers    int
	clock      clockwork.Clock
	current    atomic.Pointer[domain.Snapshot]
}

// New creates a Pipeline. regions may be nil, in which case snapshots carry
// no region set and only date and grid aggregates are available.
func New(detections DetectionSource, regions RegionSource, logger *slog.Logger, metrics *observability.Metrics, workers int, sinks ...SnapshotSink) *Pipeline {
	return &Pipeline{
		detections: detections,
		regions:    regions,
		sinks:      sinks,
		logger:     logger,
		metrics:    metrics,
		workers:    workers,
		clock:      clockwork.NewRealClock(),
	}
}

// SetClock replaces the clock used for refresh scheduling and backoff.
func (p *Pipeline) SetClock(c clockwork.Clock) {
	p.clock = c
}

// Snapshot returns the current snapshot, or nil before the first
// successful refresh.
func (p *Pipeline) Snapshot() *domain.Snapshot {
	return p.current.Load()
}

// CheckReadiness returns nil once a snapshot has been built, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.current.Load() == nil {
		return errors.New("no detection snapshot built yet")
	}
	return nil
}

// Build reads both sources and produces a new snapshot without publishing
// it. Only a detection source failure or cancellation is returned as an
// error; region problems degrade the snapshot to one without regions.
func (p *Pipeline) Build(ctx context.Context) (*domain.Snapshot, error) {
	rows, err := p.detections.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}
	p.metrics.RowsRead.Add(float64(len(rows)))

	res := domain.LoadDetections(rows)
	for _, rej := range res.Rejected {
		p.logger.Debug("row rejected", "line", rej.Line, "field", rej.Field, "reason", rej.Reason, "error", rej.Error())
		p.metrics.RowsRejected.WithLabelValues(rej.Reason).Inc()
	}
	if len(res.Rejected) > 0 {
		p.logger.Warn("rows rejected by loader", "rejected", len(res.Rejected), "rows", len(rows))
	}

	regions := p.loadRegions(ctx)

	classified, err := domain.Classify(ctx, res.Detections, regions, p.workers)
	if err != nil {
		return nil, fmt.Errorf("classify detections: %w", err)
	}

	return domain.NewSnapshot(p.detections.Name(), len(rows), classified, res.Rejected, regions), nil
}

func (p *Pipeline) loadRegions(ctx context.Context) *domain.RegionSet {
	if p.regions == nil {
		p.logger.Info("no region source configured, region aggregates disabled")
		return nil
	}
	regions, err := p.regions.ReadRegions(ctx)
	if err != nil {
		p.logger.Warn("region source failed, building snapshot without regions", "error", err)
		return nil
	}
	if len(regions) == 0 {
		p.logger.Warn("region source returned no regions")
		return nil
	}
	set, err := domain.NewRegionSet(regions)
	if err != nil {
		p.logger.Warn("invalid region set, building snapshot without regions", "error", err)
		return nil
	}
	return set
}

// Refresh builds a new snapshot and atomically replaces the current one.
// On failure the previous snapshot stays in place. A successful snapshot is
// handed to every sink; sink failures are logged but not returned.
func (p *Pipeline) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	start := p.clock.Now()

	snap, err := p.Build(ctx)
	if err != nil {
		p.metrics.SnapshotRefreshes.WithLabelValues("error").Inc()
		return nil, err
	}

	p.current.Store(snap)
	p.metrics.SnapshotBuildDuration.Observe(p.clock.Since(start).Seconds())
	p.metrics.SnapshotRefreshes.WithLabelValues("success").Inc()
	p.metrics.PipelineReady.Set(1)
	p.metrics.DetectionsLoaded.Set(float64(snap.DetectionCount()))
	p.metrics.DetectionsUnassigned.Set(float64(snap.UnclassifiedCount()))
	p.metrics.RegionsLoaded.Set(float64(snap.Regions().Len()))

	p.logger.Info("snapshot built",
		"source", snap.Source(),
		"rows", snap.RowsRead(),
		"detections", snap.DetectionCount(),
		"rejected", snap.RejectedCount(),
		"regions", snap.Regions().Len(),
	)

	p.publish(ctx, snap)
	return snap, nil
}

func (p *Pipeline) publish(ctx context.Context, snap *domain.Snapshot) {
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			p.logger.Error("snapshot publish failed", "sink", sink.Name(), "error", err)
			p.metrics.SinkPublishes.WithLabelValues(sink.Name(), "error").Inc()
			continue
		}
		p.metrics.SinkPublishes.WithLabelValues(sink.Name(), "success").Inc()
	}
}

// Run performs an initial refresh and then refreshes every interval until
// the context is cancelled. An interval of zero disables periodic refresh.
// Failed refreshes are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("pipeline started", "source", p.detections.Name(), "refresh_interval", interval.String())

	if !p.refreshWithRetry(ctx) {
		p.logger.Info("pipeline stopping", "reason", ctx.Err())
		return nil
	}

	if interval <= 0 {
		<-ctx.Done()
		p.logger.Info("pipeline stopping", "reason", ctx.Err())
		return nil
	}

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			if !p.refreshWithRetry(ctx) {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
		}
	}
}

// refreshWithRetry refreshes until one attempt succeeds. Returns false if
// the context was cancelled first.
func (p *Pipeline) refreshWithRetry(ctx context.Context) bool {
	backoff := initialBackoff
	for {
		_, err := p.Refresh(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("snapshot refresh failed", "error", err, "retry_in", backoff.String())
		if !p.sleepWithContext(ctx, backoff) {
			return false
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (p *Pipeline) sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
