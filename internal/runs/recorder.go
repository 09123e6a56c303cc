// Package runs records publish invocations as provenance: one row per
// run with the target stream, totals, and terminal status.
package runs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiplog-io/shiplog/internal/logsource"
	"github.com/shiplog-io/shiplog/internal/model"
	"github.com/shiplog-io/shiplog/internal/publisher"
)

// Store persists run records. repository.RunRepository implements it.
type Store interface {
	Create(ctx context.Context, run *model.PublishRun) error
	Finish(ctx context.Context, run *model.PublishRun) error
}

// Recorder runs the publish pipeline and records the outcome. A nil
// store disables persistence; the run record is still returned so
// callers can report it.
type Recorder struct {
	pipeline *publisher.Pipeline
	store    Store
	log      zerolog.Logger
}

// NewRecorder wraps pipeline with provenance recording.
func NewRecorder(pipeline *publisher.Pipeline, store Store, log zerolog.Logger) *Recorder {
	return &Recorder{pipeline: pipeline, store: store, log: log}
}

// Publish runs one pipeline invocation and records its outcome. The
// returned run carries the publish error, if any, in its Error field;
// the error itself is also returned. Provenance failures are logged,
// not fatal: log shipping is a side effect of the job, and bookkeeping
// is a side effect of that.
func (r *Recorder) Publish(ctx context.Context, source logsource.LineSource, identity model.StreamIdentity, startTime time.Time, headerLines []string) (*model.PublishRun, error) {
	run := &model.PublishRun{
		LogGroup:  identity.Group,
		LogStream: identity.Stream,
		Status:    model.RunStatusRunning,
		StartedAt: startTime.UTC(),
	}
	if r.store != nil {
		if err := r.store.Create(ctx, run); err != nil {
			r.log.Warn().Err(err).Msg("could not record publish run start")
		}
	}

	stats, err := r.pipeline.Run(ctx, source, identity, startTime, headerLines)
	run.BatchesSent = stats.BatchesSent
	run.EventsSent = stats.EventsSent
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = model.RunStatusSucceeded
	}

	if r.store != nil {
		// Even a failed run gets its terminal record; use a fresh
		// context so a cancelled run is still bookkept.
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if ferr := r.store.Finish(finishCtx, run); ferr != nil {
			r.log.Warn().Err(ferr).Msg("could not record publish run outcome")
		}
	}
	return run, err
}
