// Package extract runs the per-file extraction pipeline: open the container,
// load what the requested outputs need, dump each output to a temporary file
// and publish it under its final name.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"camextract/internal/config"
	"camextract/internal/container"
	"camextract/internal/logging"
	"camextract/internal/paths"
)

// Driver processes input files one at a time with a fixed configuration.
type Driver struct {
	backend  container.Backend
	cfg      config.Config
	requests []Request
	stdout   io.Writer
	updates  chan<- ProgressUpdate
}

// NewDriver prepares a driver. Progress lines go to stdout; updates may be
// nil.
func NewDriver(backend container.Backend, cfg config.Config, stdout io.Writer, updates chan<- ProgressUpdate) *Driver {
	if stdout == nil {
		stdout = io.Discard
	}
	return &Driver{
		backend:  backend,
		cfg:      cfg,
		requests: Plan(cfg),
		stdout:   stdout,
		updates:  updates,
	}
}

// Run processes files in order. A failing file never stops the batch; the
// returned error is only set when ctx is cancelled between files.
func (d *Driver) Run(ctx context.Context, files []string) (Summary, error) {
	agg := NewAggregator(d.updates)
	if d.updates != nil {
		d.updates <- ProgressUpdate{TotalDelta: len(files)}
	}

	d.backend.SetGPUAcceleration(d.cfg.OpenCL)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return agg.Summary(), err
		}
		agg.Record(d.processFile(ctx, path))
	}
	return agg.Summary(), nil
}

func (d *Driver) processFile(ctx context.Context, path string) FileResult {
	logger := logging.FromContext(ctx).With("file", path)
	job := &Job{Path: path}
	res := FileResult{Path: path}

	defer func() {
		job.advance(logger, StateCleanup)
	}()

	f, err := os.Open(path)
	if err != nil {
		res.Errs = append(res.Errs, d.fail(logger, job, &StageError{Stage: StageOpen, File: path, Err: err}))
		return res
	}
	defer f.Close()

	fmt.Fprintf(d.stdout, "Read %s\n", path)
	c, err := d.backend.Open(f, path)
	if err != nil {
		res.Errs = append(res.Errs, d.fail(logger, job, &StageError{Stage: StageDecode, File: path, Err: err}))
		return res
	}
	defer func() {
		if err := c.Release(); err != nil {
			logger.Warn("release failed", "err", err)
		}
	}()
	job.advance(logger, StateOpened)

	loaded := make(map[container.Selector]error)
	for _, req := range d.requests {
		final, err := d.extract(logger, job, c, req, loaded)
		if err != nil {
			res.Errs = append(res.Errs, d.fail(logger, job, err))
			continue
		}
		res.Published = append(res.Published, final)
	}
	return res
}

// extract produces one requested output. Loads are shared between the
// requests of a file, so a selector is loaded at most once and a failed load
// fails every request that needs it.
func (d *Driver) extract(logger *slog.Logger, job *Job, c container.Container, req Request, loaded map[container.Selector]error) (string, error) {
	stageErr := func(stage Stage, err error) error {
		return &StageError{Stage: stage, File: job.Path, Output: req.Output(), Err: err}
	}

	for _, sel := range req.Loads() {
		err, done := loaded[sel]
		if !done {
			logger.Debug("load", "data", sel.String())
			err = c.Load(sel)
			loaded[sel] = err
		}
		if err != nil {
			return "", stageErr(StageLoad, fmt.Errorf("loading %s: %w", sel, err))
		}
	}
	job.advance(logger, StateLoaded)

	p, err := paths.Make(job.Path, d.cfg.OutputDir, req.Ext())
	if err != nil {
		return "", stageErr(StagePath, err)
	}

	fmt.Fprintf(d.stdout, "Dump %s to %s\n", req.Output(), p.Final)
	if err := req.Dump(c, p.Temp); err != nil {
		_ = os.Remove(p.Temp)
		return "", stageErr(StageDump, err)
	}
	job.advance(logger, StateDumped)

	// A failed rename leaves the complete temporary file for manual recovery.
	if err := os.Rename(p.Temp, p.Final); err != nil {
		return "", stageErr(StagePublish, err)
	}
	job.advance(logger, StatePublished)
	return p.Final, nil
}

func (d *Driver) fail(logger *slog.Logger, job *Job, err error) error {
	job.advance(logger, StateError)
	attrs := []any{"err", err}
	var se *StageError
	if errors.As(err, &se) {
		attrs = []any{"stage", se.Stage.String(), "output", se.Output, "err", se.Err}
	}
	logger.Error("extraction failed", attrs...)
	return err
}

func (j *Job) advance(logger *slog.Logger, s State) {
	logger.Debug("state", "from", j.State.String(), "to", s.String())
	j.State = s
}
