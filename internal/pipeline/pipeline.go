// Package pipeline runs the batch computation: parse every input line,
// reconcile records, build the timeline and aggregate moving averages.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pothiers/cadence/internal/aggregator"
	"github.com/pothiers/cadence/internal/config"
	"github.com/pothiers/cadence/internal/logging"
	"github.com/pothiers/cadence/internal/model"
	"github.com/pothiers/cadence/internal/parser"
	"github.com/pothiers/cadence/internal/reconcile"
	"github.com/pothiers/cadence/internal/report"
	"github.com/pothiers/cadence/internal/series"
)

// Lines yields every input line once, in order.
type Lines interface {
	Each(ctx context.Context, fn func(model.RawLine) error) error
}

// Run reads all of lines before aggregating anything. Unparseable lines and
// dates are logged and skipped. Record-level and pipeline-shape failures are
// returned as errors; when reconciliation got far enough to count data
// quality, the returned Report carries those counts and no rates.
func Run(ctx context.Context, lines Lines, cfg config.Config) (*report.Report, error) {
	log := logging.FromContext(ctx)

	p, err := parser.New(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	rec := reconcile.New(reconcile.Options{
		Categorizer: reconcile.SegmentCategory(cfg.CategorySegment),
		DateSegment: cfg.DateSegment,
		Logger:      log,
	})

	err = lines.Each(ctx, func(line model.RawLine) error {
		if line.Truncated {
			log.Errorw("Line too long", "source", line.Source, "line", line.Num, "kept_bytes", len(line.Text))
			rec.Skip()
			return nil
		}
		f, ok := p.Parse(line.Text)
		if !ok {
			log.Errorw("Could not match line", "source", line.Source, "line", line.Num, "text", line.Text)
			rec.Skip()
			return nil
		}
		return rec.Add(f)
	})
	if err != nil {
		return nil, err
	}

	records, q, err := rec.Finalize()
	if err != nil {
		return partial(log, q), fmt.Errorf("finalize records: %w", err)
	}
	tl, err := series.Build(records)
	if err != nil {
		return partial(log, q), fmt.Errorf("build timeline: %w", err)
	}
	table, err := aggregator.Aggregate(ctx, tl, cfg.Window)
	if err != nil {
		return partial(log, q), fmt.Errorf("aggregate: %w", err)
	}

	rep := report.New(q, table)
	report.Log(log, rep)
	return rep, nil
}

func partial(log *zap.SugaredLogger, q model.Quality) *report.Report {
	rep := report.New(q, nil)
	report.Log(log, rep)
	return rep
}
