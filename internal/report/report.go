// Package report assembles the data-quality counts and per-category rate
// maxima of one pipeline run into a single value for renderers and the API.
package report

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pothiers/cadence/internal/aggregator"
	"github.com/pothiers/cadence/internal/model"
	"github.com/pothiers/cadence/internal/series"
)

// Report is the outcome of one run.
type Report struct {
	Generated  time.Time                           `json:"generated"`
	Window     time.Duration                       `json:"window_ns"`
	Quality    model.Quality                       `json:"quality"`
	Categories []string                            `json:"categories"`
	Days       []time.Time                         `json:"days"`
	Stats      map[string]aggregator.CategoryStats `json:"stats"`

	table *aggregator.Table
}

// New builds a Report. table may be nil when the run failed after reconciliation.
func New(q model.Quality, table *aggregator.Table) *Report {
	r := &Report{
		Generated: time.Now(),
		Quality:   q,
	}
	if table != nil {
		r.Window = table.Window
		r.Categories = table.Categories
		r.Days = table.Days()
		r.Stats = table.Stats
		r.table = table
	}
	return r
}

// Table returns the moving-average table, or nil.
func (r *Report) Table() *aggregator.Table { return r.table }

// Entries returns the table cells, or nil when there is no table.
func (r *Report) Entries() []aggregator.Entry {
	if r.table == nil {
		return nil
	}
	return r.table.Entries()
}

// Volumes returns the per-instant input volumes, or nil when there is no table.
func (r *Report) Volumes() []series.Sample {
	if r.table == nil {
		return nil
	}
	return r.table.Volumes()
}

// Coverage describes how many records lacked an observed timestamp.
func (r *Report) Coverage() string {
	q := r.Quality
	return fmt.Sprintf("Could not calculate %d/%d (%.1f%%) collection time-stamps",
		q.MissingTimestamp, q.Records, 100*q.Ratio(q.MissingTimestamp))
}

// Log writes the data-quality summary to log.
func Log(log *zap.SugaredLogger, r *Report) {
	q := r.Quality
	log.Infow("Data quality",
		"records", q.Records,
		"missing_timestamp", q.MissingTimestamp,
		"missing_timestamp_ratio", q.Ratio(q.MissingTimestamp),
		"missing_category", q.MissingCategory,
		"missing_category_ratio", q.Ratio(q.MissingCategory),
		"missing_size", q.MissingSize,
		"missing_size_ratio", q.Ratio(q.MissingSize),
		"unparsed_lines", q.UnparsedLines,
		"bad_dates", q.BadDates,
	)
	if q.MissingTimestamp > 0 {
		log.Warn(r.Coverage())
	}
	if len(q.NoCategoryKeys) > 0 {
		log.Infow("Keys without category", "examples", q.NoCategoryKeys)
	}
	for _, c := range r.Categories {
		st := r.Stats[c]
		log.Infow("Maximum rate", "category", c, "mb_per_sec", st.Max, "at", st.MaxAt)
	}
}
