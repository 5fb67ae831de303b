// Package aggregator computes per-category moving-average rates over a
// trailing time window.
//
// Every category walks the same global timestamp axis. The first window
// covers [axis[0], axis[0]+window] inclusive and is reported at its last
// axis point. From then on the window trails each axis point: samples at or
// before axis[r]-window are evicted before the sample at axis[r] is added,
// so a sample exactly one window old no longer counts.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/pothiers/cadence/internal/series"
)

var (
	ErrInvalidWindow = errors.New("window must be positive")
	ErrAxisTooShort  = errors.New("fewer than two axis points")
	ErrWindowTooWide = errors.New("window exceeds the observed time span")
)

// Aggregate runs the sliding-window walk for every category of tl.
// Categories are walked concurrently; each walk only reads tl.
func Aggregate(ctx context.Context, tl *series.Timeline, window time.Duration) (*Table, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, window)
	}
	if tl == nil || tl.Len() < 2 {
		return nil, ErrAxisTooShort
	}
	if span := tl.Span(); span < window {
		return nil, fmt.Errorf("%w: window %s, span %s", ErrWindowTooWide, window, span)
	}

	start := firstWindowEnd(tl, window)
	categories := tl.Categories()
	walks := make([]walk, len(categories))

	g, ctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			walks[i] = walkCategory(tl, category, start, window)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := &Table{
		Window:     window,
		Categories: categories,
		Times:      tl.Axis()[start:],
		rates:      make(map[string][]float64, len(categories)),
		Stats:      make(map[string]CategoryStats, len(categories)),
		timeline:   tl,
	}
	for i, category := range categories {
		table.rates[category] = walks[i].rates
		table.Stats[category] = walks[i].summarize(table.Times)
	}
	return table, nil
}

// firstWindowEnd returns the last axis index inside [axis[0], axis[0]+window].
func firstWindowEnd(tl *series.Timeline, window time.Duration) int {
	limit := tl.At(0).Add(window)
	end := 0
	for end+1 < tl.Len() && !tl.At(end+1).After(limit) {
		end++
	}
	return end
}

type walk struct {
	rates  []float64
	maxIdx int
}

// walkCategory maintains the running sum with two indices into the axis.
func walkCategory(tl *series.Timeline, category string, start int, window time.Duration) walk {
	seconds := window.Seconds()
	volume := func(i int) float64 {
		v, ok := tl.Volume(i, category)
		if !ok {
			return 0
		}
		return v
	}

	w := walk{rates: make([]float64, 0, tl.Len()-start)}
	emit := func(sum float64) {
		rate := sum / seconds
		if len(w.rates) > 0 && rate > w.rates[w.maxIdx] {
			w.maxIdx = len(w.rates)
		}
		w.rates = append(w.rates, rate)
	}

	var sum float64
	for i := 0; i <= start; i++ {
		sum += volume(i)
	}
	emit(sum)

	left := 0
	for right := start + 1; right < tl.Len(); right++ {
		earliest := tl.At(right).Add(-window)
		for !tl.At(left).After(earliest) {
			sum -= volume(left)
			left++
		}
		// Volumes are non-negative; anything below zero is rounding residue.
		if sum < 0 {
			sum = 0
		}
		sum += volume(right)
		emit(sum)
	}
	return w
}

func (w walk) summarize(times []time.Time) CategoryStats {
	data := stats.Float64Data(w.rates)
	st := CategoryStats{
		Max:   w.rates[w.maxIdx],
		MaxAt: times[w.maxIdx],
	}
	if mean, err := stats.Mean(data); err == nil {
		st.Mean = mean
	} else {
		st.Mean = st.Max
	}
	st.P95 = percentile(data, 95, st.Max)
	return st
}

// percentile interpolates when there are enough rates and falls back to the
// nearest rank, then to fallback. The result is never NaN.
func percentile(data stats.Float64Data, percent, fallback float64) float64 {
	p, err := stats.Percentile(data, percent)
	if err != nil || math.IsNaN(p) {
		p, err = stats.PercentileNearestRank(data, percent)
	}
	if err != nil || math.IsNaN(p) {
		return fallback
	}
	return p
}
