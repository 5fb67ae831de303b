// Package series turns finalized records into a category-partitioned
// volume matrix over one globally sorted timestamp axis.
package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pothiers/cadence/internal/model"
)

var (
	ErrNoRecords    = errors.New("no records to build a timeline from")
	ErrAxisTooShort = errors.New("fewer than two distinct timestamps")
)

// cell keys the volume matrix by axis index and category.
type cell struct {
	idx      int
	category string
}

// Timeline is an immutable sparse (timestamp, category) -> volume matrix.
type Timeline struct {
	axis       []time.Time
	categories []string
	volumes    map[cell]float64
}

// Build groups records by category and sums volumes that share a
// (timestamp, category) cell. Records are folded in key order so the
// float sums are reproducible.
func Build(records map[string]model.Record) (*Timeline, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	instants := make(map[int64]time.Time)
	seenCategory := make(map[string]struct{})
	for _, k := range keys {
		rec := records[k]
		instants[rec.Timestamp.UnixNano()] = rec.Timestamp
		seenCategory[rec.Category] = struct{}{}
	}
	if len(instants) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrAxisTooShort, len(instants))
	}

	tl := &Timeline{
		axis:       make([]time.Time, 0, len(instants)),
		categories: make([]string, 0, len(seenCategory)),
		volumes:    make(map[cell]float64),
	}
	for _, ts := range instants {
		tl.axis = append(tl.axis, ts)
	}
	sort.Slice(tl.axis, func(i, j int) bool { return tl.axis[i].Before(tl.axis[j]) })
	for c := range seenCategory {
		tl.categories = append(tl.categories, c)
	}
	sort.Strings(tl.categories)

	index := make(map[int64]int, len(tl.axis))
	for i, ts := range tl.axis {
		index[ts.UnixNano()] = i
	}
	for _, k := range keys {
		rec := records[k]
		tl.volumes[cell{idx: index[rec.Timestamp.UnixNano()], category: rec.Category}] += rec.Volume
	}
	return tl, nil
}

// Len returns the number of distinct timestamps.
func (t *Timeline) Len() int { return len(t.axis) }

// At returns the i-th timestamp of the sorted axis.
func (t *Timeline) At(i int) time.Time { return t.axis[i] }

// Axis returns a copy of the sorted timestamp axis.
func (t *Timeline) Axis() []time.Time {
	return append([]time.Time(nil), t.axis...)
}

// Categories returns the sorted distinct categories.
func (t *Timeline) Categories() []string {
	return append([]string(nil), t.categories...)
}

// Volume returns the summed volume at axis index i for category.
// ok is false when the category has no record at that instant.
func (t *Timeline) Volume(i int, category string) (volume float64, ok bool) {
	volume, ok = t.volumes[cell{idx: i, category: category}]
	return volume, ok
}

// Span returns the time between the first and last axis points.
func (t *Timeline) Span() time.Duration {
	return t.axis[len(t.axis)-1].Sub(t.axis[0])
}

// Sample is the summed volume of one category at one axis instant.
type Sample struct {
	model.Point
	Volume float64 `json:"volume"` // MB
}

// Points returns every populated cell, ordered by time then category.
func (t *Timeline) Points() []Sample {
	samples := make([]Sample, 0, len(t.volumes))
	for i, ts := range t.axis {
		for _, c := range t.categories {
			if v, ok := t.volumes[cell{idx: i, category: c}]; ok {
				samples = append(samples, Sample{Point: model.Point{At: ts, Category: c}, Volume: v})
			}
		}
	}
	return samples
}
