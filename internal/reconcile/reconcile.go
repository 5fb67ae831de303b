// Package reconcile folds field observations into one record per key and
// applies the missing-data policy once the input is exhausted.
package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pothiers/cadence/internal/model"
)

var (
	ErrMalformedSize = errors.New("malformed file size")
	ErrMissingVolume = errors.New("missing file size")
	ErrNoTimestamps  = errors.New("no record has a timestamp")
	ErrFinalized     = errors.New("reconciler already finalized")
)

// sentinelOffset places defaulted timestamps after all observed data.
const sentinelOffset = 24 * time.Hour

// KeyError names the key a record-level failure belongs to.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string { return fmt.Sprintf("%s: %v", e.Key, e.Err) }

func (e *KeyError) Unwrap() error { return e.Err }

// Options configures a Reconciler.
type Options struct {
	Categorizer Categorizer
	// DateSegment is the key segment holding YYYYMMDD for TIME-OBS values.
	DateSegment int
	Logger      *zap.SugaredLogger
}

// Reconciler accumulates records from an ordered stream of fields.
// It is not safe for concurrent use.
type Reconciler struct {
	categorizer Categorizer
	dateSegment int
	log         *zap.SugaredLogger

	records   map[string]*model.Record
	unknown   map[string]struct{}
	unparsed  int
	badDates  int
	finalized bool
}

// New creates a Reconciler.
func New(opts Options) *Reconciler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Reconciler{
		categorizer: opts.Categorizer,
		dateSegment: opts.DateSegment,
		log:         log,
		records:     make(map[string]*model.Record),
		unknown:     make(map[string]struct{}),
	}
}

// Skip counts an input line the parser rejected.
func (r *Reconciler) Skip() {
	r.unparsed++
}

// Add folds one field into the record for its key. The only error it
// returns is a *KeyError wrapping ErrMalformedSize (or ErrFinalized).
func (r *Reconciler) Add(f model.Field) error {
	if r.finalized {
		return ErrFinalized
	}
	rec, ok := r.records[f.Key]
	if !ok {
		rec = &model.Record{Key: f.Key}
		r.records[f.Key] = rec
	}

	// Category is re-derived on every line; the last line wins.
	if r.categorizer != nil {
		if cat, ok := r.categorizer.Of(f.Key); ok {
			rec.Category = cat
			rec.HasCategory = true
		}
	}

	switch kind := KindOf(f.Name); kind {
	case KindSize:
		mb, err := parseSize(f.Value)
		if err != nil {
			return &KeyError{Key: f.Key, Err: err}
		}
		rec.Volume = mb
		rec.HasVolume = true

	case KindDateTime, KindTimeOfDay:
		// The first successfully parsed date field wins.
		if rec.HasTimestamp {
			return nil
		}
		var (
			ts  time.Time
			err error
		)
		if kind == KindDateTime {
			ts, err = parseDateTime(f.Value)
		} else {
			ts, err = parseTimeOfDay(f.Key, r.dateSegment, f.Value)
		}
		if err != nil {
			r.badDates++
			r.log.Debugw("Could not parse date/time", "key", f.Key, "field", f.Name, "value", f.Value, zap.Error(err))
			return nil
		}
		rec.Timestamp = ts
		rec.HasTimestamp = true

	case KindIgnored:

	default:
		r.unknown[f.Name] = struct{}{}
	}
	return nil
}

// Finalize applies the missing-data defaults and returns the records.
// Records without a timestamp get the latest observed timestamp plus one day,
// records without a category get model.DefaultCategory. Records without a
// size cannot be defaulted: each one contributes a *KeyError wrapping
// ErrMissingVolume to the returned error. The quality counts are returned
// even when err is non-nil.
func (r *Reconciler) Finalize() (map[string]model.Record, model.Quality, error) {
	if r.finalized {
		return nil, model.Quality{}, ErrFinalized
	}
	r.finalized = true

	q := model.Quality{
		Records:       len(r.records),
		UnparsedLines: r.unparsed,
		BadDates:      r.badDates,
	}
	for name := range r.unknown {
		q.UnknownFields = append(q.UnknownFields, name)
	}
	sort.Strings(q.UnknownFields)
	if len(q.UnknownFields) > 0 {
		r.log.Infow("Unknown fields", "fields", q.UnknownFields)
	}

	keys := make([]string, 0, len(r.records))
	var latest time.Time
	var anyTimestamp bool
	for key, rec := range r.records {
		keys = append(keys, key)
		if rec.HasTimestamp && (!anyTimestamp || rec.Timestamp.After(latest)) {
			latest = rec.Timestamp
			anyTimestamp = true
		}
	}
	sort.Strings(keys)

	var errs error
	out := make(map[string]model.Record, len(r.records))
	for _, key := range keys {
		rec := r.records[key]
		if !rec.HasTimestamp {
			q.MissingTimestamp++
			if anyTimestamp {
				rec.Timestamp = latest.Add(sentinelOffset)
				rec.Sentinel = true
			}
		}
		if !rec.HasCategory {
			q.MissingCategory++
			q.AddNoCategoryKey(key)
			rec.Category = model.DefaultCategory
		}
		if !rec.HasVolume {
			q.MissingSize++
			errs = multierr.Append(errs, &KeyError{Key: key, Err: ErrMissingVolume})
		}
		out[key] = *rec
	}
	if q.MissingTimestamp > 0 && !anyTimestamp {
		errs = multierr.Append(errs, ErrNoTimestamps)
	}
	if errs != nil {
		return nil, q, errs
	}
	return out, q, nil
}
