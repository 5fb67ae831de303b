package aggregator

import (
	"sort"
	"time"

	"github.com/pothiers/cadence/internal/model"
	"github.com/pothiers/cadence/internal/series"
)

// CategoryStats summarizes the rates emitted for one category, in MB/s.
type CategoryStats struct {
	Max   float64   `json:"max"`
	MaxAt time.Time `json:"max_at"`
	Mean  float64   `json:"mean"`
	P95   float64   `json:"p95"`
}

// Entry is one cell of the moving-average table.
type Entry struct {
	model.Point
	Rate float64 `json:"rate"` // MB/s
}

// Table maps (timestamp, category) to a moving-average rate.
// Every category has a rate at every instant in Times.
type Table struct {
	Window     time.Duration
	Categories []string
	Times      []time.Time
	Stats      map[string]CategoryStats

	rates    map[string][]float64
	timeline *series.Timeline
}

// Rate returns the rate for category at the given instant.
func (t *Table) Rate(at time.Time, category string) (float64, bool) {
	rates, ok := t.rates[category]
	if !ok {
		return 0, false
	}
	i := sort.Search(len(t.Times), func(i int) bool { return !t.Times[i].Before(at) })
	if i == len(t.Times) || !t.Times[i].Equal(at) {
		return 0, false
	}
	return rates[i], true
}

// Series returns the rates of one category aligned with Times.
func (t *Table) Series(category string) []float64 {
	return append([]float64(nil), t.rates[category]...)
}

// Volumes lists the summed input volumes the rates were computed from.
func (t *Table) Volumes() []series.Sample {
	if t.timeline == nil {
		return nil
	}
	return t.timeline.Points()
}

// Entries lists every cell ordered by time, then category.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.Times)*len(t.Categories))
	for i, at := range t.Times {
		for _, c := range t.Categories {
			entries = append(entries, Entry{
				Point: model.Point{At: at, Category: c},
				Rate:  t.rates[c][i],
			})
		}
	}
	return entries
}

// Days returns the distinct calendar days present in Times, in order.
func (t *Table) Days() []time.Time {
	var days []time.Time
	for _, at := range t.Times {
		y, m, d := at.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, at.Location())
		if len(days) == 0 || !days[len(days)-1].Equal(day) {
			days = append(days, day)
		}
	}
	return days
}
