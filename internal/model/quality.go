package model

// maxExampleKeys caps the example keys listed for missing categories.
const maxExampleKeys = 10

// Quality counts the gaps found while reconciling the input.
type Quality struct {
	Records          int      `json:"records"`
	MissingTimestamp int      `json:"missing_timestamp"`
	MissingCategory  int      `json:"missing_category"`
	MissingSize      int      `json:"missing_size"`
	UnparsedLines    int      `json:"unparsed_lines"`
	BadDates         int      `json:"bad_dates"`
	UnknownFields    []string `json:"unknown_fields,omitempty"`
	NoCategoryKeys   []string `json:"no_category_keys,omitempty"`
}

// AddNoCategoryKey remembers key as an example of a missing category,
// keeping at most ten examples.
func (q *Quality) AddNoCategoryKey(key string) {
	if len(q.NoCategoryKeys) < maxExampleKeys {
		q.NoCategoryKeys = append(q.NoCategoryKeys, key)
	}
}

// Ratio returns n as a fraction of all records, or 0 when there are none.
func (q Quality) Ratio(n int) float64 {
	if q.Records == 0 {
		return 0
	}
	return float64(n) / float64(q.Records)
}
