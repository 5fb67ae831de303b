package model

import "time"

// DefaultCategory labels records whose key never yielded a category.
const DefaultCategory = "NA"

// Field is one observation extracted from one input line.
type Field struct {
	Key   string `json:"key"`   // per-file identity, usually a header path
	Name  string `json:"name"`  // field name, e.g. DATE-OBS or #filesize
	Value string `json:"value"` // raw value, untrimmed
}

// Record is the reconciled view of every field seen for one key.
type Record struct {
	Key       string    `json:"key"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Volume    float64   `json:"volume_mb"`

	// Sentinel marks a timestamp assigned at finalization rather than observed.
	Sentinel bool `json:"sentinel,omitempty"`

	HasCategory  bool `json:"-"`
	HasTimestamp bool `json:"-"`
	HasVolume    bool `json:"-"`
}

// Point addresses one cell of a timeline or moving-average table.
type Point struct {
	At       time.Time `json:"at"`
	Category string    `json:"category"`
}

// RawLine is one line of input and where it came from.
type RawLine struct {
	Text   string `json:"text"`
	Source string `json:"source"` // input file path, "-" for stdin
	Num    int    `json:"num"`    // 1-based line number within Source
	// Truncated is set when the line was longer than the reader keeps;
	// Text then holds only its beginning.
	Truncated bool `json:"truncated,omitempty"`
}
