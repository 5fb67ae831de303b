package reconcile

import "strings"

// Categorizer derives a record's category from its key.
type Categorizer interface {
	Of(key string) (string, bool)
}

// SegmentCategory takes the category from a fixed '/'-separated segment of the key.
// For "/a/b/c/20140101/x/f1.hdr" segment 5 is "x".
type SegmentCategory int

func (s SegmentCategory) Of(key string) (string, bool) {
	segments := strings.Split(key, "/")
	idx := int(s)
	if idx < 0 || idx >= len(segments) || segments[idx] == "" {
		return "", false
	}
	return segments[idx], true
}
