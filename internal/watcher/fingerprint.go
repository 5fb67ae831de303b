package watcher

import (
	"os"
	"sync"
	"time"
)

type stamp struct {
	Size    int64
	ModTime time.Time
}

// Fingerprint remembers the size and modification time of each input at
// the last run, so repeated notifications for an unchanged file are ignored.
type Fingerprint struct {
	mu     sync.Mutex
	stamps map[string]stamp
}

func NewFingerprint() *Fingerprint {
	return &Fingerprint{stamps: make(map[string]stamp)}
}

// Update records the current state of paths and reports whether any of
// them differs from the previous call. Unreadable files count as changed.
func (f *Fingerprint) Update(paths []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	changed := len(paths) != len(f.stamps)
	next := make(map[string]stamp, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			changed = true
			continue
		}
		s := stamp{Size: info.Size(), ModTime: info.ModTime()}
		next[p] = s
		if prev, ok := f.stamps[p]; !ok || prev != s {
			changed = true
		}
	}
	f.stamps = next
	return changed
}
