package monitorservice

import (
	"sync"
	"time"
)

// dedupIndex tracks when each fingerprint was first seen so rapid repeats of
// the same transition collapse into one notification.
type dedupIndex struct {
	mutex   sync.Mutex
	origins map[string]time.Time
	window  time.Duration
	refresh bool
	now     func() time.Time
}

func newDedupIndex(window time.Duration, refresh bool) *dedupIndex {
	return &dedupIndex{
		origins: make(map[string]time.Time),
		window:  window,
		refresh: refresh,
		now:     time.Now,
	}
}

// Admit records the fingerprint on first sight and reports whether the event
// falls inside the suppression window of an earlier one. The window stays
// anchored at the first event, duplicates do not extend it unless refresh is
// enabled.
func (d *dedupIndex) Admit(fingerprint string) (bool, time.Time) {
	if d.window <= 0 {
		return false, time.Time{}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	now := d.now()
	if origin, ok := d.origins[fingerprint]; ok && now.Sub(origin) < d.window {
		if d.refresh {
			d.origins[fingerprint] = now
		}
		return true, origin
	}

	d.origins[fingerprint] = now
	return false, now
}

// Restore seeds the index from the journal after a restart. Entries outside
// the window and entries older than what is already known are ignored.
func (d *dedupIndex) Restore(fingerprint string, at time.Time) {
	if d.window <= 0 {
		return
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.now().Sub(at) >= d.window {
		return
	}
	if existing, ok := d.origins[fingerprint]; ok && existing.After(at) {
		return
	}
	d.origins[fingerprint] = at
}

func (d *dedupIndex) Sweep() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	now := d.now()
	removed := 0
	for fingerprint, origin := range d.origins {
		if now.Sub(origin) >= d.window {
			delete(d.origins, fingerprint)
			removed++
		}
	}
	return removed
}
