package tracker

import (
	"sync"
	"time"

	"focusgate/internal/focus/common/clock"
	"focusgate/internal/focus/common/log"
	"focusgate/internal/focus/common/urlutil"
)

// UsageLog is the persistence backend for finished visits.
type UsageLog interface {
	RecordVisit(site string, start, end time.Time) error
}

// BreakSource reports whether a break is running; tracking is suspended
// while one is.
type BreakSource interface {
	BreakActive(now time.Time) bool
}

// Tracker accumulates active browsing time per registrable domain. The
// navigation host reports the currently focused URL through SetActiveURL
// and Idle; the tracker turns those events into visits.
type Tracker struct {
	mu      sync.Mutex
	site    string
	started time.Time

	usage  UsageLog
	breaks BreakSource
	clock  clock.Clock
	logger log.Logger
}

type Options struct {
	Usage  UsageLog
	Breaks BreakSource
	Clock  clock.Clock
	Logger log.Logger
}

func New(opts Options) *Tracker {
	t := &Tracker{
		usage:  opts.Usage,
		breaks: opts.Breaks,
		clock:  opts.Clock,
		logger: opts.Logger,
	}
	if t.clock == nil {
		t.clock = clock.RealClock{}
	}
	if t.logger == nil {
		t.logger = log.NewNoopLogger()
	}
	return t
}

// SetActiveURL records that the given URL became the focused page.
// Consecutive URLs on the same site extend the running visit. URLs
// without a usable host, or any activity during a break, close the
// current visit instead.
func (t *Tracker) SetActiveURL(rawURL string) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.breaks != nil && t.breaks.BreakActive(now) {
		t.closeLocked(now)
		return
	}
	site := urlutil.Site(rawURL)
	if site == "" {
		t.closeLocked(now)
		return
	}
	if t.site == site {
		return
	}
	t.closeLocked(now)
	t.site = site
	t.started = now
}

// Idle closes the running visit; the user looked away (window blur,
// system idle, break start).
func (t *Tracker) Idle() {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked(now)
}

// Stop flushes the running visit on shutdown.
func (t *Tracker) Stop() {
	t.Idle()
}

func (t *Tracker) closeLocked(now time.Time) {
	if t.site == "" {
		return
	}
	if t.usage != nil {
		if err := t.usage.RecordVisit(t.site, t.started, now); err != nil {
			t.logger.Warn(map[string]any{
				"site":  t.site,
				"error": err.Error(),
			}, "usage record failed")
		}
	}
	t.site = ""
	t.started = time.Time{}
}
