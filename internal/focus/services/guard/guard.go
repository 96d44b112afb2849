package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"focusgate/internal/focus/common/clock"
	"focusgate/internal/focus/common/log"
	"focusgate/internal/focus/domain"
)

// ErrBreakLimit is returned when a break request hits the session's
// daily quota. It is a policy rejection, not a transient fault; callers
// should surface it to the user and must not retry.
var ErrBreakLimit = errors.New("break limit reached")

// Guard is the focus-state machine and blocking decision service. It
// owns the single in-memory settings snapshot and serializes every entry
// point (URL checks, the periodic tick, commands, snapshot replacement)
// behind one mutex, matching the original's single-threaded event model.
type Guard struct {
	mu        sync.Mutex
	settings  domain.Settings
	policy    domain.Policy
	policyGen uint64
	lastFocus bool

	repo      SettingsRepo
	tabs      TabHost
	cache     DecisionCache
	clock     clock.Clock
	logger    log.Logger
	blockPage string
}

type Options struct {
	Settings  SettingsRepo
	Tabs      TabHost
	Cache     DecisionCache
	Clock     clock.Clock
	Logger    log.Logger
	BlockPage string // interstitial base URL
}

func New(opts Options) *Guard {
	g := &Guard{
		repo:      opts.Settings,
		tabs:      opts.Tabs,
		cache:     opts.Cache,
		clock:     opts.Clock,
		logger:    opts.Logger,
		blockPage: opts.BlockPage,
		settings:  domain.DefaultSettings(),
	}
	if g.clock == nil {
		g.clock = clock.RealClock{}
	}
	if g.logger == nil {
		g.logger = log.NewNoopLogger()
	}
	if g.cache == nil {
		g.cache = nopCache{}
	}
	g.policy = domain.CompilePolicy(g.settings)
	return g
}

// Load reads the persisted snapshot and applies current enforcement to
// open tabs, seeding the edge detector with the current focus signal.
func (g *Guard) Load(ctx context.Context) error {
	s, err := g.repo.Load(ctx)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.installLocked(s)
	active := g.focusActiveLocked(g.clock.Now())
	g.lastFocus = active
	g.mu.Unlock()

	g.logger.Info(map[string]any{
		"mode":     s.Mode,
		"sessions": len(s.Sessions),
		"focus":    active,
	}, "settings snapshot loaded")

	if active {
		g.enforce(ctx)
	} else {
		g.restore(ctx)
	}
	return nil
}

// Reload re-reads the snapshot from storage and reconciles tabs. This is
// the entry point for external change notifications: some other writer
// updated the store and poked us.
func (g *Guard) Reload(ctx context.Context) error {
	s, err := g.repo.Load(ctx)
	if err != nil {
		return err
	}
	g.ReplaceSettings(ctx, s)
	return nil
}

// ReplaceSettings installs a new snapshot wholesale, then reconciles
// every open tab against it: interstitial tabs whose original URL no
// longer blocks are restored, and tabs that now block are redirected.
func (g *Guard) ReplaceSettings(ctx context.Context, s domain.Settings) {
	dirty := s.Normalize()

	g.mu.Lock()
	g.installLocked(s)
	g.lastFocus = g.focusActiveLocked(g.clock.Now())
	g.mu.Unlock()

	if dirty {
		g.save(ctx)
	}
	g.reconcile(ctx)
}

// installLocked swaps the working snapshot and everything derived from
// it. The generation counter invalidates decisions still in flight
// against the previous policy.
func (g *Guard) installLocked(s domain.Settings) {
	g.settings = s
	g.policy = domain.CompilePolicy(s)
	g.policyGen++
	g.cache.Purge()
}

// Settings returns a copy of the current snapshot.
func (g *Guard) Settings() domain.Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settings.Clone()
}

// --- focus state ---

func (g *Guard) stateLocked(now time.Time) domain.FocusState {
	if g.settings.BreakActive(now) {
		return domain.FocusOnBreak
	}
	if g.settings.Immediate {
		return domain.FocusImmediate
	}
	if domain.ActiveSession(g.settings.Sessions, now) != nil {
		return domain.FocusScheduled
	}
	return domain.FocusIdle
}

func (g *Guard) focusActiveLocked(now time.Time) bool {
	return g.stateLocked(now).Active()
}

// activeSessionLocked returns the session whose quota governs a break
// request right now. A running break hides the schedule entirely.
func (g *Guard) activeSessionLocked(now time.Time) *domain.Session {
	if g.settings.BreakActive(now) {
		return nil
	}
	return domain.ActiveSession(g.settings.Sessions, now)
}

// State returns the current focus state.
func (g *Guard) State() domain.FocusState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked(g.clock.Now())
}

// FocusActive reports whether blocking is currently enforced.
func (g *Guard) FocusActive() bool {
	return g.State().Active()
}

// BreakActive reports whether a break suppresses focus at now. Used by
// the usage tracker to pause accounting during breaks.
func (g *Guard) BreakActive(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settings.BreakActive(now)
}

// --- blocking decision ---

// Decide returns the pattern-phase decision for a URL under the current
// snapshot, ignoring the focus state. Results are cached per snapshot;
// a result computed against a policy that was replaced mid-flight is
// returned but never cached, so the purge in installLocked stays
// authoritative.
func (g *Guard) Decide(url string) domain.Decision {
	g.mu.Lock()
	policy := g.policy
	gen := g.policyGen
	g.mu.Unlock()

	if d, ok := g.cache.Get(url); ok {
		return d
	}
	d := policy.Evaluate(url)

	g.mu.Lock()
	if gen == g.policyGen {
		g.cache.Put(url, d)
	}
	g.mu.Unlock()
	return d
}

// IsBlocked reports whether navigating to url should be redirected right
// now. Pure query: no state changes. Unparseable URLs and non-web
// schemes never block.
func (g *Guard) IsBlocked(url string) bool {
	g.mu.Lock()
	active := g.focusActiveLocked(g.clock.Now())
	g.mu.Unlock()
	if !active {
		return false
	}
	return g.Decide(url).Block
}

// CheckURL is IsBlocked plus the interstitial redirect target, for
// navigation hosts that redirect on commit.
func (g *Guard) CheckURL(url string) (bool, string) {
	if !g.IsBlocked(url) {
		return false, ""
	}
	return true, BlockPageURL(g.blockPage, url)
}

// --- periodic tick ---

// Tick drives all time-based transitions: break expiry, end-of-session
// auto-breaks, and schedule boundary crossings. It is idempotent:
// re-running it with no elapsed state change has no side effects.
func (g *Guard) Tick(ctx context.Context) {
	now := g.clock.Now()
	nowMS := now.UnixMilli()

	g.mu.Lock()
	mutated := false

	// break expiry
	if g.settings.BreakUntil != 0 && nowMS >= g.settings.BreakUntil {
		g.settings.BreakUntil = 0
		g.settings.ResumeURL = ""
		mutated = true
		g.logger.Info(nil, "break expired")
	}

	// end-of-session auto-break: granted once, within the minute after a
	// session's end, only when nothing else supersedes it. Does not
	// consume break quota.
	if !g.settings.Immediate && g.settings.BreakUntil == 0 {
		for i := range g.settings.Sessions {
			ses := g.settings.Sessions[i]
			if ses.Break <= 0 || ses.Within(now) {
				continue
			}
			end, ok := ses.EndInstant(now)
			if !ok {
				continue
			}
			diff := now.Sub(end)
			if diff >= 0 && diff < time.Minute {
				g.settings.BreakUntil = nowMS + int64(ses.Break)*60_000
				mutated = true
				g.logger.Info(map[string]any{
					"session": ses.ID,
					"minutes": ses.Break,
				}, "automatic end-of-session break granted")
				break
			}
		}
	}
	g.mu.Unlock()

	if mutated {
		g.save(ctx)
	}
	g.syncFocus(ctx)
}

// --- manual commands ---

// BlockNow turns on the manual immediate block, cancelling any break.
func (g *Guard) BlockNow(ctx context.Context) error {
	g.mu.Lock()
	g.settings.Immediate = true
	g.settings.BreakUntil = 0
	g.mu.Unlock()

	g.logger.Info(nil, "immediate block enabled")
	g.save(ctx)
	g.enforce(ctx)
	g.syncFocus(ctx)
	return nil
}

// UnblockNow clears the manual immediate block. Tabs are only restored
// if this actually ends focus (a scheduled session may still hold it).
func (g *Guard) UnblockNow(ctx context.Context) error {
	g.mu.Lock()
	g.settings.Immediate = false
	g.mu.Unlock()

	g.logger.Info(nil, "immediate block disabled")
	g.save(ctx)
	g.syncFocus(ctx)
	return nil
}

// StartBreak suspends blocking for durationMin minutes (the configured
// default when <= 0). While the active session's daily quota is
// exhausted it fails with ErrBreakLimit. If a break is already running,
// only the resume URL is updated; the break is never extended. Returns
// the break deadline in milliseconds since epoch.
func (g *Guard) StartBreak(ctx context.Context, durationMin int, resumeURL string) (int64, error) {
	now := g.clock.Now()

	g.mu.Lock()
	if !g.settings.BreakActive(now) {
		if ses := g.activeSessionLocked(now); ses != nil {
			if !domain.ConsumeBreak(*ses, g.settings.SessionBreakUsage, now) {
				g.mu.Unlock()
				g.logger.Info(map[string]any{"session": ses.ID}, "break rejected: daily quota exhausted")
				return 0, ErrBreakLimit
			}
		}
		dur := durationMin
		if dur <= 0 {
			dur = g.settings.BreakDuration
		}
		g.settings.BreakUntil = now.UnixMilli() + int64(dur)*60_000
		g.settings.Immediate = false
		if resumeURL != "" {
			g.settings.ResumeURL = resumeURL
		}
		g.logger.Info(map[string]any{"minutes": dur}, "break started")
	} else if resumeURL != "" {
		g.settings.ResumeURL = resumeURL
	}
	until := g.settings.BreakUntil
	g.mu.Unlock()

	g.save(ctx)
	g.syncFocus(ctx)
	return until, nil
}

// StopBreak ends a running break early.
func (g *Guard) StopBreak(ctx context.Context) error {
	g.mu.Lock()
	g.settings.BreakUntil = 0
	g.settings.ResumeURL = ""
	g.mu.Unlock()

	g.logger.Info(nil, "break stopped")
	g.save(ctx)
	g.enforce(ctx)
	g.syncFocus(ctx)
	return nil
}

// UnblockURL removes a pattern from enforcement: in block mode the exact
// pattern string is removed from the block list; in allow mode it is
// added to the allow list if absent.
func (g *Guard) UnblockURL(ctx context.Context, pattern string) error {
	g.mu.Lock()
	mutated := false
	if g.settings.Mode == domain.ModeAllow {
		if !contains(g.settings.AllowPatterns, pattern) {
			g.settings.AllowPatterns = append(g.settings.AllowPatterns, pattern)
			mutated = true
		}
	} else {
		for i, p := range g.settings.BlockPatterns {
			if p == pattern {
				g.settings.BlockPatterns = append(g.settings.BlockPatterns[:i], g.settings.BlockPatterns[i+1:]...)
				mutated = true
				break
			}
		}
	}
	if mutated {
		g.installLocked(g.settings)
	}
	g.mu.Unlock()

	if mutated {
		g.logger.Info(map[string]any{"pattern": pattern}, "pattern unblocked")
		g.save(ctx)
	}
	return nil
}

// Status is the state summary exposed over the messaging channel.
type Status struct {
	State         domain.FocusState
	Mode          domain.Mode
	BreakUntil    int64
	BreakDuration int
	ResumeURL     string
}

func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		State:         g.stateLocked(g.clock.Now()),
		Mode:          g.settings.Mode,
		BreakUntil:    g.settings.BreakUntil,
		BreakDuration: g.settings.BreakDuration,
		ResumeURL:     g.settings.ResumeURL,
	}
}

// --- enforcement ---

// syncFocus detects focus edges against lastFocus and fires the
// transition action: enforce on rising edge, restore on falling edge.
// Without the explicit edge state every tick would redundantly rewrite
// tabs.
func (g *Guard) syncFocus(ctx context.Context) {
	g.mu.Lock()
	active := g.focusActiveLocked(g.clock.Now())
	changed := active != g.lastFocus
	g.lastFocus = active
	g.mu.Unlock()

	if !changed {
		return
	}
	g.logger.Info(map[string]any{"focus": active}, "focus state changed")
	if active {
		g.enforce(ctx)
	} else {
		g.restore(ctx)
	}
}

// enforce redirects every open tab whose URL is blocked to the
// interstitial page carrying the original URL.
func (g *Guard) enforce(ctx context.Context) {
	if g.tabs == nil {
		return
	}
	tabs, err := g.tabs.List(ctx)
	if err != nil {
		g.logger.Warn(map[string]any{"error": err.Error()}, "tab listing failed during enforcement")
		return
	}
	for _, tab := range tabs {
		if tab.URL == "" || !g.IsBlocked(tab.URL) {
			continue
		}
		target := BlockPageURL(g.blockPage, tab.URL)
		if err := g.tabs.Navigate(ctx, tab.ID, target); err != nil {
			g.logger.Warn(map[string]any{"tab": tab.ID, "error": err.Error()}, "tab redirect failed")
		}
	}
}

// restore navigates every interstitial tab back to its original URL.
func (g *Guard) restore(ctx context.Context) {
	if g.tabs == nil {
		return
	}
	tabs, err := g.tabs.List(ctx)
	if err != nil {
		g.logger.Warn(map[string]any{"error": err.Error()}, "tab listing failed during restore")
		return
	}
	for _, tab := range tabs {
		orig, ok := OriginalURL(g.blockPage, tab.URL)
		if !ok {
			continue
		}
		if err := g.tabs.Navigate(ctx, tab.ID, orig); err != nil {
			g.logger.Warn(map[string]any{"tab": tab.ID, "error": err.Error()}, "tab restore failed")
		}
	}
}

// reconcile applies both directions after a snapshot change: restores
// interstitial tabs that no longer block, redirects tabs that now do.
func (g *Guard) reconcile(ctx context.Context) {
	if g.tabs == nil {
		return
	}
	tabs, err := g.tabs.List(ctx)
	if err != nil {
		g.logger.Warn(map[string]any{"error": err.Error()}, "tab listing failed during reconcile")
		return
	}
	for _, tab := range tabs {
		if orig, ok := OriginalURL(g.blockPage, tab.URL); ok {
			if !g.IsBlocked(orig) {
				if err := g.tabs.Navigate(ctx, tab.ID, orig); err != nil {
					g.logger.Warn(map[string]any{"tab": tab.ID, "error": err.Error()}, "tab restore failed")
				}
			}
			continue
		}
		if tab.URL != "" && g.IsBlocked(tab.URL) {
			if err := g.tabs.Navigate(ctx, tab.ID, BlockPageURL(g.blockPage, tab.URL)); err != nil {
				g.logger.Warn(map[string]any{"tab": tab.ID, "error": err.Error()}, "tab redirect failed")
			}
		}
	}
}

// save persists the current snapshot. Persistence failures are logged
// but never break the decision path; decisions keep using the in-memory
// snapshot.
func (g *Guard) save(ctx context.Context) {
	g.mu.Lock()
	snapshot := g.settings.Clone()
	g.mu.Unlock()
	if err := g.repo.Save(ctx, snapshot); err != nil {
		g.logger.Error(map[string]any{"error": err.Error()}, "settings save failed")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// nopCache is the DecisionCache used when none is injected.
type nopCache struct{}

func (nopCache) Get(string) (domain.Decision, bool) { return domain.Decision{}, false }
func (nopCache) Put(string, domain.Decision)        {}
func (nopCache) Len() int                           { return 0 }
func (nopCache) Purge()                             {}
func (nopCache) Stats() (uint64, uint64, uint64)    { return 0, 0, 0 }
