package guard

import (
	"context"

	"focusgate/internal/focus/domain"
)

// SettingsRepo persists the configuration snapshot. Load is expected to
// return an already migrated and normalized snapshot.
type SettingsRepo interface {
	Load(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, s domain.Settings) error
}

// Tab is one open page as seen by the tab host.
type Tab struct {
	ID  int
	URL string
}

// TabHost is the browser-side collaborator: it enumerates open pages and
// navigates them. Implementations live in gateways/tabs.
type TabHost interface {
	List(ctx context.Context) ([]Tab, error)
	Navigate(ctx context.Context, id int, url string) error
}

// DecisionCache caches per-URL policy decisions for the current
// snapshot. It must be purged whenever the snapshot changes.
type DecisionCache interface {
	Get(url string) (domain.Decision, bool)
	Put(url string, d domain.Decision)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}
