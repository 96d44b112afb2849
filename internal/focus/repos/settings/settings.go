package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"focusgate/internal/focus/common/log"
	"focusgate/internal/focus/domain"
	"focusgate/internal/focus/services/guard"
)

// Store is the raw document backend. Get returns nil when no snapshot
// has been written yet.
type Store interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, doc []byte) error
	Close() error
}

// Repo persists the settings snapshot as a single JSON document and
// applies legacy migration plus defensive normalization on load. A
// repaired snapshot is written back immediately so the repair happens
// once, not on every read.
type Repo struct {
	store  Store
	logger log.Logger
}

func NewRepo(store Store, logger log.Logger) *Repo {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Repo{store: store, logger: logger}
}

// Load reads the persisted snapshot. A missing document yields defaults.
func (r *Repo) Load(ctx context.Context) (domain.Settings, error) {
	raw, err := r.store.Get(ctx)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("settings load: %w", err)
	}
	if raw == nil {
		s := domain.DefaultSettings()
		if err := r.Save(ctx, s); err != nil {
			return domain.Settings{}, err
		}
		return s, nil
	}

	s, changed, err := decode(raw)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("settings decode: %w", err)
	}
	if s.Normalize() {
		changed = true
	}
	if changed {
		r.logger.Info(nil, "settings snapshot repaired during load")
		if err := r.Save(ctx, s); err != nil {
			return domain.Settings{}, err
		}
	}
	return s, nil
}

// Save writes the snapshot back as one document.
func (r *Repo) Save(ctx context.Context, s domain.Settings) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings encode: %w", err)
	}
	if err := r.store.Put(ctx, doc); err != nil {
		return fmt.Errorf("settings save: %w", err)
	}
	return nil
}

// decode unmarshals a stored document over the defaults and applies the
// legacy-shape migration: an old top-level "patterns" array becomes the
// block or allow list depending on mode, but only when the modern field
// is absent from the document. Returns changed=true when migration
// altered the snapshot.
func decode(raw []byte) (domain.Settings, bool, error) {
	// Probe field presence before filling defaults: a nil slice after
	// this unmarshal means the key was absent from the document.
	var probe struct {
		BlockPatterns  []string `json:"blockPatterns"`
		AllowPatterns  []string `json:"allowPatterns"`
		LegacyPatterns []string `json:"patterns"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return domain.Settings{}, false, err
	}

	s := domain.DefaultSettings()
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Settings{}, false, err
	}

	changed := false
	if probe.LegacyPatterns != nil {
		switch {
		case s.Mode == domain.ModeBlock && probe.BlockPatterns == nil:
			s.BlockPatterns = probe.LegacyPatterns
			changed = true
		case s.Mode == domain.ModeAllow && probe.AllowPatterns == nil:
			s.AllowPatterns = probe.LegacyPatterns
			changed = true
		}
	}
	return s, changed, nil
}

// Close releases the underlying store.
func (r *Repo) Close() error { return r.store.Close() }

var _ guard.SettingsRepo = (*Repo)(nil)
