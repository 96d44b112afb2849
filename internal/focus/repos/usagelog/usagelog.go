package usagelog

import (
	"encoding/json"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var bucketUsage = []byte("site_usage")

// minVisitGap is how long a site must sit untouched before a new visit
// increments its visit counter; shorter gaps fold into the same visit.
const minVisitGap = 30 * time.Second

// SiteUsage accumulates browsing time for one registrable domain.
// TotalMS and LastMS are milliseconds (duration and since-epoch).
type SiteUsage struct {
	TotalMS int64 `json:"total"`
	LastMS  int64 `json:"last"`
	Visits  int   `json:"count"`
}

// Store persists per-site usage in bbolt, keyed by site.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the usage database at path.
func New(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketUsage)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// RecordVisit folds one finished visit into the site's totals. The
// visit counter only advances when the site was last seen at least
// minVisitGap before this visit started.
func (s *Store) RecordVisit(site string, start, end time.Time) error {
	if site == "" || !end.After(start) {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsage)
		var u SiteUsage
		if v := b.Get([]byte(site)); v != nil {
			if err := json.Unmarshal(v, &u); err != nil {
				// unreadable record: start over rather than fail tracking
				u = SiteUsage{}
			}
		}
		if u.LastMS == 0 || start.UnixMilli()-u.LastMS >= minVisitGap.Milliseconds() {
			u.Visits++
		}
		u.TotalMS += end.Sub(start).Milliseconds()
		u.LastMS = end.UnixMilli()
		doc, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return b.Put([]byte(site), doc)
	})
}

// Site returns the usage record for one site, if present.
func (s *Store) Site(site string) (SiteUsage, bool, error) {
	var u SiteUsage
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketUsage).Get([]byte(site)); v != nil {
			found = true
			return json.Unmarshal(v, &u)
		}
		return nil
	})
	return u, found, err
}

// Totals returns usage for all sites.
func (s *Store) Totals() (map[string]SiteUsage, error) {
	out := make(map[string]SiteUsage)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsage).ForEach(func(k, v []byte) error {
			var u SiteUsage
			if err := json.Unmarshal(v, &u); err != nil {
				return err
			}
			out[string(k)] = u
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close() error { return s.db.Close() }
