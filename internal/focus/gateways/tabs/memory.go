package tabs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"focusgate/internal/focus/services/guard"
)

// Memory is an in-process TabHost. It backs tests and serves as a
// stand-in until a real browser bridge is attached to the daemon.
type Memory struct {
	mu     sync.Mutex
	pages  map[int]string
	nextID int
}

func NewMemory() *Memory {
	return &Memory{pages: make(map[int]string)}
}

// Open adds a page and returns its tab id.
func (m *Memory) Open(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.pages[m.nextID] = url
	return m.nextID
}

// URL returns the current URL of a tab.
func (m *Memory) URL(id int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[id]
}

func (m *Memory) List(ctx context.Context) ([]guard.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]guard.Tab, 0, len(m.pages))
	for id, url := range m.pages {
		out = append(out, guard.Tab{ID: id, URL: url})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Navigate(ctx context.Context, id int, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[id]; !ok {
		return fmt.Errorf("no such tab: %d", id)
	}
	m.pages[id] = url
	return nil
}

var _ guard.TabHost = (*Memory)(nil)
