package criteria

import "sync"

// Entry is one rendered row of the status board.
type Entry struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Color  string `json:"color"`
}

// Board maps every criterion of a catalog to its current verdict.
// Statuses are overwritten, never appended.
type Board struct {
	mu       sync.RWMutex
	order    []string
	statuses map[string]Status
}

func NewBoard(c *Catalog) *Board {
	b := &Board{statuses: make(map[string]Status, len(c.Criteria))}
	for _, cr := range c.Criteria {
		b.order = append(b.order, cr.Name)
		b.statuses[cr.Name] = StatusUnknown
	}
	return b
}

func (b *Board) Set(name string, s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.statuses[name]; !ok {
		b.order = append(b.order, name)
	}
	b.statuses[name] = s
}

func (b *Board) Get(name string) Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if s, ok := b.statuses[name]; ok {
		return s
	}
	return StatusUnknown
}

// Reset puts every criterion back to unknown.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name := range b.statuses {
		b.statuses[name] = StatusUnknown
	}
}

// Snapshot returns the board in catalog order.
func (b *Board) Snapshot() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, 0, len(b.order))
	for _, name := range b.order {
		s := b.statuses[name]
		out = append(out, Entry{Name: name, Status: s, Color: s.Color()})
	}
	return out
}

// Statuses returns a name -> status copy.
func (b *Board) Statuses() map[string]Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]Status, len(b.statuses))
	for k, v := range b.statuses {
		out[k] = v
	}
	return out
}
