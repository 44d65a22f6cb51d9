package binding

import (
	"sort"
	"sync"
)

type State string

const (
	StateUnbound State = "unbound"
	StateBound   State = "bound"
)

// Color is the file button color shown for the state.
func (s State) Color() string {
	if s == StateBound {
		return "green"
	}
	return "lightgray"
}

// Binding links an uploaded file to its identity in the remote corpus.
// RemoteFileID is only set while the binding is bound.
type Binding struct {
	FileName     string `json:"file_name"`
	RemoteFileID string `json:"remote_file_id,omitempty"`
	State        State  `json:"state"`
	staged       []byte
}

// Registry tracks every file uploaded within one session, keyed by file name.
// Several files may be bound at the same time.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]*Binding
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]*Binding)}
}

// Stage registers a file as unbound, or refreshes the staged bytes of a known file.
func (r *Registry) Stage(fileName string, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bindings[fileName]; ok {
		b.staged = content
		return
	}
	r.bindings[fileName] = &Binding{FileName: fileName, State: StateUnbound, staged: content}
	r.order = append(r.order, fileName)
}

// Get returns a copy of the binding.
func (r *Registry) Get(fileName string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[fileName]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Staged returns the last uploaded bytes of a file. They survive binding so
// an unbound file can be bound again without a new upload.
func (r *Registry) Staged(fileName string) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.bindings[fileName]; ok {
		return b.staged
	}
	return nil
}

// MarkBound records the remote id. A file is bound to at most one remote id.
func (r *Registry) MarkBound(fileName, remoteFileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[fileName]
	if !ok {
		b = &Binding{FileName: fileName}
		r.bindings[fileName] = b
		r.order = append(r.order, fileName)
	}
	b.RemoteFileID = remoteFileID
	b.State = StateBound
}

// MarkUnbound forgets the remote id and returns the one that was on record.
func (r *Registry) MarkUnbound(fileName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[fileName]
	if !ok {
		return ""
	}
	prev := b.RemoteFileID
	b.RemoteFileID = ""
	b.State = StateUnbound
	return prev
}

// List returns the bindings in upload order.
func (r *Registry) List() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.bindings[name])
	}
	return out
}

// Bound returns the names of all currently bound files, sorted.
func (r *Registry) Bound() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, b := range r.bindings {
		if b.State == StateBound {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
