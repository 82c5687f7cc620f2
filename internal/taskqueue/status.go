package taskqueue

import "sync"

// State is the lifecycle state of a queued task.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is the externally observable view of a task. Meta carries
// handler-reported progress while the task is running; Result is set
// on success and Error on failure.
type Status struct {
	State  State          `json:"state"`
	Meta   map[string]any `json:"meta,omitempty"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// StatusStore is a key-value store of task status keyed by task id.
// The in-memory implementation can be swapped for a distributed one
// without touching the queue.
type StatusStore interface {
	Set(id string, st Status)
	SetMeta(id string, meta map[string]any)
	Get(id string) (Status, bool)
}

type memoryStatusStore struct {
	mu    sync.RWMutex
	items map[string]Status
}

// NewMemoryStatusStore returns a process-local StatusStore.
func NewMemoryStatusStore() StatusStore {
	return &memoryStatusStore{items: make(map[string]Status)}
}

func (s *memoryStatusStore) Set(id string, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = st
}

func (s *memoryStatusStore) SetMeta(id string, meta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[id]
	if !ok {
		return
	}
	st.Meta = meta
	s.items[id] = st
}

func (s *memoryStatusStore) Get(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.items[id]
	return st, ok
}
