package sequence

import (
	"fmt"
	"sync"
)

// Names of the sequences every default registry holds.
const (
	MessageNumber    = "messageNumber"
	CurrentTimestamp = "currentTimestamp"
)

// Registry holds named sequences and produces snapshots of their next values.
type Registry struct {
	mu        sync.RWMutex
	sequences map[string]Sequence
}

func NewRegistry() *Registry {
	return &Registry{sequences: make(map[string]Sequence)}
}

// NewDefaultRegistry returns a registry with a message number and a current
// timestamp sequence.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := r.Add(MessageNumber, Sync(NewNumber())); err != nil {
		return nil, err
	}
	if err := r.Add(CurrentTimestamp, Sync(NewTimestamp(nil))); err != nil {
		return nil, err
	}
	return r, nil
}

// Add registers seq under name, replacing a previous one, and resets it.
// A reset failure is returned and leaves the registry unchanged.
func (r *Registry) Add(name string, seq Sequence) error {
	if err := seq.Reset(); err != nil {
		return fmt.Errorf("sequence %s: %w", name, err)
	}
	r.mu.Lock()
	r.sequences[name] = seq
	r.mu.Unlock()
	return nil
}

// Get returns the sequence registered under name.
func (r *Registry) Get(name string) (Sequence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sequences[name]
	return s, ok
}

// Len returns the number of registered sequences.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sequences)
}

// Snapshot advances every sequence once and returns the published values.
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	values := make(map[string]string, len(r.sequences))
	for name, seq := range r.sequences {
		seq.PublishNext(name, values)
	}
	return values
}
