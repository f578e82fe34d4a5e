package server

import (
	"sync"

	x402 "github.com/google-a2a/a2a-x402-go"
)

// RequirementsStore remembers the payment options offered for each task so
// submitted payments can be verified against the original demand. Entries
// live from the demand until the payment reaches a terminal status.
//
// The store is process-local; a horizontally scaled deployment needs sticky
// routing or an external store behind this interface.
type RequirementsStore interface {
	Put(taskID string, accepts []x402.PaymentRequirements)
	Get(taskID string) ([]x402.PaymentRequirements, bool)
	Delete(taskID string)
}

// MemoryRequirementsStore is the default in-memory RequirementsStore.
type MemoryRequirementsStore struct {
	mu       sync.RWMutex
	requires map[string][]x402.PaymentRequirements
}

// NewMemoryRequirementsStore creates an empty in-memory store.
func NewMemoryRequirementsStore() *MemoryRequirementsStore {
	return &MemoryRequirementsStore{
		requires: make(map[string][]x402.PaymentRequirements),
	}
}

// Put records the payment options offered for a task, replacing any prior
// entry.
func (s *MemoryRequirementsStore) Put(taskID string, accepts []x402.PaymentRequirements) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requires[taskID] = accepts
}

// Get returns the payment options offered for a task.
func (s *MemoryRequirementsStore) Get(taskID string) ([]x402.PaymentRequirements, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accepts, ok := s.requires[taskID]
	return accepts, ok
}

// Delete removes a task's entry.
func (s *MemoryRequirementsStore) Delete(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requires, taskID)
}
