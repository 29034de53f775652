package flow

import (
	"time"

	"github.com/BTreeMap/LockIn/internal/store"
)

// NewMockStateManager creates a state manager over a fresh in-memory store for testing.
func NewMockStateManager(ttl time.Duration) *StoreBasedStateManager {
	return NewStoreBasedStateManager(store.NewInMemoryStore(), ttl)
}
