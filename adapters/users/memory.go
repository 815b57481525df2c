package users

import (
	"context"
	"sync"

	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/ports"
)

// MemoryRepository is an in-memory identity repository for tests
type MemoryRepository struct {
	byID     map[string]core.Identity
	byWallet map[string]core.Identity
	mu       sync.RWMutex
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[string]core.Identity),
		byWallet: make(map[string]core.Identity),
	}
}

var _ ports.UserRepository = (*MemoryRepository)(nil)

// GetByWallet looks up an identity by wallet address
func (r *MemoryRepository) GetByWallet(ctx context.Context, wallet string) (*core.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byWallet[wallet]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}
	return &identity, nil
}

// GetByID looks up an identity by user id
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*core.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byID[id]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}
	return &identity, nil
}

// Create inserts a new identity
func (r *MemoryRepository) Create(ctx context.Context, identity *core.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[identity.ID] = *identity
	r.byWallet[identity.WalletAddress] = *identity
	return nil
}

// Delete removes an identity. Used by tests to simulate a userId that
// no longer resolves.
func (r *MemoryRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if identity, ok := r.byID[id]; ok {
		delete(r.byWallet, identity.WalletAddress)
		delete(r.byID, id)
	}
}
