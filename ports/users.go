package ports

import (
	"context"

	"github.com/midnight-labs/pincade/core"
)

// UserRepository resolves and creates identities. Lookups return
// core.ErrIdentityNotFound when no identity matches.
type UserRepository interface {
	GetByWallet(ctx context.Context, wallet string) (*core.Identity, error)
	GetByID(ctx context.Context, id string) (*core.Identity, error)
	Create(ctx context.Context, identity *core.Identity) error
}
