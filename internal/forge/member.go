package forge

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-forge/internal/ledger"
	"github.com/Klingon-tech/klingnet-forge/internal/log"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// RegisterMember records an asset as a redeemable member of a class.
// The caller must be the authority admin, the class must have a
// published recipe, and the member asset must already sit with the
// program authority carrying a verified link to the class. Repeat
// registration is idempotent.
func (p *Program) RegisterMember(caller types.Address, class, member types.AssetID) error {
	auth, err := p.Authority()
	if err != nil {
		return err
	}
	if caller != auth.Admin {
		return fmt.Errorf("%w: caller %s is not the admin", ErrOwnershipMismatch, caller)
	}
	if _, err := p.Recipe(class); err != nil {
		return err
	}

	err = p.ledger.View(func(txn *ledger.Txn) error {
		return p.authenticateMemberAsset(txn, auth.Address, member, class, auth.Admin)
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := memberKey(class, member)
	ok, err := p.store.Has(key)
	if err != nil {
		return fmt.Errorf("member lookup: %w", err)
	}
	if ok {
		return nil
	}
	if err := p.store.Put(key, member[:]); err != nil {
		return fmt.Errorf("member put: %w", err)
	}

	log.Forge.Info().
		Str("class", class.String()).
		Str("member", member.String()).
		Msg("member registered")
	return nil
}

// IsMember reports whether member is registered under class.
func (p *Program) IsMember(class, member types.AssetID) (bool, error) {
	return p.store.Has(memberKey(class, member))
}

// ListMembers returns the registered member assets of a class.
func (p *Program) ListMembers(class types.AssetID) ([]types.AssetID, error) {
	members := []types.AssetID{}
	err := p.store.ForEach(memberPrefix(class), func(key, value []byte) error {
		if len(value) != types.HashSize {
			return nil // Malformed entry, skip.
		}
		var id types.AssetID
		copy(id[:], value)
		members = append(members, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("member list: %w", err)
	}
	return members, nil
}
