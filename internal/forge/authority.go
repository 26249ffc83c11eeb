package forge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-forge/internal/derive"
	"github.com/Klingon-tech/klingnet-forge/internal/log"
	"github.com/Klingon-tech/klingnet-forge/internal/storage"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// Authority is the singleton program-signer record. Its address is
// derived with no seeds, so there is exactly one per deployment; the
// derived address owns escrow holdings and unreleased output assets,
// and no private key can sign for it.
type Authority struct {
	Address types.Address `json:"address"`
	Admin   types.Address `json:"admin"`
	Nonce   uint8         `json:"nonce"`
}

// Initialize creates the singleton authority record with admin as the
// operating administrator. A second call fails with ErrAlreadyInitialized.
func (p *Program) Initialize(admin types.Address) (*Authority, error) {
	if admin.IsZero() {
		return nil, fmt.Errorf("admin address must not be zero")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := p.store.Has(keyAuthority)
	if err != nil {
		return nil, fmt.Errorf("authority lookup: %w", err)
	}
	if ok {
		return nil, fmt.Errorf("%w: authority", ErrAlreadyInitialized)
	}

	addr, nonce, err := derive.Derive("authority")
	if err != nil {
		return nil, fmt.Errorf("authority derivation: %w", err)
	}

	auth := &Authority{Address: addr, Admin: admin, Nonce: nonce}
	data, err := json.Marshal(auth)
	if err != nil {
		return nil, fmt.Errorf("authority marshal: %w", err)
	}
	if err := p.store.Put(keyAuthority, data); err != nil {
		return nil, fmt.Errorf("authority put: %w", err)
	}

	log.Forge.Info().
		Str("address", addr.String()).
		Str("admin", admin.String()).
		Msg("authority initialized")
	return auth, nil
}

// Authority returns the singleton authority record, or ErrUninitialized.
func (p *Program) Authority() (*Authority, error) {
	data, err := p.store.Get(keyAuthority)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: authority", ErrUninitialized)
	}
	if err != nil {
		return nil, fmt.Errorf("authority get: %w", err)
	}
	var auth Authority
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("authority unmarshal: %w", err)
	}
	return &auth, nil
}
