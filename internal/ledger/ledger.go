// Package ledger implements the asset-holding service: mints,
// balances, metadata, and supply caps, persisted as JSON records at
// deterministically derived addresses.
//
// All mutation happens inside Update, which stages writes on an
// overlay and commits them to the backing store in a single atomic
// batch. A failing Update leaves the store untouched.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-forge/internal/storage"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// Key layout within the backing store.
var (
	prefixMint    = []byte("mi/") // mi/<asset(32)>            -> Mint JSON
	prefixHolding = []byte("ho/") // ho/<address(20)>          -> Holding JSON
	prefixMeta    = []byte("md/") // md/<asset(32)>            -> Metadata JSON
	prefixMaster  = []byte("me/") // me/<asset(32)>            -> MasterRecord JSON
	prefixOwner   = []byte("ox/") // ox/<owner(20)><asset(32)> -> holding address(20)
)

// Errors returned by ledger operations.
var (
	ErrAssetNotFound       = errors.New("asset not found")
	ErrAssetExists         = errors.New("asset already exists")
	ErrHoldingNotFound     = errors.New("holding not found")
	ErrHoldingConflict     = errors.New("holding exists with different owner or asset")
	ErrMetadataNotFound    = errors.New("metadata not found")
	ErrMasterNotFound      = errors.New("master record not found")
	ErrNotOwner            = errors.New("signer does not own holding")
	ErrNotAuthority        = errors.New("signer is not the asset authority")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAssetMismatch       = errors.New("holdings are for different assets")
	ErrZeroAmount          = errors.New("amount must be positive")
	ErrSupplyExceeded      = errors.New("max supply exceeded")
	ErrCreatorNotFound     = errors.New("creator not in metadata")
	ErrReadOnly            = errors.New("write inside read-only view")
)

// Ledger provides transactional access to asset records.
type Ledger struct {
	mu sync.RWMutex
	db storage.DB
}

// New creates a ledger over the given store.
func New(db storage.DB) *Ledger {
	return &Ledger{db: db}
}

// View runs fn with a read-only transaction.
func (l *Ledger) View(fn func(*Txn) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(&Txn{ledger: l, readOnly: true})
}

// Update runs fn with a writable transaction. All writes are staged on
// an overlay; if fn returns nil they are committed in one atomic batch,
// otherwise they are discarded.
func (l *Ledger) Update(fn func(*Txn) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := &Txn{ledger: l, staged: make(map[string][]byte)}
	if err := fn(txn); err != nil {
		return err
	}
	return l.commit(txn)
}

// commit flushes the staged overlay to the backing store.
func (l *Ledger) commit(txn *Txn) error {
	if len(txn.staged) == 0 {
		return nil
	}
	batcher, ok := l.db.(storage.Batcher)
	if !ok {
		// Sequential fallback for stores without batch support.
		for k, v := range txn.staged {
			if v == nil {
				if err := l.db.Delete([]byte(k)); err != nil {
					return fmt.Errorf("ledger commit: %w", err)
				}
				continue
			}
			if err := l.db.Put([]byte(k), v); err != nil {
				return fmt.Errorf("ledger commit: %w", err)
			}
		}
		return nil
	}

	batch := batcher.NewBatch()
	for k, v := range txn.staged {
		if v == nil {
			if err := batch.Delete([]byte(k)); err != nil {
				return fmt.Errorf("ledger commit: %w", err)
			}
			continue
		}
		if err := batch.Put([]byte(k), v); err != nil {
			return fmt.Errorf("ledger commit: %w", err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("ledger commit: %w", err)
	}
	return nil
}

// GetHolding retrieves the holding at the given address.
func (l *Ledger) GetHolding(addr types.Address) (*Holding, error) {
	var h *Holding
	err := l.View(func(txn *Txn) error {
		var err error
		h, err = txn.Holding(addr)
		return err
	})
	return h, err
}

// GetHoldingOf retrieves owner's holding for asset.
func (l *Ledger) GetHoldingOf(owner types.Address, asset types.AssetID) (*Holding, error) {
	var h *Holding
	err := l.View(func(txn *Txn) error {
		var err error
		h, err = txn.HoldingOf(owner, asset)
		return err
	})
	return h, err
}

// GetMint retrieves the mint record of an asset.
func (l *Ledger) GetMint(asset types.AssetID) (*Mint, error) {
	var m *Mint
	err := l.View(func(txn *Txn) error {
		var err error
		m, err = txn.Mint(asset)
		return err
	})
	return m, err
}

// GetMetadata retrieves the metadata record of an asset.
func (l *Ledger) GetMetadata(asset types.AssetID) (*Metadata, error) {
	var m *Metadata
	err := l.View(func(txn *Txn) error {
		var err error
		m, err = txn.Metadata(asset)
		return err
	})
	return m, err
}

// GetMaster retrieves the master record of an asset.
func (l *Ledger) GetMaster(asset types.AssetID) (*MasterRecord, error) {
	var m *MasterRecord
	err := l.View(func(txn *Txn) error {
		var err error
		m, err = txn.Master(asset)
		return err
	})
	return m, err
}

// MintEntry pairs a mint with its metadata for listings.
type MintEntry struct {
	Mint
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// ListAssets returns every asset's mint record with its name and symbol.
func (l *Ledger) ListAssets() ([]MintEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := []MintEntry{}
	err := l.db.ForEach(prefixMint, func(key, value []byte) error {
		var m Mint
		if err := json.Unmarshal(value, &m); err != nil {
			return nil // Skip corrupt entries.
		}
		entry := MintEntry{Mint: m}
		if data, err := l.db.Get(metaKey(m.Asset)); err == nil {
			var meta Metadata
			if json.Unmarshal(data, &meta) == nil {
				entry.Name = meta.Name
				entry.Symbol = meta.Symbol
			}
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// HoldingsOf returns every holding owned by the given address.
func (l *Ledger) HoldingsOf(owner types.Address) ([]Holding, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	prefix := make([]byte, len(prefixOwner)+types.AddressSize)
	copy(prefix, prefixOwner)
	copy(prefix[len(prefixOwner):], owner[:])

	holdings := []Holding{}
	err := l.db.ForEach(prefix, func(key, value []byte) error {
		if len(value) != types.AddressSize {
			return nil // Malformed index entry, skip.
		}
		var addr types.Address
		copy(addr[:], value)
		data, err := l.db.Get(holdingKey(addr))
		if err != nil {
			return nil // Dangling index entry, skip.
		}
		var h Holding
		if err := json.Unmarshal(data, &h); err != nil {
			return nil
		}
		holdings = append(holdings, h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

func mintKey(asset types.AssetID) []byte {
	key := make([]byte, len(prefixMint)+types.HashSize)
	copy(key, prefixMint)
	copy(key[len(prefixMint):], asset[:])
	return key
}

func holdingKey(addr types.Address) []byte {
	key := make([]byte, len(prefixHolding)+types.AddressSize)
	copy(key, prefixHolding)
	copy(key[len(prefixHolding):], addr[:])
	return key
}

func metaKey(asset types.AssetID) []byte {
	key := make([]byte, len(prefixMeta)+types.HashSize)
	copy(key, prefixMeta)
	copy(key[len(prefixMeta):], asset[:])
	return key
}

func masterKey(asset types.AssetID) []byte {
	key := make([]byte, len(prefixMaster)+types.HashSize)
	copy(key, prefixMaster)
	copy(key[len(prefixMaster):], asset[:])
	return key
}

func ownerKey(owner types.Address, asset types.AssetID) []byte {
	key := make([]byte, len(prefixOwner)+types.AddressSize+types.HashSize)
	copy(key, prefixOwner)
	copy(key[len(prefixOwner):], owner[:])
	copy(key[len(prefixOwner)+types.AddressSize:], asset[:])
	return key
}
