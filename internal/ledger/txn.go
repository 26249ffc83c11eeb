package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-forge/internal/storage"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// Txn is a ledger transaction. Reads see staged writes from the same
// transaction; nothing reaches the backing store until commit.
type Txn struct {
	ledger   *Ledger
	readOnly bool
	staged   map[string][]byte // nil value means delete
}

// get reads a key through the overlay.
func (t *Txn) get(key []byte) ([]byte, error) {
	if t.staged != nil {
		if v, ok := t.staged[string(key)]; ok {
			if v == nil {
				return nil, storage.ErrNotFound
			}
			return v, nil
		}
	}
	return t.ledger.db.Get(key)
}

// put stages a JSON-encoded record.
func (t *Txn) put(key []byte, record any) error {
	if t.readOnly {
		return ErrReadOnly
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("ledger marshal: %w", err)
	}
	t.staged[string(key)] = data
	return nil
}

// putRaw stages a raw value.
func (t *Txn) putRaw(key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	v := make([]byte, len(value))
	copy(v, value)
	t.staged[string(key)] = v
	return nil
}

// Holding retrieves the holding at addr, or ErrHoldingNotFound.
func (t *Txn) Holding(addr types.Address) (*Holding, error) {
	data, err := t.get(holdingKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrHoldingNotFound, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("holding get: %w", err)
	}
	var h Holding
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("holding unmarshal: %w", err)
	}
	return &h, nil
}

// HoldingOf retrieves owner's holding for asset via the derived address.
func (t *Txn) HoldingOf(owner types.Address, asset types.AssetID) (*Holding, error) {
	addr, err := HoldingAddress(owner, asset)
	if err != nil {
		return nil, err
	}
	return t.Holding(addr)
}

// Mint retrieves the mint record of an asset, or ErrAssetNotFound.
func (t *Txn) Mint(asset types.AssetID) (*Mint, error) {
	data, err := t.get(mintKey(asset))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	if err != nil {
		return nil, fmt.Errorf("mint get: %w", err)
	}
	var m Mint
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("mint unmarshal: %w", err)
	}
	return &m, nil
}

// Metadata retrieves the metadata record of an asset, or ErrMetadataNotFound.
func (t *Txn) Metadata(asset types.AssetID) (*Metadata, error) {
	data, err := t.get(metaKey(asset))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, asset)
	}
	if err != nil {
		return nil, fmt.Errorf("metadata get: %w", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("metadata unmarshal: %w", err)
	}
	return &m, nil
}

// Master retrieves the master record of an asset, or ErrMasterNotFound.
func (t *Txn) Master(asset types.AssetID) (*MasterRecord, error) {
	data, err := t.get(masterKey(asset))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMasterNotFound, asset)
	}
	if err != nil {
		return nil, fmt.Errorf("master get: %w", err)
	}
	var m MasterRecord
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("master unmarshal: %w", err)
	}
	return &m, nil
}

// CreateAsset registers a new asset: a mint record with zero supply
// and a metadata record carrying the authority as a verified creator
// (the authority signs the creation). Returns ErrAssetExists if the
// same authority already created an asset with this symbol and name.
func (t *Txn) CreateAsset(authority types.Address, name, symbol string, decimals uint8) (types.AssetID, error) {
	if name == "" || symbol == "" {
		return types.AssetID{}, fmt.Errorf("asset name and symbol must be non-empty")
	}
	asset := DeriveAssetID(authority, symbol, name)

	if _, err := t.Mint(asset); err == nil {
		return types.AssetID{}, fmt.Errorf("%w: %s", ErrAssetExists, asset)
	} else if !errors.Is(err, ErrAssetNotFound) {
		return types.AssetID{}, err
	}

	metaAddr, err := MetadataAddress(asset)
	if err != nil {
		return types.AssetID{}, err
	}

	mint := &Mint{Asset: asset, Supply: 0, Authority: authority, Decimals: decimals}
	if err := t.put(mintKey(asset), mint); err != nil {
		return types.AssetID{}, err
	}
	meta := &Metadata{
		Address:  metaAddr,
		Asset:    asset,
		Name:     name,
		Symbol:   symbol,
		Creators: []Creator{{Address: authority, Verified: true}},
	}
	if err := t.put(metaKey(asset), meta); err != nil {
		return types.AssetID{}, err
	}
	return asset, nil
}

// CreateMaster attaches a supply cap to an asset. Only the mint
// authority may do this, and only once.
func (t *Txn) CreateMaster(asset types.AssetID, maxSupply uint64, authority types.Address) error {
	mint, err := t.Mint(asset)
	if err != nil {
		return err
	}
	if mint.Authority != authority {
		return fmt.Errorf("%w: %s", ErrNotAuthority, authority)
	}
	if _, err := t.Master(asset); err == nil {
		return fmt.Errorf("master record already exists for %s", asset)
	} else if !errors.Is(err, ErrMasterNotFound) {
		return err
	}

	addr, err := MasterAddress(asset)
	if err != nil {
		return err
	}
	return t.put(masterKey(asset), &MasterRecord{Address: addr, Asset: asset, MaxSupply: maxSupply})
}

// MintTo issues amount new units of asset to owner. Only the mint
// authority may issue, and the master record's cap (if present) is
// enforced. MaxSupply of zero caps supply at one unit.
func (t *Txn) MintTo(asset types.AssetID, owner types.Address, amount uint64, authority types.Address) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	mint, err := t.Mint(asset)
	if err != nil {
		return err
	}
	if mint.Authority != authority {
		return fmt.Errorf("%w: %s", ErrNotAuthority, authority)
	}

	if amount > math.MaxUint64-mint.Supply {
		return fmt.Errorf("%w: supply %d + %d overflows", ErrSupplyExceeded, mint.Supply, amount)
	}

	master, err := t.Master(asset)
	if err != nil && !errors.Is(err, ErrMasterNotFound) {
		return err
	}
	if master != nil {
		limit := master.MaxSupply
		if limit == 0 {
			limit = 1
		}
		if mint.Supply >= limit || amount > limit-mint.Supply {
			return fmt.Errorf("%w: supply %d + %d > %d", ErrSupplyExceeded, mint.Supply, amount, limit)
		}
	}

	holding, err := t.EnsureHolding(owner, asset)
	if err != nil {
		return err
	}
	holding.Amount += amount
	if err := t.put(holdingKey(holding.Address), holding); err != nil {
		return err
	}

	mint.Supply += amount
	return t.put(mintKey(asset), mint)
}

// EnsureHolding returns owner's holding for asset, creating an empty
// one at the derived address if none exists. An existing record with
// matching owner and asset is returned as-is; a record at the derived
// address that does not match is ErrHoldingConflict.
func (t *Txn) EnsureHolding(owner types.Address, asset types.AssetID) (*Holding, error) {
	if _, err := t.Mint(asset); err != nil {
		return nil, err
	}
	addr, err := HoldingAddress(owner, asset)
	if err != nil {
		return nil, err
	}

	existing, err := t.Holding(addr)
	if err == nil {
		if existing.Owner != owner || existing.Asset != asset {
			return nil, fmt.Errorf("%w: at %s", ErrHoldingConflict, addr)
		}
		return existing, nil
	}
	if !errors.Is(err, ErrHoldingNotFound) {
		return nil, err
	}

	h := &Holding{Address: addr, Owner: owner, Asset: asset, Amount: 0}
	if err := t.put(holdingKey(addr), h); err != nil {
		return nil, err
	}
	if err := t.putRaw(ownerKey(owner, asset), addr[:]); err != nil {
		return nil, err
	}
	return h, nil
}

// Transfer moves amount units between two holdings of the same asset.
// The debit side must be owned by signer.
func (t *Txn) Transfer(from, to types.Address, amount uint64, signer types.Address) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if from == to {
		return fmt.Errorf("transfer to self: %s", from)
	}

	src, err := t.Holding(from)
	if err != nil {
		return err
	}
	if src.Owner != signer {
		return fmt.Errorf("%w: holding %s, signer %s", ErrNotOwner, from, signer)
	}
	dst, err := t.Holding(to)
	if err != nil {
		return err
	}
	if src.Asset != dst.Asset {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, src.Asset, dst.Asset)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, src.Amount, amount)
	}

	src.Amount -= amount
	dst.Amount += amount
	if err := t.put(holdingKey(from), src); err != nil {
		return err
	}
	return t.put(holdingKey(to), dst)
}

// SetCollection links asset to a parent collection asset, unverified.
// Only the asset's mint authority may set the link.
func (t *Txn) SetCollection(asset, collection types.AssetID, authority types.Address) error {
	mint, err := t.Mint(asset)
	if err != nil {
		return err
	}
	if mint.Authority != authority {
		return fmt.Errorf("%w: %s", ErrNotAuthority, authority)
	}
	if _, err := t.Mint(collection); err != nil {
		return fmt.Errorf("collection %w", err)
	}

	meta, err := t.Metadata(asset)
	if err != nil {
		return err
	}
	meta.Collection = &Collection{Asset: collection, Verified: false}
	return t.put(metaKey(asset), meta)
}

// VerifyCollection marks an asset's collection link as verified. Only
// the collection asset's own authority may verify.
func (t *Txn) VerifyCollection(asset types.AssetID, signer types.Address) error {
	meta, err := t.Metadata(asset)
	if err != nil {
		return err
	}
	if meta.Collection == nil {
		return fmt.Errorf("asset %s has no collection link", asset)
	}
	collectionMint, err := t.Mint(meta.Collection.Asset)
	if err != nil {
		return err
	}
	if collectionMint.Authority != signer {
		return fmt.Errorf("%w: %s", ErrNotAuthority, signer)
	}
	meta.Collection.Verified = true
	return t.put(metaKey(asset), meta)
}

// VerifyCreator marks signer's own creator entry as verified.
func (t *Txn) VerifyCreator(asset types.AssetID, signer types.Address) error {
	meta, err := t.Metadata(asset)
	if err != nil {
		return err
	}
	for i := range meta.Creators {
		if meta.Creators[i].Address == signer {
			meta.Creators[i].Verified = true
			return t.put(metaKey(asset), meta)
		}
	}
	return fmt.Errorf("%w: %s", ErrCreatorNotFound, signer)
}

// AddCreator appends an unverified creator entry. Only the mint
// authority may amend the creator list.
func (t *Txn) AddCreator(asset types.AssetID, creator, authority types.Address) error {
	mint, err := t.Mint(asset)
	if err != nil {
		return err
	}
	if mint.Authority != authority {
		return fmt.Errorf("%w: %s", ErrNotAuthority, authority)
	}
	meta, err := t.Metadata(asset)
	if err != nil {
		return err
	}
	for _, c := range meta.Creators {
		if c.Address == creator {
			return fmt.Errorf("creator %s already listed", creator)
		}
	}
	meta.Creators = append(meta.Creators, Creator{Address: creator, Verified: false})
	return t.put(metaKey(asset), meta)
}
