package ledger

import (
	"encoding/binary"

	"github.com/Klingon-tech/klingnet-forge/internal/derive"
	"github.com/Klingon-tech/klingnet-forge/pkg/crypto"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// Mint is the definition record of an asset: its total supply and the
// authority allowed to issue more units.
type Mint struct {
	Asset     types.AssetID `json:"asset"`
	Supply    uint64        `json:"supply"`
	Authority types.Address `json:"authority"`
	Decimals  uint8         `json:"decimals"`
}

// Holding tracks an owner's balance of one asset. Every holding lives
// at the address derived from (owner, asset), so a given owner has at
// most one holding per asset.
type Holding struct {
	Address types.Address `json:"address"`
	Owner   types.Address `json:"owner"`
	Asset   types.AssetID `json:"asset"`
	Amount  uint64        `json:"amount"`
}

// Creator is a metadata creator entry. Verified is set only by the
// creator itself signing for its own entry.
type Creator struct {
	Address  types.Address `json:"address"`
	Verified bool          `json:"verified"`
}

// Collection links an asset to its parent collection asset. Verified
// is set only by the collection's own authority.
type Collection struct {
	Asset    types.AssetID `json:"asset"`
	Verified bool          `json:"verified"`
}

// Metadata is the descriptive record of an asset, stored at the
// address derived from the asset ID.
type Metadata struct {
	Address    types.Address `json:"address"`
	Asset      types.AssetID `json:"asset"`
	Name       string        `json:"name"`
	Symbol     string        `json:"symbol"`
	Creators   []Creator     `json:"creators"`
	Collection *Collection   `json:"collection,omitempty"`
}

// MasterRecord caps the supply of an asset. MaxSupply of zero means
// the asset is unique (supply can never exceed one).
type MasterRecord struct {
	Address   types.Address `json:"address"`
	Asset     types.AssetID `json:"asset"`
	MaxSupply uint64        `json:"max_supply"`
}

// assetDomain separates asset IDs from every other BLAKE3 use.
const assetDomain = "kfg/asset/v1"

// DeriveAssetID computes a deterministic asset ID from the creator and
// the asset's symbol and name. The symbol length prefix keeps the
// encoding injective.
func DeriveAssetID(creator types.Address, symbol, name string) types.AssetID {
	buf := make([]byte, 0, len(assetDomain)+types.AddressSize+2+len(symbol)+len(name))
	buf = append(buf, assetDomain...)
	buf = append(buf, creator[:]...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(symbol)))
	buf = append(buf, symbol...)
	buf = append(buf, name...)
	return types.AssetID(crypto.Hash(buf))
}

// HoldingAddress returns the derived address of owner's holding for asset.
func HoldingAddress(owner types.Address, asset types.AssetID) (types.Address, error) {
	addr, _, err := derive.Derive("holding", owner[:], asset[:])
	return addr, err
}

// MetadataAddress returns the derived address of an asset's metadata record.
func MetadataAddress(asset types.AssetID) (types.Address, error) {
	addr, _, err := derive.Derive("metadata", asset[:])
	return addr, err
}

// MasterAddress returns the derived address of an asset's master record.
func MasterAddress(asset types.AssetID) (types.Address, error) {
	addr, _, err := derive.Derive("master", asset[:])
	return addr, err
}

// VerifiedCreator reports whether addr is a verified creator in the metadata.
func (m *Metadata) VerifiedCreator(addr types.Address) bool {
	for _, c := range m.Creators {
		if c.Address == addr && c.Verified {
			return true
		}
	}
	return false
}

// VerifiedCollection reports whether the metadata carries a verified
// link to the given collection asset.
func (m *Metadata) VerifiedCollection(collection types.AssetID) bool {
	return m.Collection != nil && m.Collection.Verified && m.Collection.Asset == collection
}
