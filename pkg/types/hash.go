// Package types defines core primitive types for the Forge ledger.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value.
type Hash [HashSize]byte

// AssetID identifies an asset class (a mint). Class-defining assets and
// member assets alike are named by their AssetID.
type AssetID Hash

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(decoded) != HashSize {
		return fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(decoded))
	}
	copy(h[:], decoded)
	return nil
}

// HexToHash converts a hex string to a Hash.
// Returns an error if the string is not exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// IsZero returns true if the asset ID is all zeros.
func (a AssetID) IsZero() bool {
	return Hash(a).IsZero()
}

// String returns the hex-encoded asset ID.
func (a AssetID) String() string {
	return Hash(a).String()
}

// Bytes returns a copy of the asset ID as a byte slice.
func (a AssetID) Bytes() []byte {
	return Hash(a).Bytes()
}

// MarshalJSON encodes the asset ID as a hex string.
func (a AssetID) MarshalJSON() ([]byte, error) {
	return Hash(a).MarshalJSON()
}

// UnmarshalJSON decodes a hex string into an asset ID.
func (a *AssetID) UnmarshalJSON(data []byte) error {
	return (*Hash)(a).UnmarshalJSON(data)
}

// HexToAssetID converts a hex string to an AssetID.
func HexToAssetID(s string) (AssetID, error) {
	h, err := HexToHash(s)
	if err != nil {
		return AssetID{}, err
	}
	return AssetID(h), nil
}
