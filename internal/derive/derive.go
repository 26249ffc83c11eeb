// Package derive computes deterministic program-derived addresses.
//
// A derived address is produced from a namespace tag plus an ordered
// list of seeds. The derivation candidate is rejected whenever it
// decodes as a valid secp256k1 x-coordinate, so no private key can
// ever sign for a derived address; the nonce that survives the search
// is part of the address identity and can be re-verified by anyone.
package derive

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/Klingon-tech/klingnet-forge/pkg/crypto"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

const (
	// MaxSeeds is the maximum number of seeds per derivation.
	MaxSeeds = 16
	// MaxSeedLen is the maximum length of a single seed in bytes.
	MaxSeedLen = 32

	// domainPrefix separates derivation candidates from every other
	// BLAKE3 use in the system.
	domainPrefix = "kfg/forge/pda/v1"

	// addressDomain prefixes the candidate before hashing down to an
	// address, keeping derived addresses disjoint from pubkey-derived
	// ones (those hash a 33-byte compressed key starting 0x02/0x03).
	addressDomain = 0xff
)

var (
	// ErrTooManySeeds is returned when more than MaxSeeds seeds are given.
	ErrTooManySeeds = errors.New("too many seeds")
	// ErrSeedTooLong is returned when a seed exceeds MaxSeedLen bytes.
	ErrSeedTooLong = errors.New("seed too long")
	// ErrNonceExhausted is returned when no off-curve candidate exists
	// in the 0..255 nonce range. Cryptographically this is unreachable
	// in practice; callers must still treat it as fatal.
	ErrNonceExhausted = errors.New("nonce space exhausted")
	// ErrOnCurve is returned by DeriveWithNonce when the candidate for
	// the given nonce decodes as a valid curve point.
	ErrOnCurve = errors.New("candidate is on curve")
)

// Derive searches for the first nonce in [0, 255] whose candidate is
// off-curve and returns the resulting address together with that nonce.
// The same tag and seeds always yield the same address and nonce.
func Derive(tag string, seeds ...[]byte) (types.Address, uint8, error) {
	if err := checkSeeds(seeds); err != nil {
		return types.Address{}, 0, err
	}
	for nonce := 0; nonce <= 255; nonce++ {
		cand := candidate(tag, uint8(nonce), seeds)
		if isOnCurve(cand) {
			continue
		}
		return candidateAddress(cand), uint8(nonce), nil
	}
	return types.Address{}, 0, ErrNonceExhausted
}

// DeriveWithNonce recomputes the address for a known nonce. It returns
// ErrOnCurve if the candidate for that nonce is a valid curve point,
// which means the nonce was never a legitimate search result.
func DeriveWithNonce(tag string, nonce uint8, seeds ...[]byte) (types.Address, error) {
	if err := checkSeeds(seeds); err != nil {
		return types.Address{}, err
	}
	cand := candidate(tag, nonce, seeds)
	if isOnCurve(cand) {
		return types.Address{}, ErrOnCurve
	}
	return candidateAddress(cand), nil
}

// Verify reports whether addr is the derived address for tag and seeds.
func Verify(addr types.Address, tag string, seeds ...[]byte) bool {
	derived, _, err := Derive(tag, seeds...)
	if err != nil {
		return false
	}
	return derived == addr
}

func checkSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return fmt.Errorf("%w: %d > %d", ErrTooManySeeds, len(seeds), MaxSeeds)
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLen {
			return fmt.Errorf("%w: seed %d is %d bytes, max %d", ErrSeedTooLong, i, len(s), MaxSeedLen)
		}
	}
	return nil
}

// candidate hashes the domain prefix, the length-prefixed tag, each
// length-prefixed seed in order, and the trailing nonce byte. Length
// prefixes make the encoding injective: no two seed lists collide.
func candidate(tag string, nonce uint8, seeds [][]byte) types.Hash {
	size := len(domainPrefix) + 2 + len(tag) + 1
	for _, s := range seeds {
		size += 1 + len(s)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, domainPrefix...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(tag)))
	buf = append(buf, tag...)
	for _, s := range seeds {
		buf = append(buf, byte(len(s)))
		buf = append(buf, s...)
	}
	buf = append(buf, nonce)
	return crypto.Hash(buf)
}

// isOnCurve reports whether the candidate is a valid secp256k1
// x-coordinate. Roughly half of all candidates are, so the nonce
// search terminates almost immediately.
func isOnCurve(cand types.Hash) bool {
	var compressed [33]byte
	compressed[0] = secp256k1.PubKeyFormatCompressedEven
	copy(compressed[1:], cand[:])
	_, err := secp256k1.ParsePubKey(compressed[:])
	return err == nil
}

// candidateAddress hashes the off-curve candidate down to an address.
func candidateAddress(cand types.Hash) types.Address {
	buf := make([]byte, 1+types.HashSize)
	buf[0] = addressDomain
	copy(buf[1:], cand[:])
	h := crypto.Hash(buf)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}
