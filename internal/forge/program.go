// Package forge implements the recipe-publish/redeem program: a
// bootstrap authority, frozen recipes addressed by their class asset,
// asset authenticity checks, and the atomic craft exchange that trades
// recipe ingredients into escrow for one authenticated output unit.
package forge

import (
	"sync"

	"github.com/Klingon-tech/klingnet-forge/internal/ledger"
	"github.com/Klingon-tech/klingnet-forge/internal/storage"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// Key layout within the program store.
var (
	keyAuthority = []byte("fa")  // fa                         -> Authority JSON
	prefixRecipe = []byte("fr/") // fr/<class(32)>             -> Recipe JSON
	prefixMember = []byte("fm/") // fm/<class(32)><member(32)> -> member asset(32)
)

// Program is the forge program instance. Its own records (authority,
// recipes, member registry) live in store; asset state lives in the
// ledger.
type Program struct {
	mu     sync.Mutex // serializes create-once writes to store
	store  storage.DB
	ledger *ledger.Ledger
}

// New creates a program over its record store and the asset ledger.
func New(store storage.DB, l *ledger.Ledger) *Program {
	return &Program{store: store, ledger: l}
}

// Ledger exposes the underlying asset ledger for read paths.
func (p *Program) Ledger() *ledger.Ledger {
	return p.ledger
}

func recipeKey(class types.AssetID) []byte {
	key := make([]byte, len(prefixRecipe)+types.HashSize)
	copy(key, prefixRecipe)
	copy(key[len(prefixRecipe):], class[:])
	return key
}

func memberKey(class, member types.AssetID) []byte {
	key := make([]byte, len(prefixMember)+2*types.HashSize)
	copy(key, prefixMember)
	copy(key[len(prefixMember):], class[:])
	copy(key[len(prefixMember)+types.HashSize:], member[:])
	return key
}

func memberPrefix(class types.AssetID) []byte {
	key := make([]byte, len(prefixMember)+types.HashSize)
	copy(key, prefixMember)
	copy(key[len(prefixMember):], class[:])
	return key
}
