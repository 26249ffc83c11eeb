package forge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-forge/internal/derive"
	"github.com/Klingon-tech/klingnet-forge/internal/ledger"
	"github.com/Klingon-tech/klingnet-forge/internal/log"
	"github.com/Klingon-tech/klingnet-forge/internal/storage"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// Ingredient is one entry of a recipe: the asset to consume and how
// many units of it.
type Ingredient struct {
	Asset  types.AssetID `json:"asset"`
	Amount uint64        `json:"amount"`
}

// Recipe binds a class asset to the ordered ingredient list required
// to redeem one member of the class. Recipes are frozen at creation.
type Recipe struct {
	Address     types.Address `json:"address"`
	Class       types.AssetID `json:"class"`
	Creator     types.Address `json:"creator"`
	Ingredients []Ingredient  `json:"ingredients"`
	Nonce       uint8         `json:"nonce"`
}

// CreateRecipe publishes the recipe for a class asset. The caller must
// hold the authenticated class asset; the recipe lives at the address
// derived from the class and cannot be changed afterwards.
func (p *Program) CreateRecipe(caller types.Address, class types.AssetID, ingredients []Ingredient) (*Recipe, error) {
	auth, err := p.Authority()
	if err != nil {
		return nil, err
	}
	if err := validateIngredients(ingredients); err != nil {
		return nil, err
	}

	// Frozen recipes refuse re-creation before any other check; the
	// class card may have changed hands since publication.
	ok, err := p.store.Has(recipeKey(class))
	if err != nil {
		return nil, fmt.Errorf("recipe lookup: %w", err)
	}
	if ok {
		return nil, fmt.Errorf("%w: recipe for class %s", ErrAlreadyInitialized, class)
	}

	err = p.ledger.View(func(txn *ledger.Txn) error {
		if err := p.authenticateClassAsset(txn, caller, class, auth.Admin); err != nil {
			return err
		}
		// Every ingredient must name an existing asset.
		for i, ing := range ingredients {
			if _, err := txn.Mint(ing.Asset); err != nil {
				if errors.Is(err, ledger.ErrAssetNotFound) {
					return fmt.Errorf("%w: ingredient %d asset %s", ErrUninitialized, i, ing.Asset)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	addr, nonce, err := derive.Derive("recipe", class[:])
	if err != nil {
		return nil, fmt.Errorf("recipe derivation: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := recipeKey(class)
	ok, err = p.store.Has(key)
	if err != nil {
		return nil, fmt.Errorf("recipe lookup: %w", err)
	}
	if ok {
		return nil, fmt.Errorf("%w: recipe for class %s", ErrAlreadyInitialized, class)
	}

	recipe := &Recipe{
		Address:     addr,
		Class:       class,
		Creator:     caller,
		Ingredients: ingredients,
		Nonce:       nonce,
	}
	data, err := json.Marshal(recipe)
	if err != nil {
		return nil, fmt.Errorf("recipe marshal: %w", err)
	}
	if err := p.store.Put(key, data); err != nil {
		return nil, fmt.Errorf("recipe put: %w", err)
	}

	log.Forge.Info().
		Str("class", class.String()).
		Str("address", addr.String()).
		Int("ingredients", len(ingredients)).
		Msg("recipe created")
	return recipe, nil
}

// Recipe returns the recipe for a class asset, or ErrUninitialized.
// The stored record is re-verified against its derived address on
// every load, so a corrupted or substituted record is refused.
func (p *Program) Recipe(class types.AssetID) (*Recipe, error) {
	data, err := p.store.Get(recipeKey(class))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: recipe for class %s", ErrUninitialized, class)
	}
	if err != nil {
		return nil, fmt.Errorf("recipe get: %w", err)
	}
	var recipe Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, fmt.Errorf("recipe unmarshal: %w", err)
	}
	if recipe.Class != class {
		return nil, fmt.Errorf("%w: recipe record carries class %s, want %s", ErrMintMismatch, recipe.Class, class)
	}
	wantAddr, err := derive.DeriveWithNonce("recipe", recipe.Nonce, class[:])
	if err != nil || wantAddr != recipe.Address {
		return nil, fmt.Errorf("%w: recipe record for class %s at %s", ErrDerivationMismatch, class, recipe.Address)
	}
	if err := validateIngredients(recipe.Ingredients); err != nil {
		return nil, fmt.Errorf("recipe record corrupt: %w", err)
	}
	return &recipe, nil
}

// validateIngredients enforces the recipe shape: non-empty, positive
// amounts, no duplicate assets.
func validateIngredients(ingredients []Ingredient) error {
	if len(ingredients) == 0 {
		return fmt.Errorf("%w: recipe needs at least one ingredient", ErrQuantityInvalid)
	}
	seen := make(map[types.AssetID]struct{}, len(ingredients))
	for i, ing := range ingredients {
		if ing.Amount == 0 {
			return fmt.Errorf("%w: ingredient %d amount is zero", ErrQuantityInvalid, i)
		}
		if ing.Asset.IsZero() {
			return fmt.Errorf("%w: ingredient %d asset is zero", ErrMintMismatch, i)
		}
		if _, ok := seen[ing.Asset]; ok {
			return fmt.Errorf("%w: ingredient %d duplicates asset %s", ErrSequenceMismatch, i, ing.Asset)
		}
		seen[ing.Asset] = struct{}{}
	}
	return nil
}
