package forge

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-forge/internal/ledger"
	"github.com/Klingon-tech/klingnet-forge/internal/log"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// IngredientSlot names the accounts supplied for one recipe position:
// the asset being consumed, the caller's holding to debit, and the
// escrow holding to credit. Slots must arrive in recipe order.
type IngredientSlot struct {
	Asset   types.AssetID `json:"asset"`
	Holding types.Address `json:"holding"`
	Escrow  types.Address `json:"escrow"`
}

// CraftReceipt reports a completed exchange.
type CraftReceipt struct {
	Class         types.AssetID `json:"class"`
	Output        types.AssetID `json:"output"`
	OutputHolding types.Address `json:"output_holding"`
	Consumed      []Ingredient  `json:"consumed"`
}

// Craft redeems one unit of the named output member asset against the
// class recipe. The caller must hold the authenticated class asset;
// ingredient slots are then consumed in lockstep with the recipe
// sequence: each debit is signed by the caller, escrow holdings are
// created idempotently, and the single output unit is released under
// the program authority's signature. The whole exchange commits
// atomically; any failed check leaves every balance untouched.
func (p *Program) Craft(caller types.Address, class, output types.AssetID, slots []IngredientSlot) (*CraftReceipt, error) {
	auth, err := p.Authority()
	if err != nil {
		return nil, err
	}
	recipe, err := p.Recipe(class)
	if err != nil {
		return nil, err
	}
	if len(slots) != len(recipe.Ingredients) {
		return nil, fmt.Errorf("%w: %d slots for %d ingredients", ErrSequenceMismatch, len(slots), len(recipe.Ingredients))
	}

	registered, err := p.IsMember(class, output)
	if err != nil {
		return nil, fmt.Errorf("member lookup: %w", err)
	}
	if !registered {
		return nil, fmt.Errorf("%w: asset %s is not a registered member of class %s", ErrUnverifiedLinkage, output, class)
	}

	receipt := &CraftReceipt{Class: class, Output: output, Consumed: recipe.Ingredients}
	err = p.ledger.Update(func(txn *ledger.Txn) error {
		// Redemption is gated on the class asset itself: the caller
		// must hold its single authenticated unit.
		if err := p.authenticateClassAsset(txn, caller, class, auth.Admin); err != nil {
			return err
		}
		for i, ing := range recipe.Ingredients {
			if err := p.consumeIngredient(txn, caller, auth.Address, ing, slots[i], i); err != nil {
				return err
			}
		}
		return p.releaseOutput(txn, caller, auth, class, output, receipt)
	})
	if err != nil {
		return nil, err
	}

	log.Forge.Info().
		Str("caller", caller.String()).
		Str("class", class.String()).
		Str("output", output.String()).
		Int("ingredients", len(recipe.Ingredients)).
		Msg("craft complete")
	return receipt, nil
}

// consumeIngredient moves one recipe position's amount from the
// caller's holding into program escrow.
func (p *Program) consumeIngredient(txn *ledger.Txn, caller, authority types.Address, ing Ingredient, slot IngredientSlot, pos int) error {
	if slot.Asset != ing.Asset {
		return fmt.Errorf("%w: slot %d supplies %s, recipe wants %s", ErrSequenceMismatch, pos, slot.Asset, ing.Asset)
	}

	// The caller's holding must sit at its derived address.
	wantHolding, err := ledger.HoldingAddress(caller, ing.Asset)
	if err != nil {
		return fmt.Errorf("holding derivation: %w", err)
	}
	if slot.Holding != wantHolding {
		return fmt.Errorf("%w: slot %d holding %s, derived %s", ErrDerivationMismatch, pos, slot.Holding, wantHolding)
	}

	src, err := txn.Holding(slot.Holding)
	if err != nil {
		return mapLedgerErr(err)
	}
	if src.Owner != caller {
		return fmt.Errorf("%w: slot %d holding owned by %s", ErrOwnershipMismatch, pos, src.Owner)
	}
	if src.Asset != ing.Asset {
		return fmt.Errorf("%w: slot %d holding carries %s", ErrMintMismatch, pos, src.Asset)
	}
	if src.Amount < ing.Amount {
		return fmt.Errorf("%w: slot %d has %d, recipe wants %d", ErrQuantityInvalid, pos, src.Amount, ing.Amount)
	}

	// Escrow is created on first use; an existing escrow is reused.
	escrow, err := txn.EnsureHolding(authority, ing.Asset)
	if err != nil {
		return mapLedgerErr(err)
	}
	if slot.Escrow != escrow.Address {
		return fmt.Errorf("%w: slot %d escrow %s, derived %s", ErrDerivationMismatch, pos, slot.Escrow, escrow.Address)
	}

	if err := txn.Transfer(slot.Holding, escrow.Address, ing.Amount, caller); err != nil {
		return mapLedgerErr(err)
	}
	return nil
}

// releaseOutput authenticates the output member asset under program
// custody and moves its single unit to the caller.
func (p *Program) releaseOutput(txn *ledger.Txn, caller types.Address, auth *Authority, class, output types.AssetID, receipt *CraftReceipt) error {
	if err := p.authenticateMemberAsset(txn, auth.Address, output, class, auth.Admin); err != nil {
		return err
	}

	src, err := txn.HoldingOf(auth.Address, output)
	if err != nil {
		return mapLedgerErr(err)
	}
	dst, err := txn.EnsureHolding(caller, output)
	if err != nil {
		return mapLedgerErr(err)
	}
	if err := txn.Transfer(src.Address, dst.Address, 1, auth.Address); err != nil {
		return mapLedgerErr(err)
	}
	receipt.OutputHolding = dst.Address
	return nil
}
