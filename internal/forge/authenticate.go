package forge

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-forge/internal/ledger"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// authenticateClassAsset proves that owner holds exactly one unit of a
// legitimate class asset: the holding exists at its derived address,
// the metadata record exists at its derived address with non-empty
// content and the authority admin as a verified creator, and a master
// record caps the supply. The first failed check aborts.
func (p *Program) authenticateClassAsset(txn *ledger.Txn, owner types.Address, asset types.AssetID, admin types.Address) error {
	if err := p.authenticateHolding(txn, owner, asset); err != nil {
		return err
	}
	return p.authenticateProvenance(txn, asset, admin)
}

// authenticateMemberAsset runs the class-asset checks and additionally
// requires a verified collection link from the member to its class.
func (p *Program) authenticateMemberAsset(txn *ledger.Txn, owner types.Address, asset types.AssetID, class types.AssetID, admin types.Address) error {
	if err := p.authenticateClassAsset(txn, owner, asset, admin); err != nil {
		return err
	}
	meta, err := txn.Metadata(asset)
	if err != nil {
		return mapLedgerErr(err)
	}
	if !meta.VerifiedCollection(class) {
		return fmt.Errorf("%w: asset %s is not a verified member of class %s", ErrUnverifiedLinkage, asset, class)
	}
	return nil
}

// authenticateHolding checks the single-unit holding at the derived
// address for (owner, asset).
func (p *Program) authenticateHolding(txn *ledger.Txn, owner types.Address, asset types.AssetID) error {
	addr, err := ledger.HoldingAddress(owner, asset)
	if err != nil {
		return fmt.Errorf("holding derivation: %w", err)
	}
	h, err := txn.Holding(addr)
	if err != nil {
		if errors.Is(err, ledger.ErrHoldingNotFound) {
			return fmt.Errorf("%w: holding of %s for asset %s", ErrUninitialized, owner, asset)
		}
		return err
	}
	if h.Owner != owner {
		return fmt.Errorf("%w: holding %s owned by %s, want %s", ErrOwnershipMismatch, addr, h.Owner, owner)
	}
	if h.Asset != asset {
		return fmt.Errorf("%w: holding %s carries %s, want %s", ErrMintMismatch, addr, h.Asset, asset)
	}
	if h.Amount != 1 {
		return fmt.Errorf("%w: holding %s has amount %d, want 1", ErrQuantityInvalid, addr, h.Amount)
	}
	return nil
}

// authenticateProvenance checks the asset's metadata and master record.
func (p *Program) authenticateProvenance(txn *ledger.Txn, asset types.AssetID, admin types.Address) error {
	meta, err := txn.Metadata(asset)
	if err != nil {
		if errors.Is(err, ledger.ErrMetadataNotFound) {
			return fmt.Errorf("%w: metadata for asset %s", ErrUninitialized, asset)
		}
		return err
	}

	wantAddr, err := ledger.MetadataAddress(asset)
	if err != nil {
		return fmt.Errorf("metadata derivation: %w", err)
	}
	if meta.Address != wantAddr {
		return fmt.Errorf("%w: metadata at %s, derived %s", ErrDerivationMismatch, meta.Address, wantAddr)
	}
	if meta.Name == "" || meta.Symbol == "" {
		return fmt.Errorf("%w: metadata for asset %s is empty", ErrUninitialized, asset)
	}
	if !meta.VerifiedCreator(admin) {
		return fmt.Errorf("%w: admin %s is not a verified creator of %s", ErrUnverifiedLinkage, admin, asset)
	}

	master, err := txn.Master(asset)
	if err != nil {
		if errors.Is(err, ledger.ErrMasterNotFound) {
			return fmt.Errorf("%w: master record for asset %s", ErrUninitialized, asset)
		}
		return err
	}
	wantAddr, err = ledger.MasterAddress(asset)
	if err != nil {
		return fmt.Errorf("master derivation: %w", err)
	}
	if master.Address != wantAddr {
		return fmt.Errorf("%w: master record at %s, derived %s", ErrDerivationMismatch, master.Address, wantAddr)
	}
	return nil
}

// mapLedgerErr folds ledger sentinels into the forge error taxonomy.
func mapLedgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrHoldingNotFound),
		errors.Is(err, ledger.ErrAssetNotFound),
		errors.Is(err, ledger.ErrMetadataNotFound),
		errors.Is(err, ledger.ErrMasterNotFound):
		return fmt.Errorf("%w: %v", ErrUninitialized, err)
	case errors.Is(err, ledger.ErrNotOwner):
		return fmt.Errorf("%w: %v", ErrOwnershipMismatch, err)
	case errors.Is(err, ledger.ErrInsufficientBalance), errors.Is(err, ledger.ErrZeroAmount):
		return fmt.Errorf("%w: %v", ErrQuantityInvalid, err)
	case errors.Is(err, ledger.ErrAssetMismatch):
		return fmt.Errorf("%w: %v", ErrMintMismatch, err)
	case errors.Is(err, ledger.ErrHoldingConflict):
		return fmt.Errorf("%w: %v", ErrDerivationMismatch, err)
	default:
		return err
	}
}
