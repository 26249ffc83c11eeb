package forge

import "errors"

// Errors returned by forge operations. Authentication aborts on the
// first failed check with the matching sentinel.
var (
	// ErrUninitialized is returned when a required record (authority,
	// recipe, holding, metadata, master record) does not exist or is empty.
	ErrUninitialized = errors.New("record not initialized")
	// ErrAlreadyInitialized is returned by create-once operations when
	// the record already exists.
	ErrAlreadyInitialized = errors.New("record already initialized")
	// ErrOwnershipMismatch is returned when a holding is not owned by
	// the expected party.
	ErrOwnershipMismatch = errors.New("ownership mismatch")
	// ErrQuantityInvalid is returned when a balance does not meet the
	// required amount (exactly one for authenticity checks, the recipe
	// amount for ingredient debits).
	ErrQuantityInvalid = errors.New("quantity invalid")
	// ErrMintMismatch is returned when a holding references a
	// different asset than expected.
	ErrMintMismatch = errors.New("mint mismatch")
	// ErrDerivationMismatch is returned when a supplied address does
	// not equal the derived address for its role.
	ErrDerivationMismatch = errors.New("derivation mismatch")
	// ErrUnverifiedLinkage is returned when a creator or collection
	// link is absent, unverified, or points at the wrong class.
	ErrUnverifiedLinkage = errors.New("unverified linkage")
	// ErrSequenceMismatch is returned when supplied ingredient slots
	// do not match the recipe sequence position by position.
	ErrSequenceMismatch = errors.New("sequence mismatch")
)
