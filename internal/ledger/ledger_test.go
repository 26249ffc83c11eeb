package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Klingon-tech/klingnet-forge/internal/storage"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

func testAddr(b byte) types.Address {
	var a types.Address
	a[0] = b
	a[19] = b
	return a
}

// newTestAsset creates an asset owned by authority and mints amount
// units to owner.
func newTestAsset(t *testing.T, l *Ledger, authority, owner types.Address, name string, amount uint64) types.AssetID {
	t.Helper()
	var asset types.AssetID
	err := l.Update(func(txn *Txn) error {
		var err error
		asset, err = txn.CreateAsset(authority, name, "TST", 0)
		if err != nil {
			return err
		}
		if amount > 0 {
			return txn.MintTo(asset, owner, amount, authority)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("newTestAsset(%s): %v", name, err)
	}
	return asset
}

func TestCreateAsset(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)

	var asset types.AssetID
	err := l.Update(func(txn *Txn) error {
		var err error
		asset, err = txn.CreateAsset(authority, "Wood", "WOOD", 0)
		return err
	})
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}

	mint, err := l.GetMint(asset)
	if err != nil {
		t.Fatalf("GetMint: %v", err)
	}
	if mint.Authority != authority {
		t.Errorf("authority = %s, want %s", mint.Authority, authority)
	}
	if mint.Supply != 0 {
		t.Errorf("new asset supply = %d, want 0", mint.Supply)
	}

	meta, err := l.GetMetadata(asset)
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.Name != "Wood" || meta.Symbol != "WOOD" {
		t.Errorf("metadata = %s/%s, want Wood/WOOD", meta.Name, meta.Symbol)
	}
	if !meta.VerifiedCreator(authority) {
		t.Error("creating authority should be a verified creator")
	}

	wantAddr, err := MetadataAddress(asset)
	if err != nil {
		t.Fatalf("MetadataAddress: %v", err)
	}
	if meta.Address != wantAddr {
		t.Errorf("metadata address = %s, want derived %s", meta.Address, wantAddr)
	}
}

func TestCreateAsset_Duplicate(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)

	newTestAsset(t, l, authority, authority, "Wood", 0)

	err := l.Update(func(txn *Txn) error {
		_, err := txn.CreateAsset(authority, "Wood", "TST", 0)
		return err
	})
	if !errors.Is(err, ErrAssetExists) {
		t.Errorf("err = %v, want ErrAssetExists", err)
	}
}

func TestMintTo(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)
	owner := testAddr(2)

	asset := newTestAsset(t, l, authority, owner, "Wood", 5)

	h, err := l.GetHoldingOf(owner, asset)
	if err != nil {
		t.Fatalf("GetHoldingOf: %v", err)
	}
	if h.Amount != 5 {
		t.Errorf("balance = %d, want 5", h.Amount)
	}
	if h.Owner != owner || h.Asset != asset {
		t.Error("holding owner/asset mismatch")
	}

	mint, _ := l.GetMint(asset)
	if mint.Supply != 5 {
		t.Errorf("supply = %d, want 5", mint.Supply)
	}
}

func TestMintTo_NotAuthority(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)
	impostor := testAddr(9)

	asset := newTestAsset(t, l, authority, authority, "Wood", 0)

	err := l.Update(func(txn *Txn) error {
		return txn.MintTo(asset, impostor, 1, impostor)
	})
	if !errors.Is(err, ErrNotAuthority) {
		t.Errorf("err = %v, want ErrNotAuthority", err)
	}
}

func TestMintTo_SupplyCap(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)

	asset := newTestAsset(t, l, authority, authority, "Sword", 0)

	// MaxSupply 0 means unique: only one unit may ever exist.
	err := l.Update(func(txn *Txn) error {
		if err := txn.CreateMaster(asset, 0, authority); err != nil {
			return err
		}
		return txn.MintTo(asset, authority, 1, authority)
	})
	if err != nil {
		t.Fatalf("mint within cap: %v", err)
	}

	err = l.Update(func(txn *Txn) error {
		return txn.MintTo(asset, authority, 1, authority)
	})
	if !errors.Is(err, ErrSupplyExceeded) {
		t.Errorf("err = %v, want ErrSupplyExceeded", err)
	}
}

func TestMintTo_SupplyOverflow(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)

	// Capped asset: an amount huge enough to wrap the supply counter
	// must still be refused.
	capped := newTestAsset(t, l, authority, authority, "Sword", 0)
	err := l.Update(func(txn *Txn) error {
		if err := txn.CreateMaster(capped, 5, authority); err != nil {
			return err
		}
		return txn.MintTo(capped, authority, 1, authority)
	})
	if err != nil {
		t.Fatalf("mint within cap: %v", err)
	}

	err = l.Update(func(txn *Txn) error {
		return txn.MintTo(capped, authority, ^uint64(0), authority)
	})
	if !errors.Is(err, ErrSupplyExceeded) {
		t.Errorf("err = %v, want ErrSupplyExceeded", err)
	}
	mint, _ := l.GetMint(capped)
	if mint.Supply != 1 {
		t.Errorf("supply = %d, want 1 after refused mint", mint.Supply)
	}

	// Uncapped asset: the supply counter itself must not wrap.
	open := newTestAsset(t, l, authority, authority, "Wood", 0)
	err = l.Update(func(txn *Txn) error {
		return txn.MintTo(open, authority, ^uint64(0), authority)
	})
	if err != nil {
		t.Fatalf("mint max: %v", err)
	}
	err = l.Update(func(txn *Txn) error {
		return txn.MintTo(open, authority, 1, authority)
	})
	if !errors.Is(err, ErrSupplyExceeded) {
		t.Errorf("err = %v, want ErrSupplyExceeded", err)
	}
}

func TestEnsureHolding_Idempotent(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)
	owner := testAddr(2)

	asset := newTestAsset(t, l, authority, owner, "Wood", 3)

	var first, second types.Address
	err := l.Update(func(txn *Txn) error {
		h, err := txn.EnsureHolding(owner, asset)
		if err != nil {
			return err
		}
		first = h.Address
		if h.Amount != 3 {
			return fmt.Errorf("existing balance lost: %d", h.Amount)
		}
		h2, err := txn.EnsureHolding(owner, asset)
		if err != nil {
			return err
		}
		second = h2.Address
		return nil
	})
	if err != nil {
		t.Fatalf("EnsureHolding: %v", err)
	}
	if first != second {
		t.Errorf("addresses differ across calls: %s != %s", first, second)
	}

	// Balance unchanged by the ensure calls.
	h, _ := l.GetHoldingOf(owner, asset)
	if h.Amount != 3 {
		t.Errorf("balance = %d, want 3", h.Amount)
	}
}

func TestEnsureHolding_UnknownAsset(t *testing.T) {
	l := New(storage.NewMemory())

	err := l.Update(func(txn *Txn) error {
		_, err := txn.EnsureHolding(testAddr(2), types.AssetID{0xaa})
		return err
	})
	if !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("err = %v, want ErrAssetNotFound", err)
	}
}

func TestTransfer(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)
	alice := testAddr(2)
	bob := testAddr(3)

	asset := newTestAsset(t, l, authority, alice, "Wood", 10)

	err := l.Update(func(txn *Txn) error {
		src, err := txn.HoldingOf(alice, asset)
		if err != nil {
			return err
		}
		dst, err := txn.EnsureHolding(bob, asset)
		if err != nil {
			return err
		}
		return txn.Transfer(src.Address, dst.Address, 4, alice)
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	ha, _ := l.GetHoldingOf(alice, asset)
	hb, _ := l.GetHoldingOf(bob, asset)
	if ha.Amount != 6 || hb.Amount != 4 {
		t.Errorf("balances = %d/%d, want 6/4", ha.Amount, hb.Amount)
	}
}

func TestTransfer_NotOwner(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)
	alice := testAddr(2)
	mallory := testAddr(9)

	asset := newTestAsset(t, l, authority, alice, "Wood", 10)

	err := l.Update(func(txn *Txn) error {
		src, err := txn.HoldingOf(alice, asset)
		if err != nil {
			return err
		}
		dst, err := txn.EnsureHolding(mallory, asset)
		if err != nil {
			return err
		}
		return txn.Transfer(src.Address, dst.Address, 1, mallory)
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Errorf("err = %v, want ErrNotOwner", err)
	}

	// Nothing committed: mallory has no holding.
	if _, err := l.GetHoldingOf(mallory, asset); !errors.Is(err, ErrHoldingNotFound) {
		t.Errorf("mallory holding err = %v, want ErrHoldingNotFound", err)
	}
}

func TestTransfer_Insufficient(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)
	alice := testAddr(2)
	bob := testAddr(3)

	asset := newTestAsset(t, l, authority, alice, "Wood", 2)

	err := l.Update(func(txn *Txn) error {
		src, err := txn.HoldingOf(alice, asset)
		if err != nil {
			return err
		}
		dst, err := txn.EnsureHolding(bob, asset)
		if err != nil {
			return err
		}
		return txn.Transfer(src.Address, dst.Address, 3, alice)
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}

	ha, _ := l.GetHoldingOf(alice, asset)
	if ha.Amount != 2 {
		t.Errorf("failed transfer changed balance: %d", ha.Amount)
	}
}

func TestTransfer_AssetMismatch(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)
	alice := testAddr(2)
	bob := testAddr(3)

	wood := newTestAsset(t, l, authority, alice, "Wood", 5)
	iron := newTestAsset(t, l, authority, bob, "Iron", 5)

	err := l.Update(func(txn *Txn) error {
		src, err := txn.HoldingOf(alice, wood)
		if err != nil {
			return err
		}
		dst, err := txn.HoldingOf(bob, iron)
		if err != nil {
			return err
		}
		return txn.Transfer(src.Address, dst.Address, 1, alice)
	})
	if !errors.Is(err, ErrAssetMismatch) {
		t.Errorf("err = %v, want ErrAssetMismatch", err)
	}
}

func TestUpdate_Atomicity(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)
	alice := testAddr(2)
	bob := testAddr(3)

	asset := newTestAsset(t, l, authority, alice, "Wood", 10)

	boom := errors.New("boom")
	err := l.Update(func(txn *Txn) error {
		src, err := txn.HoldingOf(alice, asset)
		if err != nil {
			return err
		}
		dst, err := txn.EnsureHolding(bob, asset)
		if err != nil {
			return err
		}
		if err := txn.Transfer(src.Address, dst.Address, 5, alice); err != nil {
			return err
		}
		return boom // Abort after staging writes.
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	ha, _ := l.GetHoldingOf(alice, asset)
	if ha.Amount != 10 {
		t.Errorf("aborted update leaked: balance = %d, want 10", ha.Amount)
	}
	if _, err := l.GetHoldingOf(bob, asset); !errors.Is(err, ErrHoldingNotFound) {
		t.Errorf("aborted update created holding: err = %v", err)
	}
}

func TestTxn_ReadsSeeStagedWrites(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)

	err := l.Update(func(txn *Txn) error {
		asset, err := txn.CreateAsset(authority, "Wood", "WOOD", 0)
		if err != nil {
			return err
		}
		// The mint staged above must be readable in the same txn.
		mint, err := txn.Mint(asset)
		if err != nil {
			return err
		}
		if mint.Authority != authority {
			return fmt.Errorf("staged mint not visible")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestView_ReadOnly(t *testing.T) {
	l := New(storage.NewMemory())

	err := l.View(func(txn *Txn) error {
		_, err := txn.CreateAsset(testAddr(1), "Wood", "WOOD", 0)
		return err
	})
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("err = %v, want ErrReadOnly", err)
	}
}

func TestCollectionLinkage(t *testing.T) {
	l := New(storage.NewMemory())
	classAuthority := testAddr(1)
	memberAuthority := testAddr(1) // Same authority mints both here.

	class := newTestAsset(t, l, classAuthority, classAuthority, "Skins", 1)
	member := newTestAsset(t, l, memberAuthority, memberAuthority, "Sword", 1)

	err := l.Update(func(txn *Txn) error {
		return txn.SetCollection(member, class, memberAuthority)
	})
	if err != nil {
		t.Fatalf("SetCollection: %v", err)
	}

	meta, _ := l.GetMetadata(member)
	if meta.Collection == nil || meta.Collection.Verified {
		t.Fatal("collection link should exist unverified")
	}
	if meta.VerifiedCollection(class) {
		t.Error("VerifiedCollection should be false before verification")
	}

	// Wrong signer cannot verify.
	err = l.Update(func(txn *Txn) error {
		return txn.VerifyCollection(member, testAddr(9))
	})
	if !errors.Is(err, ErrNotAuthority) {
		t.Errorf("err = %v, want ErrNotAuthority", err)
	}

	err = l.Update(func(txn *Txn) error {
		return txn.VerifyCollection(member, classAuthority)
	})
	if err != nil {
		t.Fatalf("VerifyCollection: %v", err)
	}

	meta, _ = l.GetMetadata(member)
	if !meta.VerifiedCollection(class) {
		t.Error("collection link should be verified")
	}
	if meta.VerifiedCollection(types.AssetID{0xff}) {
		t.Error("VerifiedCollection must match the collection asset")
	}
}

func TestCreators(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)
	artist := testAddr(5)

	asset := newTestAsset(t, l, authority, authority, "Sword", 0)

	err := l.Update(func(txn *Txn) error {
		return txn.AddCreator(asset, artist, authority)
	})
	if err != nil {
		t.Fatalf("AddCreator: %v", err)
	}

	meta, _ := l.GetMetadata(asset)
	if meta.VerifiedCreator(artist) {
		t.Error("new creator entry should be unverified")
	}

	// Only the creator itself can verify its entry.
	err = l.Update(func(txn *Txn) error {
		return txn.VerifyCreator(asset, testAddr(9))
	})
	if !errors.Is(err, ErrCreatorNotFound) {
		t.Errorf("err = %v, want ErrCreatorNotFound", err)
	}

	err = l.Update(func(txn *Txn) error {
		return txn.VerifyCreator(asset, artist)
	})
	if err != nil {
		t.Fatalf("VerifyCreator: %v", err)
	}
	meta, _ = l.GetMetadata(asset)
	if !meta.VerifiedCreator(artist) {
		t.Error("creator should be verified after signing")
	}
}

func TestListAssets(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)

	newTestAsset(t, l, authority, authority, "Wood", 0)
	newTestAsset(t, l, authority, authority, "Iron", 0)

	entries, err := l.ListAssets()
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	if !names["Wood"] || !names["Iron"] {
		t.Errorf("names = %v, want Wood and Iron", names)
	}
}

func TestHoldingsOf(t *testing.T) {
	l := New(storage.NewMemory())
	authority := testAddr(1)
	owner := testAddr(2)

	wood := newTestAsset(t, l, authority, owner, "Wood", 5)
	iron := newTestAsset(t, l, authority, owner, "Iron", 2)
	newTestAsset(t, l, authority, authority, "Gold", 7) // Different owner.

	holdings, err := l.HoldingsOf(owner)
	if err != nil {
		t.Fatalf("HoldingsOf: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("len = %d, want 2", len(holdings))
	}
	amounts := map[types.AssetID]uint64{}
	for _, h := range holdings {
		amounts[h.Asset] = h.Amount
	}
	if amounts[wood] != 5 || amounts[iron] != 2 {
		t.Errorf("amounts = %v", amounts)
	}
}

func TestDeriveAssetID_Injective(t *testing.T) {
	a := testAddr(1)

	id1 := DeriveAssetID(a, "AB", "C")
	id2 := DeriveAssetID(a, "A", "BC")
	if id1 == id2 {
		t.Error("symbol/name boundary shift should change the asset ID")
	}

	if DeriveAssetID(a, "X", "Y") != DeriveAssetID(a, "X", "Y") {
		t.Error("asset ID derivation should be deterministic")
	}
	if DeriveAssetID(testAddr(2), "X", "Y") == DeriveAssetID(a, "X", "Y") {
		t.Error("different creators should yield different IDs")
	}
}
