package rpcclient

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/klingnet-forge/internal/forge"
	"github.com/Klingon-tech/klingnet-forge/internal/ledger"
	"github.com/Klingon-tech/klingnet-forge/internal/rpc"
	"github.com/Klingon-tech/klingnet-forge/pkg/crypto"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// authNonceLast tracks the last nonce handed out, so nonces stay
// strictly increasing even when calls land inside one nanosecond.
var authNonceLast atomic.Int64

// authNonce returns a fresh auth nonce near the wall clock. The server
// rejects nonces that drift outside its freshness window, so the clock
// is the base and the counter only breaks ties.
func authNonce() uint64 {
	for {
		now := time.Now().UnixNano()
		last := authNonceLast.Load()
		if now <= last {
			now = last + 1
		}
		if authNonceLast.CompareAndSwap(last, now) {
			return uint64(now)
		}
	}
}

// signAuth stamps a fresh nonce into the Auth block and signs the call
// digest. The nonce must be set before the digest is computed, which
// is why the digest is passed as a function.
func signAuth(key *crypto.PrivateKey, a *rpc.Auth, digest func() types.Hash) error {
	a.Nonce = authNonce()
	d := digest()
	sig, err := key.Sign(d[:])
	if err != nil {
		return fmt.Errorf("sign call: %w", err)
	}
	a.PubKey = hex.EncodeToString(key.PublicKey())
	a.Signature = hex.EncodeToString(sig)
	return nil
}

// Initialize creates the forge authority with the key's address as admin.
func (c *Client) Initialize(key *crypto.PrivateKey) (*rpc.InitializeResult, error) {
	p := rpc.InitializeParam{}
	if err := signAuth(key, &p.Auth, p.Digest); err != nil {
		return nil, err
	}

	var result rpc.InitializeResult
	if err := c.Call("forge_initialize", p, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateRecipe publishes the ingredient list for a class asset.
func (c *Client) CreateRecipe(key *crypto.PrivateKey, class types.AssetID, ingredients []forge.Ingredient) (*forge.Recipe, error) {
	p := rpc.CreateRecipeParam{Class: class, Ingredients: ingredients}
	if err := signAuth(key, &p.Auth, p.Digest); err != nil {
		return nil, err
	}

	var recipe forge.Recipe
	if err := c.Call("forge_createRecipe", p, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// RegisterMember registers an asset as a redeemable member of a class.
func (c *Client) RegisterMember(key *crypto.PrivateKey, class, member types.AssetID) error {
	p := rpc.RegisterMemberParam{Class: class, Member: member}
	if err := signAuth(key, &p.Auth, p.Digest); err != nil {
		return err
	}
	return c.Call("forge_registerMember", p, nil)
}

// Craft redeems one unit of output against the class recipe.
func (c *Client) Craft(key *crypto.PrivateKey, class, output types.AssetID, slots []forge.IngredientSlot) (*forge.CraftReceipt, error) {
	p := rpc.CraftParam{Class: class, Output: output, Slots: slots}
	if err := signAuth(key, &p.Auth, p.Digest); err != nil {
		return nil, err
	}

	var receipt forge.CraftReceipt
	if err := c.Call("forge_craft", p, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// CraftSlots builds the ingredient slots for a craft call from the
// caller and authority addresses, in the given asset order.
func CraftSlots(caller, authority types.Address, assets ...types.AssetID) ([]forge.IngredientSlot, error) {
	slots := make([]forge.IngredientSlot, len(assets))
	for i, asset := range assets {
		holding, err := ledger.HoldingAddress(caller, asset)
		if err != nil {
			return nil, fmt.Errorf("holding address: %w", err)
		}
		escrow, err := ledger.HoldingAddress(authority, asset)
		if err != nil {
			return nil, fmt.Errorf("escrow address: %w", err)
		}
		slots[i] = forge.IngredientSlot{Asset: asset, Holding: holding, Escrow: escrow}
	}
	return slots, nil
}

// GetAuthority fetches the forge authority record.
func (c *Client) GetAuthority() (*forge.Authority, error) {
	var auth forge.Authority
	if err := c.Call("forge_getAuthority", nil, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// GetRecipe fetches the recipe for a class asset.
func (c *Client) GetRecipe(class types.AssetID) (*forge.Recipe, error) {
	var recipe forge.Recipe
	if err := c.Call("forge_getRecipe", rpc.ClassParam{Class: class}, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// ListMembers fetches the registered members of a class.
func (c *Client) ListMembers(class types.AssetID) ([]types.AssetID, error) {
	var result rpc.MemberListResult
	if err := c.Call("forge_listMembers", rpc.ClassParam{Class: class}, &result); err != nil {
		return nil, err
	}
	return result.Members, nil
}

// CreateAsset registers a new asset under the key's address. A non-nil
// maxSupply attaches a supply cap (zero caps supply at one unit).
func (c *Client) CreateAsset(key *crypto.PrivateKey, name, symbol string, decimals uint8, maxSupply *uint64) (types.AssetID, error) {
	p := rpc.AssetCreateParam{Name: name, Symbol: symbol, Decimals: decimals, MaxSupply: maxSupply}
	if err := signAuth(key, &p.Auth, p.Digest); err != nil {
		return types.AssetID{}, err
	}

	var result rpc.AssetCreateResult
	if err := c.Call("asset_create", p, &result); err != nil {
		return types.AssetID{}, err
	}
	return result.Asset, nil
}

// Mint issues new units to an owner under the key's mint authority.
func (c *Client) Mint(key *crypto.PrivateKey, asset types.AssetID, to types.Address, amount uint64) (*rpc.TransferResult, error) {
	p := rpc.AssetMintParam{Asset: asset, To: to, Amount: amount}
	if err := signAuth(key, &p.Auth, p.Digest); err != nil {
		return nil, err
	}

	var result rpc.TransferResult
	if err := c.Call("asset_mint", p, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Transfer moves units from the key's holding to the recipient.
func (c *Client) Transfer(key *crypto.PrivateKey, asset types.AssetID, to types.Address, amount uint64) (*rpc.TransferResult, error) {
	p := rpc.AssetTransferParam{Asset: asset, To: to, Amount: amount}
	if err := signAuth(key, &p.Auth, p.Digest); err != nil {
		return nil, err
	}

	var result rpc.TransferResult
	if err := c.Call("asset_transfer", p, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetCollection links an asset to a parent collection, unverified.
func (c *Client) SetCollection(key *crypto.PrivateKey, asset, collection types.AssetID) error {
	p := rpc.AssetCollectionParam{Asset: asset, Collection: collection}
	if err := signAuth(key, &p.Auth, p.Digest); err != nil {
		return err
	}
	return c.Call("asset_setCollection", p, nil)
}

// VerifyCollection verifies an asset's collection link as the
// collection's authority.
func (c *Client) VerifyCollection(key *crypto.PrivateKey, asset types.AssetID) error {
	p := rpc.AssetParam{Asset: asset}
	if err := signAuth(key, &p.Auth, p.VerifyCollectionDigest); err != nil {
		return err
	}
	return c.Call("asset_verifyCollection", p, nil)
}

// VerifyCreator verifies the key's own creator entry on an asset.
func (c *Client) VerifyCreator(key *crypto.PrivateKey, asset types.AssetID) error {
	p := rpc.AssetParam{Asset: asset}
	if err := signAuth(key, &p.Auth, p.VerifyCreatorDigest); err != nil {
		return err
	}
	return c.Call("asset_verifyCreator", p, nil)
}

// GetHolding fetches the holding at an address.
func (c *Client) GetHolding(addr types.Address) (*ledger.Holding, error) {
	var h ledger.Holding
	if err := c.Call("asset_getHolding", rpc.HoldingParam{Address: addr}, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// GetBalance fetches an owner's holdings. A zero asset returns all of
// them; otherwise the result is narrowed to the one asset.
func (c *Client) GetBalance(owner types.Address, asset types.AssetID) ([]ledger.Holding, error) {
	var result rpc.BalanceResult
	if err := c.Call("asset_getBalance", rpc.BalanceParam{Owner: owner, Asset: asset}, &result); err != nil {
		return nil, err
	}
	return result.Holdings, nil
}

// GetMetadata fetches an asset's metadata record.
func (c *Client) GetMetadata(asset types.AssetID) (*ledger.Metadata, error) {
	var meta ledger.Metadata
	if err := c.Call("asset_getMetadata", rpc.AssetParam{Asset: asset}, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ListAssets fetches every asset's mint record with name and symbol.
func (c *Client) ListAssets() ([]ledger.MintEntry, error) {
	var result rpc.AssetListResult
	if err := c.Call("asset_list", struct{}{}, &result); err != nil {
		return nil, err
	}
	return result.Assets, nil
}
