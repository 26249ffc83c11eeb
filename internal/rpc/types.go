package rpc

import (
	"encoding/binary"

	"github.com/Klingon-tech/klingnet-forge/internal/forge"
	"github.com/Klingon-tech/klingnet-forge/internal/ledger"
	"github.com/Klingon-tech/klingnet-forge/pkg/crypto"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeUnauthorized   = -32001
	CodeRejected       = -32002
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Auth carries the caller's credentials on mutating calls: the
// compressed public key, a Schnorr signature over the call digest, and
// a strictly increasing nonce that makes each signed call single-use.
// The caller address is derived from the public key server-side.
type Auth struct {
	PubKey    string `json:"pubkey"`
	Signature string `json:"signature"`
	Nonce     uint64 `json:"nonce"`
}

// signingDomain separates RPC call digests from every other BLAKE3 use.
const signingDomain = "kfg/rpc/v1"

// SigningDigest computes the canonical digest of a mutating call: the
// domain, the method name, the caller nonce, and each field, all
// length-prefixed. Client and server must feed identical fields in
// identical order; the nonce binds the signature to one invocation.
func SigningDigest(method string, nonce uint64, fields ...[]byte) types.Hash {
	size := len(signingDomain) + 2 + len(method) + 8
	for _, f := range fields {
		size += 4 + len(f)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, signingDomain...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(method)))
	buf = append(buf, method...)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	for _, f := range fields {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(f)))
		buf = append(buf, f...)
	}
	return crypto.Hash(buf)
}

// ── Forge param types ───────────────────────────────────────────────────

// InitializeParam is used by forge_initialize. The caller becomes the
// authority admin.
type InitializeParam struct {
	Auth
}

// Digest returns the signing digest for forge_initialize.
func (p *InitializeParam) Digest() types.Hash {
	return SigningDigest("forge_initialize", p.Nonce)
}

// CreateRecipeParam is used by forge_createRecipe.
type CreateRecipeParam struct {
	Class       types.AssetID      `json:"class"`
	Ingredients []forge.Ingredient `json:"ingredients"`
	Auth
}

// Digest returns the signing digest for forge_createRecipe.
func (p *CreateRecipeParam) Digest() types.Hash {
	fields := [][]byte{p.Class.Bytes()}
	for _, ing := range p.Ingredients {
		fields = append(fields, ing.Asset.Bytes(), binary.BigEndian.AppendUint64(nil, ing.Amount))
	}
	return SigningDigest("forge_createRecipe", p.Nonce, fields...)
}

// RegisterMemberParam is used by forge_registerMember.
type RegisterMemberParam struct {
	Class  types.AssetID `json:"class"`
	Member types.AssetID `json:"member"`
	Auth
}

// Digest returns the signing digest for forge_registerMember.
func (p *RegisterMemberParam) Digest() types.Hash {
	return SigningDigest("forge_registerMember", p.Nonce, p.Class.Bytes(), p.Member.Bytes())
}

// CraftParam is used by forge_craft.
type CraftParam struct {
	Class  types.AssetID          `json:"class"`
	Output types.AssetID          `json:"output"`
	Slots  []forge.IngredientSlot `json:"slots"`
	Auth
}

// Digest returns the signing digest for forge_craft.
func (p *CraftParam) Digest() types.Hash {
	fields := [][]byte{p.Class.Bytes(), p.Output.Bytes()}
	for _, s := range p.Slots {
		fields = append(fields, s.Asset.Bytes(), s.Holding.Bytes(), s.Escrow.Bytes())
	}
	return SigningDigest("forge_craft", p.Nonce, fields...)
}

// ClassParam is used by forge_getRecipe and forge_listMembers.
type ClassParam struct {
	Class types.AssetID `json:"class"`
}

// ── Asset param types ───────────────────────────────────────────────────

// AssetCreateParam is used by asset_create. MaxSupply, when set,
// attaches a master record (0 = unique asset).
type AssetCreateParam struct {
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Decimals  uint8   `json:"decimals"`
	MaxSupply *uint64 `json:"max_supply,omitempty"`
	Auth
}

// Digest returns the signing digest for asset_create.
func (p *AssetCreateParam) Digest() types.Hash {
	fields := [][]byte{[]byte(p.Name), []byte(p.Symbol), {p.Decimals}}
	if p.MaxSupply != nil {
		fields = append(fields, binary.BigEndian.AppendUint64(nil, *p.MaxSupply))
	}
	return SigningDigest("asset_create", p.Nonce, fields...)
}

// AssetMintParam is used by asset_mint.
type AssetMintParam struct {
	Asset  types.AssetID `json:"asset"`
	To     types.Address `json:"to"`
	Amount uint64        `json:"amount"`
	Auth
}

// Digest returns the signing digest for asset_mint.
func (p *AssetMintParam) Digest() types.Hash {
	return SigningDigest("asset_mint", p.Nonce, p.Asset.Bytes(), p.To.Bytes(),
		binary.BigEndian.AppendUint64(nil, p.Amount))
}

// AssetTransferParam is used by asset_transfer.
type AssetTransferParam struct {
	Asset  types.AssetID `json:"asset"`
	To     types.Address `json:"to"`
	Amount uint64        `json:"amount"`
	Auth
}

// Digest returns the signing digest for asset_transfer.
func (p *AssetTransferParam) Digest() types.Hash {
	return SigningDigest("asset_transfer", p.Nonce, p.Asset.Bytes(), p.To.Bytes(),
		binary.BigEndian.AppendUint64(nil, p.Amount))
}

// AssetCollectionParam is used by asset_setCollection.
type AssetCollectionParam struct {
	Asset      types.AssetID `json:"asset"`
	Collection types.AssetID `json:"collection"`
	Auth
}

// Digest returns the signing digest for asset_setCollection.
func (p *AssetCollectionParam) Digest() types.Hash {
	return SigningDigest("asset_setCollection", p.Nonce, p.Asset.Bytes(), p.Collection.Bytes())
}

// AssetParam is used by asset-scoped calls that take only the asset,
// with optional auth for the verify endpoints.
type AssetParam struct {
	Asset types.AssetID `json:"asset"`
	Auth
}

// VerifyCollectionDigest returns the signing digest for asset_verifyCollection.
func (p *AssetParam) VerifyCollectionDigest() types.Hash {
	return SigningDigest("asset_verifyCollection", p.Nonce, p.Asset.Bytes())
}

// VerifyCreatorDigest returns the signing digest for asset_verifyCreator.
func (p *AssetParam) VerifyCreatorDigest() types.Hash {
	return SigningDigest("asset_verifyCreator", p.Nonce, p.Asset.Bytes())
}

// HoldingParam is used by asset_getHolding.
type HoldingParam struct {
	Address types.Address `json:"address"`
}

// BalanceParam is used by asset_getBalance. Asset narrows the query to
// one holding; zero returns all of the owner's holdings.
type BalanceParam struct {
	Owner types.Address `json:"owner"`
	Asset types.AssetID `json:"asset,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// InitializeResult is returned by forge_initialize.
type InitializeResult struct {
	Address types.Address `json:"address"`
	Admin   types.Address `json:"admin"`
	Nonce   uint8         `json:"nonce"`
}

// MemberListResult is returned by forge_listMembers.
type MemberListResult struct {
	Class   types.AssetID   `json:"class"`
	Members []types.AssetID `json:"members"`
}

// AssetCreateResult is returned by asset_create.
type AssetCreateResult struct {
	Asset types.AssetID `json:"asset"`
}

// TransferResult is returned by asset_mint and asset_transfer.
type TransferResult struct {
	Holding types.Address `json:"holding"`
	Amount  uint64        `json:"amount"`
}

// BalanceResult is returned by asset_getBalance.
type BalanceResult struct {
	Owner    types.Address    `json:"owner"`
	Holdings []ledger.Holding `json:"holdings"`
}

// AssetListResult is returned by asset_list.
type AssetListResult struct {
	Assets []ledger.MintEntry `json:"assets"`
}

// OKResult is returned by mutating calls with no other payload.
type OKResult struct {
	OK bool `json:"ok"`
}
