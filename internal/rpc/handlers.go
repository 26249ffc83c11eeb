package rpc

import (
	"errors"

	"github.com/Klingon-tech/klingnet-forge/internal/forge"
	"github.com/Klingon-tech/klingnet-forge/internal/ledger"
)

// rejectErr maps program and ledger errors to JSON-RPC errors: missing
// records become CodeNotFound, everything else is CodeRejected.
func rejectErr(err error) *Error {
	switch {
	case errors.Is(err, forge.ErrUninitialized),
		errors.Is(err, ledger.ErrAssetNotFound),
		errors.Is(err, ledger.ErrHoldingNotFound),
		errors.Is(err, ledger.ErrMetadataNotFound),
		errors.Is(err, ledger.ErrMasterNotFound),
		errors.Is(err, ledger.ErrCreatorNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	default:
		return &Error{Code: CodeRejected, Message: err.Error()}
	}
}

// ── Forge handlers ──────────────────────────────────────────────────────

func (s *Server) handleForgeInitialize(req *Request) (interface{}, *Error) {
	var p InitializeParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	caller, errResp := s.verifyAuth(p.Auth, p.Digest())
	if errResp != nil {
		return nil, errResp
	}

	auth, err := s.program.Initialize(caller)
	if err != nil {
		return nil, rejectErr(err)
	}
	return InitializeResult{Address: auth.Address, Admin: auth.Admin, Nonce: auth.Nonce}, nil
}

func (s *Server) handleForgeCreateRecipe(req *Request) (interface{}, *Error) {
	var p CreateRecipeParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	caller, errResp := s.verifyAuth(p.Auth, p.Digest())
	if errResp != nil {
		return nil, errResp
	}

	recipe, err := s.program.CreateRecipe(caller, p.Class, p.Ingredients)
	if err != nil {
		return nil, rejectErr(err)
	}
	return recipe, nil
}

func (s *Server) handleForgeRegisterMember(req *Request) (interface{}, *Error) {
	var p RegisterMemberParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	caller, errResp := s.verifyAuth(p.Auth, p.Digest())
	if errResp != nil {
		return nil, errResp
	}

	if err := s.program.RegisterMember(caller, p.Class, p.Member); err != nil {
		return nil, rejectErr(err)
	}
	return OKResult{OK: true}, nil
}

func (s *Server) handleForgeCraft(req *Request) (interface{}, *Error) {
	var p CraftParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	caller, errResp := s.verifyAuth(p.Auth, p.Digest())
	if errResp != nil {
		return nil, errResp
	}

	receipt, err := s.program.Craft(caller, p.Class, p.Output, p.Slots)
	if err != nil {
		return nil, rejectErr(err)
	}
	return receipt, nil
}

func (s *Server) handleForgeGetAuthority(req *Request) (interface{}, *Error) {
	auth, err := s.program.Authority()
	if err != nil {
		return nil, rejectErr(err)
	}
	return auth, nil
}

func (s *Server) handleForgeGetRecipe(req *Request) (interface{}, *Error) {
	var p ClassParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	recipe, err := s.program.Recipe(p.Class)
	if err != nil {
		return nil, rejectErr(err)
	}
	return recipe, nil
}

func (s *Server) handleForgeListMembers(req *Request) (interface{}, *Error) {
	var p ClassParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	members, err := s.program.ListMembers(p.Class)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return MemberListResult{Class: p.Class, Members: members}, nil
}

// ── Asset handlers ──────────────────────────────────────────────────────

func (s *Server) handleAssetCreate(req *Request) (interface{}, *Error) {
	var p AssetCreateParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	caller, errResp := s.verifyAuth(p.Auth, p.Digest())
	if errResp != nil {
		return nil, errResp
	}

	var result AssetCreateResult
	err := s.ledger.Update(func(txn *ledger.Txn) error {
		asset, err := txn.CreateAsset(caller, p.Name, p.Symbol, p.Decimals)
		if err != nil {
			return err
		}
		if p.MaxSupply != nil {
			if err := txn.CreateMaster(asset, *p.MaxSupply, caller); err != nil {
				return err
			}
		}
		result.Asset = asset
		return nil
	})
	if err != nil {
		return nil, rejectErr(err)
	}
	return result, nil
}

func (s *Server) handleAssetMint(req *Request) (interface{}, *Error) {
	var p AssetMintParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	caller, errResp := s.verifyAuth(p.Auth, p.Digest())
	if errResp != nil {
		return nil, errResp
	}

	var result TransferResult
	err := s.ledger.Update(func(txn *ledger.Txn) error {
		if err := txn.MintTo(p.Asset, p.To, p.Amount, caller); err != nil {
			return err
		}
		h, err := txn.HoldingOf(p.To, p.Asset)
		if err != nil {
			return err
		}
		result = TransferResult{Holding: h.Address, Amount: h.Amount}
		return nil
	})
	if err != nil {
		return nil, rejectErr(err)
	}
	return result, nil
}

func (s *Server) handleAssetTransfer(req *Request) (interface{}, *Error) {
	var p AssetTransferParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	caller, errResp := s.verifyAuth(p.Auth, p.Digest())
	if errResp != nil {
		return nil, errResp
	}

	var result TransferResult
	err := s.ledger.Update(func(txn *ledger.Txn) error {
		src, err := txn.HoldingOf(caller, p.Asset)
		if err != nil {
			return err
		}
		dst, err := txn.EnsureHolding(p.To, p.Asset)
		if err != nil {
			return err
		}
		if err := txn.Transfer(src.Address, dst.Address, p.Amount, caller); err != nil {
			return err
		}
		// Re-read: Transfer stages its own copy of the destination.
		h, err := txn.Holding(dst.Address)
		if err != nil {
			return err
		}
		result = TransferResult{Holding: h.Address, Amount: h.Amount}
		return nil
	})
	if err != nil {
		return nil, rejectErr(err)
	}
	return result, nil
}

func (s *Server) handleAssetSetCollection(req *Request) (interface{}, *Error) {
	var p AssetCollectionParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	caller, errResp := s.verifyAuth(p.Auth, p.Digest())
	if errResp != nil {
		return nil, errResp
	}

	err := s.ledger.Update(func(txn *ledger.Txn) error {
		return txn.SetCollection(p.Asset, p.Collection, caller)
	})
	if err != nil {
		return nil, rejectErr(err)
	}
	return OKResult{OK: true}, nil
}

func (s *Server) handleAssetVerifyCollection(req *Request) (interface{}, *Error) {
	var p AssetParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	caller, errResp := s.verifyAuth(p.Auth, p.VerifyCollectionDigest())
	if errResp != nil {
		return nil, errResp
	}

	err := s.ledger.Update(func(txn *ledger.Txn) error {
		return txn.VerifyCollection(p.Asset, caller)
	})
	if err != nil {
		return nil, rejectErr(err)
	}
	return OKResult{OK: true}, nil
}

func (s *Server) handleAssetVerifyCreator(req *Request) (interface{}, *Error) {
	var p AssetParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	caller, errResp := s.verifyAuth(p.Auth, p.VerifyCreatorDigest())
	if errResp != nil {
		return nil, errResp
	}

	err := s.ledger.Update(func(txn *ledger.Txn) error {
		return txn.VerifyCreator(p.Asset, caller)
	})
	if err != nil {
		return nil, rejectErr(err)
	}
	return OKResult{OK: true}, nil
}

func (s *Server) handleAssetGetHolding(req *Request) (interface{}, *Error) {
	var p HoldingParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	h, err := s.ledger.GetHolding(p.Address)
	if err != nil {
		return nil, rejectErr(err)
	}
	return h, nil
}

func (s *Server) handleAssetGetBalance(req *Request) (interface{}, *Error) {
	var p BalanceParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}

	if !p.Asset.IsZero() {
		h, err := s.ledger.GetHoldingOf(p.Owner, p.Asset)
		if err != nil {
			return nil, rejectErr(err)
		}
		return BalanceResult{Owner: p.Owner, Holdings: []ledger.Holding{*h}}, nil
	}

	holdings, err := s.ledger.HoldingsOf(p.Owner)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return BalanceResult{Owner: p.Owner, Holdings: holdings}, nil
}

func (s *Server) handleAssetGetMetadata(req *Request) (interface{}, *Error) {
	var p AssetParam
	if errResp := parseParams(req, &p); errResp != nil {
		return nil, errResp
	}
	meta, err := s.ledger.GetMetadata(p.Asset)
	if err != nil {
		return nil, rejectErr(err)
	}
	return meta, nil
}

func (s *Server) handleAssetList(req *Request) (interface{}, *Error) {
	entries, err := s.ledger.ListAssets()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return AssetListResult{Assets: entries}, nil
}
