package rpc

import (
	"encoding/hex"
	"time"

	"github.com/Klingon-tech/klingnet-forge/pkg/crypto"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// authWindow bounds how far an auth nonce may drift from the server
// clock. Nonces are unix-nanosecond timestamps on the client side, so
// the window also caps how long the server must remember a caller.
const authWindow = 2 * time.Minute

// verifyAuth checks the Schnorr signature over the call digest and
// returns the caller address derived from the public key. The server
// never decides who the caller is; the signature does. The auth nonce
// must be fresh and strictly greater than the last one accepted for
// the same caller, so a captured request cannot be posted twice.
func (s *Server) verifyAuth(auth Auth, digest types.Hash) (types.Address, *Error) {
	if auth.PubKey == "" || auth.Signature == "" {
		return types.Address{}, &Error{Code: CodeUnauthorized, Message: "pubkey and signature required"}
	}
	if auth.Nonce == 0 {
		return types.Address{}, &Error{Code: CodeUnauthorized, Message: "nonce required"}
	}

	pub, err := hex.DecodeString(auth.PubKey)
	if err != nil || len(pub) != crypto.PubKeyLen {
		return types.Address{}, &Error{Code: CodeUnauthorized, Message: "pubkey must be 33-byte hex"}
	}
	sig, err := hex.DecodeString(auth.Signature)
	if err != nil || len(sig) != crypto.SignatureLen {
		return types.Address{}, &Error{Code: CodeUnauthorized, Message: "signature must be 64-byte hex"}
	}

	if !crypto.VerifySignature(digest[:], sig, pub) {
		return types.Address{}, &Error{Code: CodeUnauthorized, Message: "signature verification failed"}
	}

	if d := time.Now().UnixNano() - int64(auth.Nonce); d > int64(authWindow) || d < -int64(authWindow) {
		return types.Address{}, &Error{Code: CodeUnauthorized, Message: "nonce outside freshness window"}
	}

	addr := crypto.AddressFromPubKey(pub)

	s.nonceMu.Lock()
	defer s.nonceMu.Unlock()
	if auth.Nonce <= s.lastNonce[addr] {
		return types.Address{}, &Error{Code: CodeUnauthorized, Message: "nonce already used"}
	}
	s.lastNonce[addr] = auth.Nonce

	return addr, nil
}
