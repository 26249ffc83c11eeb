package crypto

import (
	"bytes"
	"testing"
)

func TestSignVerify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	defer key.Zero()

	digest := Hash([]byte("craft request"))
	sig, err := key.Sign(digest[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != SignatureLen {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureLen)
	}

	if !VerifySignature(digest[:], sig, key.PublicKey()) {
		t.Error("valid signature rejected")
	}
}

func TestVerify_Rejections(t *testing.T) {
	key, _ := GenerateKey()
	defer key.Zero()
	other, _ := GenerateKey()
	defer other.Zero()

	digest := Hash([]byte("payload"))
	sig, err := key.Sign(digest[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// Wrong key.
	if VerifySignature(digest[:], sig, other.PublicKey()) {
		t.Error("signature verified under wrong public key")
	}

	// Wrong digest.
	wrong := Hash([]byte("other payload"))
	if VerifySignature(wrong[:], sig, key.PublicKey()) {
		t.Error("signature verified against wrong digest")
	}

	// Corrupted signature.
	bad := append([]byte(nil), sig...)
	bad[10] ^= 0x01
	if VerifySignature(digest[:], bad, key.PublicKey()) {
		t.Error("corrupted signature verified")
	}

	// Garbage inputs should parse-fail, not panic.
	if VerifySignature(digest[:], []byte("short"), key.PublicKey()) {
		t.Error("short signature verified")
	}
	if VerifySignature(digest[:], sig, []byte("not a pubkey")) {
		t.Error("invalid pubkey verified")
	}
}

func TestSign_RequiresDigest(t *testing.T) {
	key, _ := GenerateKey()
	defer key.Zero()

	if _, err := key.Sign([]byte("not 32 bytes")); err == nil {
		t.Error("Sign accepted a non-32-byte input")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	key, _ := GenerateKey()
	defer key.Zero()

	raw := key.Serialize()
	if len(raw) != PrivateKeyLen {
		t.Fatalf("Serialize length = %d, want %d", len(raw), PrivateKeyLen)
	}

	restored, err := PrivateKeyFromBytes(raw)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	defer restored.Zero()

	if !bytes.Equal(restored.PublicKey(), key.PublicKey()) {
		t.Error("restored key has different public key")
	}

	if _, err := PrivateKeyFromBytes([]byte{1, 2, 3}); err == nil {
		t.Error("PrivateKeyFromBytes accepted a short scalar")
	}
}

func TestPublicKeyCompressed(t *testing.T) {
	key, _ := GenerateKey()
	defer key.Zero()

	pub := key.PublicKey()
	if len(pub) != PubKeyLen {
		t.Fatalf("PublicKey length = %d, want %d", len(pub), PubKeyLen)
	}
	if pub[0] != 0x02 && pub[0] != 0x03 {
		t.Errorf("compressed pubkey prefix = 0x%02x, want 0x02 or 0x03", pub[0])
	}
}

func TestSignaturesDeterministicPerKey(t *testing.T) {
	key, _ := GenerateKey()
	defer key.Zero()

	digest := Hash([]byte("same message"))
	sig1, err := key.Sign(digest[:])
	if err != nil {
		t.Fatal(err)
	}
	sig2, err := key.Sign(digest[:])
	if err != nil {
		t.Fatal(err)
	}
	// RFC 6979-style nonces make repeat signing deterministic.
	if !bytes.Equal(sig1, sig2) {
		t.Error("same key and digest produced different signatures")
	}
}
