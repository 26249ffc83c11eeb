package keystore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Klingon-tech/klingnet-forge/pkg/crypto"
)

// fastParams returns weak Argon2id parameters for tests.
func fastParams() EncryptionParams {
	return EncryptionParams{Memory: 64, Iterations: 1, Parallelism: 1}
}

func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ks, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return ks
}

func testKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	return key
}

func TestEncrypt_RoundTrip(t *testing.T) {
	data := []byte("secret payload")
	password := []byte("hunter2")

	encrypted, err := Encrypt(data, password, fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if bytes.Contains(encrypted, data) {
		t.Error("ciphertext contains plaintext")
	}

	decrypted, err := Decrypt(encrypted, password)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(decrypted, data) {
		t.Error("decrypted data does not match original")
	}
}

func TestDecrypt_WrongPassword(t *testing.T) {
	encrypted, err := Encrypt([]byte("data"), []byte("right"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if _, err := Decrypt(encrypted, []byte("wrong")); err == nil {
		t.Error("Decrypt() with wrong password should fail")
	}
}

func TestDecrypt_Truncated(t *testing.T) {
	if _, err := Decrypt([]byte("short"), []byte("p")); err == nil {
		t.Error("Decrypt() of truncated data should fail")
	}
}

func TestKeystore_CreateAndLoad(t *testing.T) {
	ks := testKeystore(t)
	key := testKey(t)
	password := []byte("test-password")

	if err := ks.Create("admin", key, password, fastParams()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	loaded, err := ks.Load("admin", password)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !bytes.Equal(loaded.Serialize(), key.Serialize()) {
		t.Error("loaded key does not match original")
	}
}

func TestKeystore_Address(t *testing.T) {
	ks := testKeystore(t)
	key := testKey(t)

	if err := ks.Create("admin", key, []byte("p"), fastParams()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	addr, err := ks.Address("admin")
	if err != nil {
		t.Fatalf("Address() error: %v", err)
	}
	want := crypto.AddressFromPubKey(key.PublicKey())
	if addr != want {
		t.Errorf("Address() = %s, want %s", addr, want)
	}
}

func TestKeystore_CreateDuplicate(t *testing.T) {
	ks := testKeystore(t)
	key := testKey(t)

	if err := ks.Create("dup", key, []byte("p"), fastParams()); err != nil {
		t.Fatalf("first Create() error: %v", err)
	}
	if err := ks.Create("dup", key, []byte("p"), fastParams()); err == nil {
		t.Error("second Create() should fail for duplicate name")
	}
}

func TestKeystore_LoadWrongPassword(t *testing.T) {
	ks := testKeystore(t)

	ks.Create("k", testKey(t), []byte("correct"), fastParams())
	if _, err := ks.Load("k", []byte("wrong")); err == nil {
		t.Error("Load() with wrong password should fail")
	}
}

func TestKeystore_LoadNonexistent(t *testing.T) {
	ks := testKeystore(t)

	if _, err := ks.Load("doesnotexist", []byte("p")); err == nil {
		t.Error("Load() for nonexistent key should fail")
	}
}

func TestKeystore_List(t *testing.T) {
	ks := testKeystore(t)

	names, err := ks.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected 0 keys, got %d", len(names))
	}

	ks.Create("alpha", testKey(t), []byte("p"), fastParams())
	ks.Create("beta", testKey(t), []byte("p"), fastParams())

	names, err = ks.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("expected 2 keys, got %d", len(names))
	}
}

func TestKeystore_Delete(t *testing.T) {
	ks := testKeystore(t)

	ks.Create("todelete", testKey(t), []byte("p"), fastParams())
	if err := ks.Delete("todelete"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := ks.Delete("todelete"); err == nil {
		t.Error("second Delete() should fail")
	}
}

func TestKeystore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	ks, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ks.Create("k", testKey(t), []byte("p"), fastParams())

	info, err := os.Stat(filepath.Join(dir, "k.key"))
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("key file mode = %o, want 0600", perm)
	}
}

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if !ValidateMnemonic(mnemonic) {
		t.Error("generated mnemonic is invalid")
	}

	other, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if mnemonic == other {
		t.Error("two generated mnemonics are identical")
	}
}

func TestValidateMnemonic_Invalid(t *testing.T) {
	if ValidateMnemonic("not a real mnemonic at all") {
		t.Error("invalid mnemonic accepted")
	}
}

func TestKeyFromMnemonic_Deterministic(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

	k1, err := KeyFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("KeyFromMnemonic() error: %v", err)
	}
	k2, err := KeyFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("KeyFromMnemonic() error: %v", err)
	}
	if !bytes.Equal(k1.Serialize(), k2.Serialize()) {
		t.Error("same mnemonic produced different keys")
	}

	k3, err := KeyFromMnemonic(mnemonic, "passphrase")
	if err != nil {
		t.Fatalf("KeyFromMnemonic() with passphrase error: %v", err)
	}
	if bytes.Equal(k1.Serialize(), k3.Serialize()) {
		t.Error("passphrase did not change derived key")
	}
}

func TestKeyFromMnemonic_Invalid(t *testing.T) {
	if _, err := KeyFromMnemonic("bogus words here", ""); err == nil {
		t.Error("KeyFromMnemonic() with invalid mnemonic should fail")
	}
}
