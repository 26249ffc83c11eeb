// Package keystore manages encrypted signing keys on disk. Each key
// lives in its own file, sealed with Argon2id + XChaCha20-Poly1305;
// the address is stored in the clear so lookups don't need the
// passphrase.
package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Klingon-tech/klingnet-forge/pkg/crypto"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// keyFile is the on-disk JSON format for an encrypted key.
type keyFile struct {
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	Address      string    `json:"address"`
	EncryptedKey []byte    `json:"encrypted_key"`
}

// Keystore manages encrypted key storage on disk.
type Keystore struct {
	path string
}

// New creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func New(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// keyPath returns the file path for a key by name.
func (ks *Keystore) keyPath(name string) string {
	return filepath.Join(ks.path, name+".key")
}

// Create stores a new encrypted key file. The key's 32-byte serialized
// form is sealed with the password; the derived address is recorded in
// the clear.
func (ks *Keystore) Create(name string, key *crypto.PrivateKey, password []byte, params EncryptionParams) error {
	path := ks.keyPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key %q already exists", name)
	}

	raw := key.Serialize()
	encrypted, err := Encrypt(raw, password, params)
	for i := range raw {
		raw[i] = 0
	}
	if err != nil {
		return fmt.Errorf("encrypt key: %w", err)
	}

	kf := keyFile{
		Version:      1,
		CreatedAt:    time.Now().UTC(),
		Address:      crypto.AddressFromPubKey(key.PublicKey()).String(),
		EncryptedKey: encrypted,
	}
	return ks.writeFile(path, &kf)
}

// Load decrypts a key file and returns the private key.
func (ks *Keystore) Load(name string, password []byte) (*crypto.PrivateKey, error) {
	kf, err := ks.readFile(ks.keyPath(name))
	if err != nil {
		return nil, err
	}

	raw, err := Decrypt(kf.EncryptedKey, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt key: %w", err)
	}

	key, err := crypto.PrivateKeyFromBytes(raw)
	for i := range raw {
		raw[i] = 0
	}
	if err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}
	return key, nil
}

// Address returns the address of a stored key without decrypting it.
func (ks *Keystore) Address(name string) (types.Address, error) {
	kf, err := ks.readFile(ks.keyPath(name))
	if err != nil {
		return types.Address{}, err
	}
	addr, err := types.ParseAddress(kf.Address)
	if err != nil {
		return types.Address{}, fmt.Errorf("key %q address: %w", name, err)
	}
	return addr, nil
}

// List returns the names of all key files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".key" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes a key file.
func (ks *Keystore) Delete(name string) error {
	path := ks.keyPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("key %q not found", name)
	}
	return os.Remove(path)
}

func (ks *Keystore) writeFile(path string, kf *keyFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*keyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported key file version: %d", kf.Version)
	}
	return &kf, nil
}
