package keystore

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"github.com/Klingon-tech/klingnet-forge/pkg/crypto"
)

// MnemonicEntropyBits is the entropy size for 24-word mnemonics.
const MnemonicEntropyBits = 256

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39
// (correct word count, valid words, valid checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// KeyFromMnemonic deterministically derives a signing key from a
// mnemonic and optional passphrase. The BIP-39 seed is hashed down to
// a 32-byte scalar, so the same mnemonic always recovers the same key.
func KeyFromMnemonic(mnemonic, passphrase string) (*crypto.PrivateKey, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	scalar := crypto.Hash(seed)
	for i := range seed {
		seed[i] = 0
	}
	key, err := crypto.PrivateKeyFromBytes(scalar[:])
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
