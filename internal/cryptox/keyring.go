// Package cryptox protects stored portal credentials with versioned
// authenticated encryption. The envelope is key-version || nonce || tag ||
// ciphertext, base64-encoded; keys are looked up by version from an
// explicitly constructed Keyring so rotation and testing stay deterministic.
package cryptox

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const keySize = 32 // AES-256

// Keyring maps key versions to 256-bit keys. Several versions may be valid
// at once during rotation; records encrypted under a retired version become
// undecryptable, so correct rotation re-encrypts before removing keys.
type Keyring struct {
	active byte
	keys   map[byte][]byte
}

// NewKeyring creates an empty keyring with the given active version. The
// active key must be added before Encrypt is used.
func NewKeyring(activeVersion byte) *Keyring {
	return &Keyring{active: activeVersion, keys: make(map[byte][]byte)}
}

// Add registers a key under a version. The key must be exactly 32 bytes.
func (r *Keyring) Add(version byte, key []byte) error {
	if len(key) != keySize {
		return fmt.Errorf("key for version %d must be %d bytes, got %d", version, keySize, len(key))
	}
	if _, ok := r.keys[version]; ok {
		return fmt.Errorf("key version %d already registered", version)
	}
	k := make([]byte, keySize)
	copy(k, key)
	r.keys[version] = k
	return nil
}

// AddHex registers a hex-encoded key under a version.
func (r *Keyring) AddHex(version byte, hexKey string) error {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return fmt.Errorf("key for version %d is not valid hex: %w", version, err)
	}
	return r.Add(version, key)
}

// ActiveVersion reports the version new encryptions are performed under.
func (r *Keyring) ActiveVersion() byte {
	return r.active
}

func (r *Keyring) key(version byte) ([]byte, bool) {
	k, ok := r.keys[version]
	return k, ok
}

func (r *Keyring) activeKey() ([]byte, error) {
	k, ok := r.keys[r.active]
	if !ok {
		return nil, fmt.Errorf("no key registered for active version %d", r.active)
	}
	return k, nil
}

// DeriveKey derives a 256-bit key from an operator passphrase and salt using
// argon2id, for deployments that configure passphrases instead of raw keys.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, keySize)
}
