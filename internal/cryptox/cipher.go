package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/avigliano/scontrino/internal/common"
)

const (
	nonceSize = 12
	tagSize   = 16
	// version byte + nonce + tag is the minimum envelope length
	// (an empty plaintext still carries all three)
	minEnvelope = 1 + nonceSize + tagSize
)

// Cipher performs authenticated encryption over a Keyring.
type Cipher struct {
	ring *Keyring
}

func NewCipher(ring *Keyring) *Cipher {
	return &Cipher{ring: ring}
}

// ActiveVersion reports the key version new encryptions are sealed under.
func (c *Cipher) ActiveVersion() byte {
	return c.ring.ActiveVersion()
}

// Encrypt seals plaintext under the keyring's active key. The result is
// base64(version || nonce || tag || ciphertext); a fresh random nonce per
// call means encrypting the same plaintext twice yields different outputs.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	key, err := c.ring.activeKey()
	if err != nil {
		return "", err
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := common.GenerateRandByteArray(nonceSize)

	// Seal emits ciphertext||tag; the envelope stores the tag first
	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	envelope := make([]byte, 0, minEnvelope+len(ct))
	envelope = append(envelope, c.ring.ActiveVersion())
	envelope = append(envelope, nonce...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ct...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// EncryptString is Encrypt for string plaintexts.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	return c.Encrypt([]byte(plaintext))
}

// Decrypt opens an envelope produced by Encrypt. It fails on tampering of
// any envelope component and on unknown key versions; it never silently
// returns wrong plaintext.
func (c *Cipher) Decrypt(encoded string) ([]byte, error) {
	envelope, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid envelope encoding: %w", err)
	}
	if len(envelope) < minEnvelope {
		return nil, fmt.Errorf("envelope too short: %d bytes", len(envelope))
	}

	version := envelope[0]
	key, ok := c.ring.key(version)
	if !ok {
		return nil, fmt.Errorf("unknown key version %d", version)
	}

	nonce := envelope[1 : 1+nonceSize]
	tag := envelope[1+nonceSize : minEnvelope]
	ct := envelope[minEnvelope:]

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	// reassemble ciphertext||tag the way Open expects it
	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// DecryptString is Decrypt for string plaintexts.
func (c *Cipher) DecryptString(encoded string) (string, error) {
	b, err := c.Decrypt(encoded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Version reports the key version an envelope was sealed under, without
// decrypting it. Used when sweeping stored records during key rotation.
func Version(encoded string) (byte, error) {
	envelope, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return 0, fmt.Errorf("invalid envelope encoding: %w", err)
	}
	if len(envelope) < minEnvelope {
		return 0, fmt.Errorf("envelope too short: %d bytes", len(envelope))
	}
	return envelope[0], nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
