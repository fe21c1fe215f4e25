package cryptox

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avigliano/scontrino/internal/common"
)

func testRing(t *testing.T, active byte) *Keyring {
	t.Helper()
	r := NewKeyring(active)
	require.NoError(t, r.Add(active, common.GenerateRandByteArray(32)))
	return r
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := NewCipher(testRing(t, 1))

	plaintexts := []string{
		"",
		"1234",
		"password-with-?speciali&chars=",
		"codice fiscale: RSSMRA80A01H501U — città, caffè, €",
		string([]byte{0, 1, 2, 255}),
	}
	for _, p := range plaintexts {
		enc, err := c.EncryptString(p)
		require.NoError(t, err)
		dec, err := c.DecryptString(enc)
		require.NoError(t, err)
		assert.Equal(t, p, dec)
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	c := NewCipher(testRing(t, 1))

	a, err := c.EncryptString("same plaintext")
	require.NoError(t, err)
	b, err := c.EncryptString("same plaintext")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecrypt_TamperingDetected(t *testing.T) {
	c := NewCipher(testRing(t, 1))

	enc, err := c.EncryptString("pin 1234")
	require.NoError(t, err)
	envelope, err := base64.StdEncoding.DecodeString(enc)
	require.NoError(t, err)

	// flip one byte in each envelope region: nonce, tag, ciphertext
	for _, i := range []int{1, 1 + nonceSize, minEnvelope} {
		mutated := bytes.Clone(envelope)
		mutated[i] ^= 0x01
		_, err := c.Decrypt(base64.StdEncoding.EncodeToString(mutated))
		assert.Error(t, err, "flipped byte at offset %d", i)
	}
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	c1 := NewCipher(testRing(t, 1))
	c2 := NewCipher(testRing(t, 1)) // same version, different random key

	enc, err := c1.EncryptString("secret")
	require.NoError(t, err)
	_, err = c2.DecryptString(enc)
	assert.Error(t, err)
}

func TestDecrypt_UnknownVersion(t *testing.T) {
	c := NewCipher(testRing(t, 1))
	enc, err := c.EncryptString("secret")
	require.NoError(t, err)

	other := NewCipher(testRing(t, 2)) // knows only version 2
	_, err = other.DecryptString(enc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key version")
}

func TestDecrypt_GarbageInputs(t *testing.T) {
	c := NewCipher(testRing(t, 1))
	for _, in := range []string{"", "not base64 !!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := c.DecryptString(in)
		assert.Error(t, err, "%q", in)
	}
}

func TestRotation_OldRecordsNeedOldKey(t *testing.T) {
	oldKey := common.GenerateRandByteArray(32)
	newKey := common.GenerateRandByteArray(32)

	oldRing := NewKeyring(1)
	require.NoError(t, oldRing.Add(1, oldKey))
	enc, err := NewCipher(oldRing).EncryptString("tax-code")
	require.NoError(t, err)

	// rotated ring keeps version 1 available while 2 is active
	ring := NewKeyring(2)
	require.NoError(t, ring.Add(1, oldKey))
	require.NoError(t, ring.Add(2, newKey))
	c := NewCipher(ring)

	dec, err := c.DecryptString(enc)
	require.NoError(t, err)
	assert.Equal(t, "tax-code", dec)

	// re-encryption moves the record to the active version
	reenc, err := c.EncryptString(dec)
	require.NoError(t, err)
	v, err := Version(reenc)
	require.NoError(t, err)
	assert.Equal(t, byte(2), v)

	// a ring that retired version 1 cannot read the old record
	retired := NewKeyring(2)
	require.NoError(t, retired.Add(2, newKey))
	_, err = NewCipher(retired).DecryptString(enc)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	c := NewCipher(testRing(t, 7))
	enc, err := c.EncryptString("x")
	require.NoError(t, err)
	v, err := Version(enc)
	require.NoError(t, err)
	assert.Equal(t, byte(7), v)
}

func TestKeyring_Validation(t *testing.T) {
	r := NewKeyring(1)
	assert.Error(t, r.Add(1, []byte("too short")))
	require.NoError(t, r.Add(1, common.GenerateRandByteArray(32)))
	assert.Error(t, r.Add(1, common.GenerateRandByteArray(32)), "duplicate version")

	assert.Error(t, r.AddHex(2, "zz"))
	require.NoError(t, r.AddHex(2, "000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f"))

	empty := NewKeyring(3)
	_, err := NewCipher(empty).EncryptString("x")
	assert.Error(t, err, "no active key registered")
}

func TestDeriveKey_DeterministicAnd32Bytes(t *testing.T) {
	k1 := DeriveKey([]byte("passphrase"), []byte("salt"))
	k2 := DeriveKey([]byte("passphrase"), []byte("salt"))
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)

	k3 := DeriveKey([]byte("passphrase"), []byte("other-salt"))
	assert.NotEqual(t, k1, k3)
}
