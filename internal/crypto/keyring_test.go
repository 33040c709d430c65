package crypto_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threat-dragon/authd/internal/crypto"
)

const (
	keyA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	keyB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func newKeyring(t *testing.T, keys ...crypto.EncryptionKey) *crypto.Keyring {
	t.Helper()
	kr, err := crypto.NewKeyring(keys)
	require.NoError(t, err)
	return kr
}

func TestKeyringRoundTrip(t *testing.T) {
	kr := newKeyring(t, crypto.EncryptionKey{ID: "a", Value: keyA, IsPrimary: true})

	for _, plaintext := range []string{"", "x", `{"access_token":"ghtok"}`, strings.Repeat("long ", 200)} {
		payload, err := kr.Encrypt(plaintext)
		require.NoError(t, err)
		assert.Equal(t, "a", payload.KeyID)
		assert.Len(t, payload.IV, 32) // 16 bytes hex encoded

		got, err := kr.Decrypt(payload)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestKeyringEncryptUsesFreshIV(t *testing.T) {
	kr := newKeyring(t, crypto.EncryptionKey{ID: "a", Value: keyA, IsPrimary: true})

	first, err := kr.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := kr.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Data, second.Data)
}

func TestKeyringRotation(t *testing.T) {
	old := newKeyring(t, crypto.EncryptionKey{ID: "a", Value: keyA, IsPrimary: true})
	payload, err := old.Encrypt("sealed under a")
	require.NoError(t, err)

	// Rotate: b becomes primary, a stays in the ring for old payloads.
	rotated := newKeyring(t,
		crypto.EncryptionKey{ID: "a", Value: keyA},
		crypto.EncryptionKey{ID: "b", Value: keyB, IsPrimary: true},
	)

	got, err := rotated.Decrypt(payload)
	require.NoError(t, err)
	assert.Equal(t, "sealed under a", got)

	fresh, err := rotated.Encrypt("sealed under b")
	require.NoError(t, err)
	assert.Equal(t, "b", fresh.KeyID)
}

func TestKeyringNoPrimary(t *testing.T) {
	kr := newKeyring(t, crypto.EncryptionKey{ID: "a", Value: keyA})

	_, err := kr.Encrypt("anything")
	var confErr *crypto.ConfigurationError
	require.ErrorAs(t, err, &confErr)
}

func TestKeyringUnknownKeyID(t *testing.T) {
	kr := newKeyring(t, crypto.EncryptionKey{ID: "a", Value: keyA, IsPrimary: true})
	payload, err := kr.Encrypt("secret")
	require.NoError(t, err)

	payload.KeyID = "gone"
	_, err = kr.Decrypt(payload)
	var decErr *crypto.DecryptionError
	require.ErrorAs(t, err, &decErr)
}

func TestKeyringMalformedPayload(t *testing.T) {
	kr := newKeyring(t, crypto.EncryptionKey{ID: "a", Value: keyA, IsPrimary: true})

	t.Run("bad iv", func(t *testing.T) {
		payload, err := kr.Encrypt("secret")
		require.NoError(t, err)
		payload.IV = "feed"

		_, err = kr.Decrypt(payload)
		var decErr *crypto.DecryptionError
		require.ErrorAs(t, err, &decErr)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		payload, err := kr.Encrypt("secret")
		require.NoError(t, err)
		payload.Data = "00" + payload.Data[2:]

		_, err = kr.Decrypt(payload)
		var decErr *crypto.DecryptionError
		require.ErrorAs(t, err, &decErr)
	})
}

func TestNewKeyringValidation(t *testing.T) {
	cases := []struct {
		name string
		keys []crypto.EncryptionKey
	}{
		{"empty ring", nil},
		{"short key", []crypto.EncryptionKey{{ID: "a", Value: "tooshort", IsPrimary: true}}},
		{"empty id", []crypto.EncryptionKey{{Value: keyA, IsPrimary: true}}},
		{"duplicate id", []crypto.EncryptionKey{
			{ID: "a", Value: keyA, IsPrimary: true},
			{ID: "a", Value: keyB},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := crypto.NewKeyring(tc.keys)
			var confErr *crypto.ConfigurationError
			require.ErrorAs(t, err, &confErr)
		})
	}
}

func TestParseKeys(t *testing.T) {
	keys, err := crypto.ParseKeys(`[{"id":"a","value":"` + keyA + `","isPrimary":true}]`)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, keys[0].IsPrimary)

	_, err = crypto.ParseKeys("not json")
	var confErr *crypto.ConfigurationError
	require.ErrorAs(t, err, &confErr)
}
