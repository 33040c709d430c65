package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ivSize is fixed at 16 bytes to stay compatible with payloads sealed
// by earlier deployments.
const ivSize = 16

// keySize is the AES-256 key length in bytes.
const keySize = 32

// EncryptionKey is one entry of the configured keyring. Value is the
// raw key material; exactly one entry should carry isPrimary.
type EncryptionKey struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	IsPrimary bool   `json:"isPrimary"`
}

// EncryptedPayload is a sealed credential blob. It lives only inside
// session tokens; keyId selects the keyring entry for decryption so old
// payloads survive key rotation.
type EncryptedPayload struct {
	KeyID string `json:"keyId"`
	IV    string `json:"iv"`
	Data  string `json:"data"`
}

// ConfigurationError reports a keyring deployment problem: no primary
// key, an unknown key id, or malformed key material.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "encryption keyring misconfigured: " + e.Reason
}

// DecryptionError reports a payload that cannot be opened. Callers
// treat it as an invalid token; the detail stays in server logs.
type DecryptionError struct {
	Reason string
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decryption failed: %s: %v", e.Reason, e.Err)
	}
	return "decryption failed: " + e.Reason
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// Keyring holds the configured encryption keys as an in-memory lookup
// table built once at startup. The primary key seals new payloads; any
// key may open payloads by id.
type Keyring struct {
	byID    map[string]EncryptionKey
	primary string
}

// ParseKeys decodes the ENCRYPTION_KEYS configuration value, a JSON
// array of {id, value, isPrimary}.
func ParseKeys(raw string) ([]EncryptionKey, error) {
	var keys []EncryptionKey
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, &ConfigurationError{Reason: "ENCRYPTION_KEYS is not a JSON key array"}
	}
	return keys, nil
}

// NewKeyring validates the key set and builds the lookup table.
func NewKeyring(keys []EncryptionKey) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, &ConfigurationError{Reason: "no encryption keys configured"}
	}
	kr := &Keyring{byID: make(map[string]EncryptionKey, len(keys))}
	for _, k := range keys {
		if k.ID == "" {
			return nil, &ConfigurationError{Reason: "encryption key with empty id"}
		}
		if len(k.Value) != keySize {
			return nil, &ConfigurationError{
				Reason: fmt.Sprintf("key %q must be %d bytes, got %d", k.ID, keySize, len(k.Value)),
			}
		}
		if _, dup := kr.byID[k.ID]; dup {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate key id %q", k.ID)}
		}
		kr.byID[k.ID] = k
		if k.IsPrimary {
			kr.primary = k.ID
		}
	}
	return kr, nil
}

// PrimaryKey returns the key used for new encryptions.
func (kr *Keyring) PrimaryKey() (EncryptionKey, error) {
	if kr.primary == "" {
		return EncryptionKey{}, &ConfigurationError{Reason: "no key is marked primary"}
	}
	return kr.byID[kr.primary], nil
}

// KeyByID returns the key for an existing payload's keyId.
func (kr *Keyring) KeyByID(id string) (EncryptionKey, error) {
	k, ok := kr.byID[id]
	if !ok {
		return EncryptionKey{}, &ConfigurationError{Reason: fmt.Sprintf("no key with id %q", id)}
	}
	return k, nil
}

// Encrypt seals plaintext under the primary key with a fresh random IV.
// Two calls with the same plaintext yield different ciphertexts.
func (kr *Keyring) Encrypt(plaintext string) (*EncryptedPayload, error) {
	key, err := kr.PrimaryKey()
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generating iv: %w", err)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	return &EncryptedPayload{
		KeyID: key.ID,
		IV:    hex.EncodeToString(iv),
		Data:  hex.EncodeToString(sealed),
	}, nil
}

// Decrypt opens a payload with the key named by its keyId.
func (kr *Keyring) Decrypt(payload *EncryptedPayload) (string, error) {
	key, err := kr.KeyByID(payload.KeyID)
	if err != nil {
		return "", &DecryptionError{Reason: "unknown key id " + payload.KeyID, Err: err}
	}

	iv, err := hex.DecodeString(payload.IV)
	if err != nil || len(iv) != ivSize {
		return "", &DecryptionError{Reason: "malformed iv", Err: err}
	}

	sealed, err := hex.DecodeString(payload.Data)
	if err != nil {
		return "", &DecryptionError{Reason: "malformed ciphertext", Err: err}
	}

	aead, err := newAEAD(key)
	if err != nil {
		return "", &DecryptionError{Reason: "cipher init", Err: err}
	}

	plain, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", &DecryptionError{Reason: "integrity check failed", Err: err}
	}
	return string(plain), nil
}

func newAEAD(key EncryptionKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher([]byte(key.Value))
	if err != nil {
		return nil, fmt.Errorf("cipher for key %q: %w", key.ID, err)
	}
	return cipher.NewGCMWithNonceSize(block, ivSize)
}
