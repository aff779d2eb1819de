package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

const (
	// NonceSize is the AES-GCM nonce length prepended to every ciphertext.
	NonceSize = 12
	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// Encrypt seals plaintext with AES-256-GCM under key and returns
// nonce || ciphertext || tag. A fresh random nonce is drawn for every call.
func Encrypt(key *SecureKey, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, pmerr.Wrap(pmerr.KindCrypto, "generate nonce", err)
	}
	return gcm.Seal(out, out[:NonceSize], plaintext, nil), nil
}

// Decrypt opens data produced by Encrypt. Any input whose tag does not verify
// is rejected; no plaintext is returned in that case.
func Decrypt(key *SecureKey, data []byte) ([]byte, error) {
	if len(data) < NonceSize {
		return nil, pmerr.ErrCiphertextTooShort
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return nil, pmerr.ErrDecrypt
	}
	return plaintext, nil
}

func newGCM(key *SecureKey) (cipher.AEAD, error) {
	raw := key.bytes()
	if raw == nil {
		return nil, pmerr.ErrKeyDestroyed
	}
	if len(raw) != KeySize {
		return nil, pmerr.Wrap(pmerr.KindCrypto, "create cipher", fmt.Errorf("aes-gcm requires a %d-byte key", KeySize))
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, pmerr.Wrap(pmerr.KindCrypto, "create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, pmerr.Wrap(pmerr.KindCrypto, "create gcm", err)
	}
	return gcm, nil
}
