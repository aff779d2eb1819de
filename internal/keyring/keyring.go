// Package keyring caches vault master passwords in the OS keyring.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "passman"

// ErrNotFound is returned when no password is stored for a vault.
var ErrNotFound = keyring.ErrNotFound

// SavePassword stores a vault's master password in the OS keyring.
func SavePassword(vault string, password []byte) error {
	return keyring.Set(serviceName, vault, string(password))
}

// GetPassword retrieves a vault's master password from the OS keyring.
func GetPassword(vault string) ([]byte, error) {
	pw, err := keyring.Get(serviceName, vault)
	if err != nil {
		return nil, err
	}
	return []byte(pw), nil
}

// DeletePassword removes a vault's master password. Deleting a missing entry
// is not an error.
func DeletePassword(vault string) error {
	if err := keyring.Delete(serviceName, vault); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// HasPassword checks if a password is stored for vault.
func HasPassword(vault string) bool {
	_, err := keyring.Get(serviceName, vault)
	return err == nil
}
