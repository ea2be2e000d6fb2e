package securestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeychainMedium stores each key as a generic password in the OS credential
// store (macOS Keychain, Windows Credential Manager, Secret Service on Linux).
// All items share one service name; the store key is the account.
type KeychainMedium struct {
	service string
}

// NewKeychainMedium creates a keychain medium scoped to service
func NewKeychainMedium(service string) (*KeychainMedium, error) {
	if service == "" {
		return nil, fmt.Errorf("keychain service name is required")
	}
	return &KeychainMedium{service: service}, nil
}

func (k *KeychainMedium) Name() string      { return "keychain" }
func (k *KeychainMedium) SecretGrade() bool { return true }

// Set stores value. If the key already exists the OS item is updated in place.
func (k *KeychainMedium) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

// Get retrieves the value for key
func (k *KeychainMedium) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	value, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("keychain get: %w", err)
	}
	return value, true, nil
}

// Delete removes key; a missing item is not an error
func (k *KeychainMedium) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := keyring.Delete(k.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}
