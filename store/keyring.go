package store

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"
)

var _ Store = (*Keyring)(nil)

// Keyring stores values in the operating system keychain (Keychain on
// macOS, Credential Manager on Windows, Secret Service on Linux). It is the
// default backend for desktop builds, where tokens must not land on disk in
// plaintext.
type Keyring struct {
	service string
}

// NewKeyring creates a keychain-backed store. The service name namespaces
// the entries so several applications can share one keychain.
func NewKeyring(service string) *Keyring {
	return &Keyring{service: service}
}

func (k *Keyring) Get(_ context.Context, key string) (string, error) {
	value, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (k *Keyring) Set(_ context.Context, key, value string) error {
	return keyring.Set(k.service, key, value)
}

func (k *Keyring) Delete(_ context.Context, key string) error {
	err := keyring.Delete(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
