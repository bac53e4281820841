package store

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 32

	// scrypt parameters, interactive profile.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var _ Store = (*File)(nil)

// File is an encrypted single-file store for platforms without a usable
// keychain (headless Linux, CI). All values live in one JSON document sealed
// with XChaCha20-Poly1305 under a key derived from the passphrase.
//
// On-disk layout: salt || nonce || ciphertext.
type File struct {
	path       string
	passphrase []byte

	lock sync.Mutex
}

// NewFile creates a file store at path. The parent directory is created on
// first write with owner-only permissions.
func NewFile(path string, passphrase []byte) *File {
	return &File{path: path, passphrase: passphrase}
}

func (f *File) Get(_ context.Context, key string) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *File) Delete(_ context.Context, key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

func (f *File) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", f.path, err)
	}
	if len(raw) < saltLength+chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("store: %s is truncated", f.path)
	}

	salt := raw[:saltLength]
	nonce := raw[saltLength : saltLength+chacha20poly1305.NonceSizeX]
	ciphertext := raw[saltLength+chacha20poly1305.NonceSizeX:]

	aead, err := f.aead(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("store: decrypt %s: %w", f.path, err)
	}

	values := map[string]string{}
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", f.path, err)
	}
	return values, nil
}

func (f *File) save(values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("store: encode values: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("store: generate salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("store: generate nonce: %w", err)
	}

	aead, err := f.aead(salt)
	if err != nil {
		return err
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("store: create directory: %w", err)
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	if err := os.WriteFile(f.path, out, 0o600); err != nil {
		return fmt.Errorf("store: write %s: %w", f.path, err)
	}
	return nil
}

func (f *File) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(f.passphrase, salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("store: derive key: %w", err)
	}
	return chacha20poly1305.NewX(key)
}
