// Package securestore holds the single local unlock code in an encrypted,
// owner-only file slot: AES-256-GCM with a key derived via argon2id from a
// per-install random secret.
package securestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

const (
	saltFileName = "unlock.salt"
	keyFileName  = "unlock.key"
	slotFileName = "unlock.bin"

	saltLength   = 16
	secretLength = 32
	keyLength    = 32

	fileMode = 0o600
	dirMode  = 0o700

	// argon2id parameters
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// FileStore implements the secure credential slot on the filesystem.
type FileStore struct {
	dir string
}

// NewFileStore prepares the slot directory with owner-only permissions.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating credential directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save encrypts and stores the code, replacing any previous one.
func (s *FileStore) Save(code string) error {
	key, err := s.deriveKey(true)
	if err != nil {
		return err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(code), nil)
	if err := os.WriteFile(filepath.Join(s.dir, slotFileName), sealed, fileMode); err != nil {
		return fmt.Errorf("writing credential slot: %w", err)
	}
	return nil
}

// Get returns the stored code, or ok=false when the slot is empty.
func (s *FileStore) Get() (string, bool, error) {
	sealed, err := os.ReadFile(filepath.Join(s.dir, slotFileName))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading credential slot: %w", err)
	}

	key, err := s.deriveKey(false)
	if err != nil {
		return "", false, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", false, err
	}
	if len(sealed) < gcm.NonceSize() {
		return "", false, errors.New("credential slot is corrupt")
	}

	plain, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return "", false, fmt.Errorf("decrypting credential slot: %w", err)
	}
	return string(plain), true, nil
}

// Exists reports whether a code is stored, without touching key material.
func (s *FileStore) Exists() (bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, slotFileName))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking credential slot: %w", err)
	}
	return true, nil
}

// Delete removes the stored code. Removing an empty slot succeeds.
func (s *FileStore) Delete() error {
	err := os.Remove(filepath.Join(s.dir, slotFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting credential slot: %w", err)
	}
	return nil
}

// deriveKey derives the AES key from the per-install secret and salt,
// creating both on first use when create is set.
func (s *FileStore) deriveKey(create bool) ([]byte, error) {
	salt, err := s.material(saltFileName, saltLength, create)
	if err != nil {
		return nil, err
	}
	secret, err := s.material(keyFileName, secretLength, create)
	if err != nil {
		return nil, err
	}
	return argon2.IDKey(secret, salt, argonTime, argonMemory, argonThreads, keyLength), nil
}

func (s *FileStore) material(name string, length int, create bool) ([]byte, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != length {
			return nil, fmt.Errorf("%s is corrupt", name)
		}
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if !create {
		return nil, fmt.Errorf("%s is missing", name)
	}

	data = make([]byte, length)
	if _, err := rand.Read(data); err != nil {
		return nil, fmt.Errorf("generating %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	return data, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	return gcm, nil
}
