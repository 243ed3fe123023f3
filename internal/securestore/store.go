// Package securestore provides an encrypted key/value file used to hold
// device credentials at rest. Values are sealed with XChaCha20-Poly1305
// under a key derived from a device-local key file via HKDF-SHA256.
package securestore

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"tvagent/internal/infrastructure/logging"
)

// storeVersion is prepended to the sealed file and bound into the AEAD as
// additional authenticated data, so tampering with it fails authentication.
const storeVersion byte = 0x01

const keySize = 32

// hkdfInfo separates this derivation path from any future use of the same
// key file.
var hkdfInfo = []byte("tvagent.securestore.v1")

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("securestore: key not found")

// ErrUnreadable is returned when the store file exists but cannot be
// decrypted or parsed. The caller should treat stored credentials as lost
// and re-pair the device.
var ErrUnreadable = errors.New("securestore: store file unreadable")

// Store is a file-backed encrypted key/value store. All operations are safe
// for concurrent use.
type Store struct {
	mu     sync.Mutex
	path   string
	aead   aeadSealer
	logger logging.Logger
}

type aeadSealer interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
	Overhead() int
}

// Open loads or initializes the store at path. keyPath names the device key
// file; if it does not exist a fresh random key is generated with 0600
// permissions.
func Open(path, keyPath string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	master, err := loadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}

	derived := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, hkdfInfo), derived); err != nil {
		return nil, fmt.Errorf("securestore: deriving store key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return nil, fmt.Errorf("securestore: creating cipher: %w", err)
	}

	return &Store{path: path, aead: aead, logger: logger}, nil
}

// Get returns the stored value for key, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set writes key to value, creating the store file on first use.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		if !errors.Is(err, ErrUnreadable) {
			return err
		}
		// An unreadable store is replaced rather than blocking new writes.
		s.logger.Warn("replacing unreadable secure store", "path", s.path)
		values = map[string]string{}
	}
	values[key] = value
	return s.save(values)
}

// SetAll writes multiple keys in a single sealed snapshot.
func (s *Store) SetAll(pairs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		if !errors.Is(err, ErrUnreadable) {
			return err
		}
		s.logger.Warn("replacing unreadable secure store", "path", s.path)
		values = map[string]string{}
	}
	for k, v := range pairs {
		values[k] = v
	}
	return s.save(values)
}

// Delete removes key if present. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		if errors.Is(err, ErrUnreadable) {
			return nil
		}
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

// DeleteAll removes every listed key in a single sealed snapshot, so a
// crash cannot leave only some of them deleted. Missing keys are ignored.
func (s *Store) DeleteAll(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		if errors.Is(err, ErrUnreadable) {
			return nil
		}
		return err
	}
	changed := false
	for _, key := range keys {
		if _, ok := values[key]; ok {
			delete(values, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(values)
}

// Wipe deletes the store file entirely.
func (s *Store) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("securestore: wiping store: %w", err)
	}
	return nil
}

// load reads and decrypts the store file. A missing file yields an empty
// map; a corrupt or tampered file yields ErrUnreadable.
func (s *Store) load() (map[string]string, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("securestore: reading store: %w", err)
	}

	minLen := 1 + s.aead.NonceSize() + s.aead.Overhead()
	if len(blob) < minLen || blob[0] != storeVersion {
		return nil, ErrUnreadable
	}

	nonce := blob[1 : 1+s.aead.NonceSize()]
	ciphertext := blob[1+s.aead.NonceSize():]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte{storeVersion})
	if err != nil {
		return nil, ErrUnreadable
	}

	var values map[string]string
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, ErrUnreadable
	}
	return values, nil
}

// save seals the map and writes it atomically via a temp file rename.
func (s *Store) save(values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("securestore: encoding store: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("securestore: generating nonce: %w", err)
	}

	blob := make([]byte, 1+len(nonce), 1+len(nonce)+len(plaintext)+s.aead.Overhead())
	blob[0] = storeVersion
	copy(blob[1:], nonce)
	blob = s.aead.Seal(blob, nonce, plaintext, []byte{storeVersion})

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("securestore: creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".securestore-*")
	if err != nil {
		return fmt.Errorf("securestore: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("securestore: writing store: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("securestore: setting store permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("securestore: closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("securestore: replacing store: %w", err)
	}
	return nil
}

func loadOrCreateKey(keyPath string) ([]byte, error) {
	key, err := os.ReadFile(keyPath)
	if err == nil {
		if len(key) != keySize {
			return nil, fmt.Errorf("securestore: key file %s is %d bytes, expected %d", keyPath, len(key), keySize)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("securestore: reading key file: %w", err)
	}

	key = make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("securestore: generating device key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return nil, fmt.Errorf("securestore: creating key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("securestore: writing key file: %w", err)
	}
	return key, nil
}
