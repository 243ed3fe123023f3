package securestore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tvagent/internal/infrastructure/logging"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dir := t.TempDir()
	store, err := Open(
		filepath.Join(dir, "store.enc"),
		filepath.Join(dir, "device.key"),
		logging.NewDefaultLogger(),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store
}

func TestSetAndGet(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Set("auth_token", "secret-value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get("auth_token")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "secret-value" {
		t.Errorf("Expected secret-value, got %q", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSetAll(t *testing.T) {
	store := setupTestStore(t)

	err := store.SetAll(map[string]string{
		"auth_token":    "a",
		"refresh_token": "r",
		"device_id":     "d",
	})
	if err != nil {
		t.Fatalf("SetAll failed: %v", err)
	}

	for key, want := range map[string]string{"auth_token": "a", "refresh_token": "r", "device_id": "d"} {
		got, err := store.Get(key)
		if err != nil {
			t.Fatalf("Get %s failed: %v", key, err)
		}
		if got != want {
			t.Errorf("Key %s: expected %q, got %q", key, want, got)
		}
	}
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again is a no-op.
	if err := store.Delete("k"); err != nil {
		t.Errorf("Deleting missing key should succeed, got %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	store := setupTestStore(t)

	if err := store.SetAll(map[string]string{"a": "1", "b": "2", "c": "3"}); err != nil {
		t.Fatalf("SetAll failed: %v", err)
	}
	if err := store.DeleteAll("a", "b", "missing"); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	for _, key := range []string{"a", "b"} {
		if _, err := store.Get(key); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected %s removed, got %v", key, err)
		}
	}
	if v, err := store.Get("c"); err != nil || v != "3" {
		t.Errorf("Expected untouched key to survive, got %q, %v", v, err)
	}

	// All listed keys missing is a no-op.
	if err := store.DeleteAll("a", "b"); err != nil {
		t.Errorf("DeleteAll of missing keys should succeed, got %v", err)
	}
}

func TestWipe(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Wipe(); err != nil {
		t.Fatalf("Wipe failed: %v", err)
	}
	if _, err := store.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected empty store after wipe, got %v", err)
	}

	// Wiping a missing file is fine.
	if err := store.Wipe(); err != nil {
		t.Errorf("Second wipe should succeed, got %v", err)
	}
}

func TestPersistenceAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.enc")
	keyPath := filepath.Join(dir, "device.key")
	logger := logging.NewDefaultLogger()

	store, err := Open(storePath, keyPath, logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Set("auth_token", "persisted"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reopened, err := Open(storePath, keyPath, logger)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	got, err := reopened.Get("auth_token")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got != "persisted" {
		t.Errorf("Expected persisted value, got %q", got)
	}
}

func TestFileIsEncrypted(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.enc")

	store, err := Open(storePath, filepath.Join(dir, "device.key"), logging.NewDefaultLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Set("auth_token", "plaintext-secret"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	raw, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatalf("Reading store file failed: %v", err)
	}
	if bytes.Contains(raw, []byte("plaintext-secret")) {
		t.Error("Store file contains plaintext secret")
	}
	if bytes.Contains(raw, []byte("auth_token")) {
		t.Error("Store file contains plaintext key name")
	}
}

func TestCorruptStoreIsUnreadable(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.enc")
	keyPath := filepath.Join(dir, "device.key")
	logger := logging.NewDefaultLogger()

	store, err := Open(storePath, keyPath, logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Flip a ciphertext byte.
	raw, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatalf("Reading store failed: %v", err)
	}
	raw[len(raw)-1] ^= 0xFF
	if err := os.WriteFile(storePath, raw, 0o600); err != nil {
		t.Fatalf("Corrupting store failed: %v", err)
	}

	if _, err := store.Get("k"); !errors.Is(err, ErrUnreadable) {
		t.Errorf("Expected ErrUnreadable for tampered store, got %v", err)
	}

	// Writing replaces the unreadable store and recovers.
	if err := store.Set("k2", "v2"); err != nil {
		t.Fatalf("Set after corruption failed: %v", err)
	}
	got, err := store.Get("k2")
	if err != nil {
		t.Fatalf("Get after recovery failed: %v", err)
	}
	if got != "v2" {
		t.Errorf("Expected v2, got %q", got)
	}
}

func TestWrongKeyIsUnreadable(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.enc")
	logger := logging.NewDefaultLogger()

	store, err := Open(storePath, filepath.Join(dir, "key1"), logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	other, err := Open(storePath, filepath.Join(dir, "key2"), logger)
	if err != nil {
		t.Fatalf("Open with different key failed: %v", err)
	}
	if _, err := other.Get("k"); !errors.Is(err, ErrUnreadable) {
		t.Errorf("Expected ErrUnreadable with wrong key, got %v", err)
	}
}

func TestKeyFilePermissions(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "device.key")

	if _, err := Open(filepath.Join(dir, "store.enc"), keyPath, logging.NewDefaultLogger()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("Stat key file failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected key file mode 0600, got %v", info.Mode().Perm())
	}
}
