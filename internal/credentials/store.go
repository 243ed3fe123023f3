// Package credentials manages the device's server identity: auth tokens,
// the refresh token, and the registered device ID. State is persisted in
// the encrypted secure store so credentials survive restarts.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/coder/quartz"

	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/securestore"
)

// Secure store keys.
const (
	keyAuthToken    = "auth_token"
	keyRefreshToken = "refresh_token"
	keyTokenExpiry  = "token_expiry"
	keyDeviceID     = "device_id"
)

// validityBuffer is subtracted from the token expiry when checking
// validity, so a token about to lapse mid-request counts as expired.
const validityBuffer = 5 * time.Minute

// ErrNotAuthenticated is returned when no usable credentials are stored.
// The device needs to register or pair again.
var ErrNotAuthenticated = errors.New("credentials: device is not authenticated")

// Tokens is the credential pair issued by the server.
type Tokens struct {
	AuthToken    string
	RefreshToken string
	ExpiresIn    time.Duration
}

// RefreshFunc exchanges a refresh token for fresh tokens.
type RefreshFunc func(ctx context.Context, refreshToken string) (Tokens, error)

// Store persists and validates device credentials. Safe for concurrent use;
// EnsureValid serializes refreshes so concurrent callers trigger at most one
// network exchange.
type Store struct {
	mu     sync.Mutex
	kv     *securestore.Store
	clock  quartz.Clock
	logger logging.Logger
}

// NewStore creates a credential store over the given secure store.
func NewStore(kv *securestore.Store, logger logging.Logger) *Store {
	return NewStoreWithClock(kv, quartz.NewReal(), logger)
}

// NewStoreWithClock creates a credential store with an injected clock.
func NewStoreWithClock(kv *securestore.Store, clock quartz.Clock, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Store{kv: kv, clock: clock, logger: logger}
}

// SaveTokens persists a credential pair, computing the absolute expiry from
// ExpiresIn against the store's clock.
func (s *Store) SaveTokens(tokens Tokens) error {
	if tokens.AuthToken == "" {
		return fmt.Errorf("credentials: auth token cannot be empty")
	}

	expiry := s.clock.Now().Add(tokens.ExpiresIn).UnixMilli()
	err := s.kv.SetAll(map[string]string{
		keyAuthToken:    tokens.AuthToken,
		keyRefreshToken: tokens.RefreshToken,
		keyTokenExpiry:  strconv.FormatInt(expiry, 10),
	})
	if err != nil {
		return fmt.Errorf("credentials: saving tokens: %w", err)
	}
	return nil
}

// SaveDeviceID persists the server-assigned device ID.
func (s *Store) SaveDeviceID(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("credentials: device ID cannot be empty")
	}
	if err := s.kv.Set(keyDeviceID, deviceID); err != nil {
		return fmt.Errorf("credentials: saving device ID: %w", err)
	}
	return nil
}

// DeviceID returns the stored device ID, or ErrNotAuthenticated when the
// device has never registered or the store is unreadable.
func (s *Store) DeviceID() (string, error) {
	id, err := s.kv.Get(keyDeviceID)
	if err != nil {
		if errors.Is(err, securestore.ErrNotFound) || errors.Is(err, securestore.ErrUnreadable) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("credentials: reading device ID: %w", err)
	}
	return id, nil
}

// AuthToken returns the stored auth token without checking validity.
func (s *Store) AuthToken() (string, error) {
	token, err := s.kv.Get(keyAuthToken)
	if err != nil {
		if errors.Is(err, securestore.ErrNotFound) || errors.Is(err, securestore.ErrUnreadable) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("credentials: reading auth token: %w", err)
	}
	return token, nil
}

// IsValid reports whether a stored token exists and remains valid past the
// safety buffer. Unreadable state counts as invalid, never an error.
func (s *Store) IsValid() bool {
	token, err := s.kv.Get(keyAuthToken)
	if err != nil || token == "" {
		return false
	}

	raw, err := s.kv.Get(keyTokenExpiry)
	if err != nil {
		return false
	}
	expiry, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}

	return s.clock.Now().Add(validityBuffer).UnixMilli() < expiry
}

// EnsureValid returns a currently-valid auth token, refreshing through
// refresh when the stored one is stale. Concurrent callers share one
// refresh; whoever arrives second sees the stored result.
func (s *Store) EnsureValid(ctx context.Context, refresh RefreshFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsValid() {
		return s.AuthToken()
	}

	refreshToken, err := s.kv.Get(keyRefreshToken)
	if err != nil || refreshToken == "" {
		return "", ErrNotAuthenticated
	}

	s.logger.Debug("refreshing expired auth token")
	tokens, err := refresh(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("credentials: token refresh failed: %w", err)
	}

	if err := s.SaveTokens(tokens); err != nil {
		return "", err
	}
	return tokens.AuthToken, nil
}

// Clear wipes all stored credentials. Used when the server rejects the
// refresh token and the device must pair again.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One snapshot write, so a failure cannot leave credentials half
	// cleared.
	if err := s.kv.DeleteAll(keyAuthToken, keyRefreshToken, keyTokenExpiry, keyDeviceID); err != nil {
		return fmt.Errorf("credentials: clearing stored credentials: %w", err)
	}
	return nil
}
