package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tvagent/internal/credentials"
	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/platform"
	"tvagent/internal/securestore"
	"tvagent/internal/syncclient"
)

// mockSource serves canned foreground stats per window length.
type mockSource struct {
	daily  []platform.ForegroundStat
	weekly []platform.ForegroundStat
	err    error
}

func (m *mockSource) QueryForegroundStats(ctx context.Context, start, end time.Time) ([]platform.ForegroundStat, error) {
	if m.err != nil {
		return nil, m.err
	}
	if end.Sub(start) > 25*time.Hour {
		return m.weekly, nil
	}
	return m.daily, nil
}

// mockRegistry resolves from a fixed descriptor set.
type mockRegistry struct {
	apps map[string]platform.AppDescriptor
}

func (m *mockRegistry) Resolve(pkg string) (platform.AppDescriptor, error) {
	desc, ok := m.apps[pkg]
	if !ok {
		return platform.AppDescriptor{}, platform.ErrPackageNotFound
	}
	return desc, nil
}

// offline is a ConnectivityChecker that always reports offline.
type offline struct{}

func (offline) Online(context.Context) bool { return false }

// mockAPI implements UploadAPI and CommandAPI with function hooks.
type mockAPI struct {
	uploadFn  func(ctx context.Context, token string, req syncclient.UsageStatsRequest) (syncclient.UsageStatsResponse, error)
	commandFn func(ctx context.Context, token, deviceID string) (syncclient.ControlCommandResponse, error)
	refreshFn func(ctx context.Context, refreshToken string) (syncclient.TokenResponse, error)
}

func (m *mockAPI) UploadUsage(ctx context.Context, token string, req syncclient.UsageStatsRequest) (syncclient.UsageStatsResponse, error) {
	return m.uploadFn(ctx, token, req)
}

func (m *mockAPI) ControlCommands(ctx context.Context, token, deviceID string) (syncclient.ControlCommandResponse, error) {
	return m.commandFn(ctx, token, deviceID)
}

func (m *mockAPI) RefreshToken(ctx context.Context, refreshToken string) (syncclient.TokenResponse, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return syncclient.TokenResponse{}, nil
}

// newTestCredentials builds a credential store over a temp secure store,
// optionally pre-paired with valid tokens and a device ID.
func newTestCredentials(t *testing.T, paired bool) *credentials.Store {
	t.Helper()

	dir := t.TempDir()
	kv, err := securestore.Open(
		filepath.Join(dir, "store.enc"),
		filepath.Join(dir, "device.key"),
		logging.NewDefaultLogger(),
	)
	if err != nil {
		t.Fatalf("Opening secure store failed: %v", err)
	}

	creds := credentials.NewStore(kv, logging.NewDefaultLogger())
	if paired {
		if err := creds.SaveDeviceID("dev-test"); err != nil {
			t.Fatalf("SaveDeviceID failed: %v", err)
		}
		err := creds.SaveTokens(credentials.Tokens{
			AuthToken:    "token-test",
			RefreshToken: "refresh-test",
			ExpiresIn:    time.Hour,
		})
		if err != nil {
			t.Fatalf("SaveTokens failed: %v", err)
		}
	}
	return creds
}
