package services

import (
	"context"
	"errors"
	"time"

	"tvagent/internal/credentials"
	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/platform"
	"tvagent/internal/repository"
	"tvagent/internal/syncclient"
	"tvagent/internal/types"
)

// maxUploadAttempts caps retries for one upload run before the failure is
// declared permanent.
const maxUploadAttempts = 3

// UploadAPI is the slice of the sync client the uploader needs.
type UploadAPI interface {
	UploadUsage(ctx context.Context, token string, req syncclient.UsageStatsRequest) (syncclient.UsageStatsResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (syncclient.TokenResponse, error)
}

// Uploader pushes the current day's pending usage records to the server
// and marks exactly the uploaded set.
type Uploader struct {
	api          UploadAPI
	creds        *credentials.Store
	repo         repository.UsageRepository
	connectivity platform.ConnectivityChecker
	logger       logging.Logger
}

// NewUploader creates an upload engine.
func NewUploader(api UploadAPI, creds *credentials.Store, repo repository.UsageRepository, connectivity platform.ConnectivityChecker, logger logging.Logger) *Uploader {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Uploader{
		api:          api,
		creds:        creds,
		repo:         repo,
		connectivity: connectivity,
		logger:       logger,
	}
}

// Run performs one upload attempt. attempt counts from 1 and is supplied
// by the scheduler. Only transport-level failures consume the attempt
// budget; waiting for connectivity retries indefinitely, and a token that
// cannot be refreshed stops the run immediately.
func (u *Uploader) Run(ctx context.Context, attempt int) types.Outcome {
	if !u.connectivity.Online(ctx) {
		return types.Retry("device is offline", nil)
	}

	token, err := u.creds.EnsureValid(ctx, u.refreshFunc())
	if err != nil {
		return types.PermanentFailure("authentication failed", err)
	}

	deviceID, err := u.creds.DeviceID()
	if err != nil {
		return types.PermanentFailure("device is not registered", err)
	}

	now := time.Now()
	pending, err := u.repo.PendingUpload(ctx, now)
	if err != nil {
		return u.transient(attempt, "loading pending records failed", err)
	}
	if len(pending) == 0 {
		return types.Success("no usage stats to upload")
	}

	items := make([]syncclient.UsageStatItem, 0, len(pending))
	uploaded := make([]string, 0, len(pending))
	for _, rec := range pending {
		items = append(items, syncclient.StatItemFromRecord(rec))
		uploaded = append(uploaded, rec.PackageName)
	}

	_, err = u.api.UploadUsage(ctx, token, syncclient.UsageStatsRequest{
		DeviceID:   deviceID,
		AppStats:   items,
		Timestamp:  now.UnixMilli(),
		ReportDate: types.DateKey(now),
	})
	if err != nil {
		if isAuthFailure(err) {
			return types.PermanentFailure("server rejected credentials", err)
		}
		return u.transient(attempt, "upload request failed", err)
	}

	if err := u.repo.MarkUploaded(ctx, now, uploaded); err != nil {
		// The server has the data; the next run re-uploads the same rows,
		// which the server treats as an idempotent overwrite.
		return u.transient(attempt, "marking records uploaded failed", err)
	}

	u.logger.Info("usage upload complete", "records", len(uploaded), "date", types.DateKey(now))
	return types.Success("uploaded %d records", len(uploaded))
}

func (u *Uploader) refreshFunc() credentials.RefreshFunc {
	return func(ctx context.Context, refreshToken string) (credentials.Tokens, error) {
		resp, err := u.api.RefreshToken(ctx, refreshToken)
		if err != nil {
			return credentials.Tokens{}, err
		}
		return credentials.Tokens{
			AuthToken:    resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
		}, nil
	}
}

func (u *Uploader) transient(attempt int, reason string, err error) types.Outcome {
	if attempt >= maxUploadAttempts {
		return types.PermanentFailure(reason, err)
	}
	return types.Retry(reason, err)
}

// isAuthFailure reports whether err means the stored credentials are
// unusable and retrying cannot help.
func isAuthFailure(err error) bool {
	if errors.Is(err, credentials.ErrNotAuthenticated) {
		return true
	}
	var apiErr *syncclient.Error
	return errors.As(err, &apiErr) && apiErr.IsAuthError()
}
