// Package app wires the agent together: storage, credentials, sync client,
// background services and the scheduler.
package app

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tvagent/internal/config"
	"tvagent/internal/credentials"
	"tvagent/internal/database"
	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/platform"
	"tvagent/internal/repository"
	"tvagent/internal/scheduler"
	"tvagent/internal/securestore"
	"tvagent/internal/services"
	"tvagent/internal/syncclient"
	"tvagent/internal/types"
)

// Background job names. Periodic registrations are keyed by these, so a
// second registration under the same name keeps the first.
const (
	jobSample    = "usage_sample"
	jobUpload    = "usage_upload"
	jobPoll      = "command_poll"
	jobRetention = "retention_sweep"
	jobImmediate = "immediate_upload"
)

const retentionInterval = 24 * time.Hour

// Options overrides the host integrations. Zero fields fall back to the
// built-in sample implementations, which is the right default for
// development hosts without a usage facility.
type Options struct {
	Source       platform.UsageSource
	Registry     platform.PackageRegistry
	Connectivity platform.ConnectivityChecker
	Power        platform.PowerStatus
}

func (o *Options) applyDefaults() {
	if o.Source == nil {
		o.Source = platform.NewSampleUsageSource()
	}
	if o.Registry == nil {
		o.Registry = platform.NewSampleRegistry()
	}
	if o.Connectivity == nil {
		o.Connectivity = platform.NewTCPConnectivityChecker()
	}
	if o.Power == nil {
		o.Power = platform.MainsPower{}
	}
}

// App is the assembled agent. Create it with New, bring it up with Startup
// and tear it down with Shutdown.
type App struct {
	conf   *config.Config
	opts   Options
	logger logging.Logger

	db         *database.SQLiteService
	repo       repository.UsageRepository
	kv         *securestore.Store
	creds      *credentials.Store
	client     *syncclient.Client
	collector  *services.Collector
	uploader   *services.Uploader
	poller     *services.Poller
	dispatcher *services.Dispatcher
	queries    *services.Queries
	sched      *scheduler.Scheduler

	needsPairing atomic.Bool
	started      bool
}

// New validates the configuration and creates an unstarted App.
func New(conf *config.Config, opts Options, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if err := config.NewValidator(conf).Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(conf.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}

	opts.applyDefaults()

	return &App{
		conf:   conf,
		opts:   opts,
		logger: logger,
		client: syncclient.New(baseURL),
	}, nil
}

// Startup connects storage, runs migrations, builds the services and starts
// the background schedule. It is not safe to call twice.
func (a *App) Startup(ctx context.Context) error {
	if a.started {
		return fmt.Errorf("app already started")
	}

	if err := os.MkdirAll(a.conf.Storage.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	dbConfig := database.DefaultConfig()
	dbConfig.Path = filepath.Join(a.conf.Storage.DataDir, "tvagent.db")
	dbConfig.RetentionDays = a.conf.Storage.RetentionDays

	a.db = database.NewSQLiteService(a.logger)
	if err := a.db.Connect(ctx, dbConfig); err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	if err := a.db.Migrate(ctx); err != nil {
		a.db.Close()
		return fmt.Errorf("migrating database: %w", err)
	}
	a.repo = repository.NewSQLiteRepository(a.db, a.logger)

	kv, err := securestore.Open(
		filepath.Join(a.conf.Storage.DataDir, "secure.store"),
		filepath.Join(a.conf.Storage.DataDir, "device.key"),
		a.logger,
	)
	if err != nil {
		a.db.Close()
		return fmt.Errorf("opening secure store: %w", err)
	}
	a.kv = kv
	a.creds = credentials.NewStore(kv, a.logger)

	a.collector = services.NewCollector(a.opts.Source, a.opts.Registry, a.repo, a.logger)
	a.uploader = services.NewUploader(a.client, a.creds, a.repo, a.opts.Connectivity, a.logger)
	a.dispatcher = services.NewDispatcher(a.logger)
	a.registerCommandHandlers()
	a.poller = services.NewPoller(a.client, a.creds, a.dispatcher, a.opts.Connectivity, a.logger)
	a.queries = services.NewQueries(a.repo, a.creds, a.opts.Source, a.opts.Registry, a.logger)

	a.sched = scheduler.New(a.opts.Connectivity, a.opts.Power, a.logger)
	a.sched.OnPermanentFailure(a.onPermanentFailure)
	a.registerJobs()
	a.sched.Start()

	a.started = true
	a.logger.Info("agent started",
		"server", a.conf.Server.BaseURL,
		"dataDir", a.conf.Storage.DataDir,
		"paired", a.creds.IsValid())
	return nil
}

// Shutdown stops the schedule and closes storage.
func (a *App) Shutdown() error {
	if !a.started {
		return nil
	}
	a.sched.CancelAll()
	err := a.db.Close()
	a.started = false
	a.logger.Info("agent stopped")
	return err
}

// Queries exposes the read-side service for a presentation layer.
func (a *App) Queries() *services.Queries {
	return a.queries
}

// NeedsPairing reports whether a background job failed in a way only
// re-pairing can fix.
func (a *App) NeedsPairing() bool {
	return a.needsPairing.Load()
}

// Health checks the database connection.
func (a *App) Health(ctx context.Context) error {
	return a.db.Health(ctx)
}

// RegisterDevice registers this device with the server and stores the
// assigned device ID. The returned pairing code is shown to the user, who
// enters it in the companion app to approve the device.
func (a *App) RegisterDevice(ctx context.Context) (syncclient.RegisterDeviceResponse, error) {
	name := a.conf.Device.Name
	if name == "" {
		name = "tv-" + uuid.NewString()[:8]
	}

	resp, err := a.client.Register(ctx, syncclient.RegisterDeviceRequest{
		DeviceName:  name,
		DeviceModel: a.conf.Device.Model,
		OSVersion:   a.conf.Device.OSVersion,
	})
	if err != nil {
		return syncclient.RegisterDeviceResponse{}, fmt.Errorf("registering device: %w", err)
	}
	if err := a.creds.SaveDeviceID(resp.DeviceID); err != nil {
		return syncclient.RegisterDeviceResponse{}, fmt.Errorf("saving device id: %w", err)
	}

	a.logger.Info("device registered", "deviceId", resp.DeviceID, "name", name)
	return resp, nil
}

// Pair exchanges an approved pairing code for tokens and schedules an
// immediate upload so the server sees data right away.
func (a *App) Pair(ctx context.Context, pairingCode string) error {
	deviceID, err := a.creds.DeviceID()
	if err != nil {
		return fmt.Errorf("device not registered: %w", err)
	}

	tokens, err := a.client.Pair(ctx, syncclient.PairDeviceRequest{
		DeviceID:    deviceID,
		PairingCode: pairingCode,
	})
	if err != nil {
		return fmt.Errorf("pairing device: %w", err)
	}

	if err := a.creds.SaveTokens(credentials.Tokens{
		AuthToken:    tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    time.Duration(tokens.ExpiresIn) * time.Second,
	}); err != nil {
		return fmt.Errorf("saving tokens: %w", err)
	}

	a.needsPairing.Store(false)

	// Unpair stops the schedule; pairing brings it back. Start is a no-op
	// when the scheduler is already running.
	a.sched.Start()
	a.sched.ScheduleOnce(jobImmediate, 0, scheduler.Constraints{RequiresNetwork: true}, a.uploader.Run)

	a.logger.Info("device paired", "deviceId", deviceID)
	return nil
}

// Unpair discards all credentials and stops background work until the
// device is paired again.
func (a *App) Unpair() error {
	if err := a.creds.Clear(); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	a.sched.CancelAll()
	a.needsPairing.Store(true)
	a.logger.Info("device unpaired")
	return nil
}

func (a *App) registerJobs() {
	a.sched.RegisterPeriodic(jobSample, a.conf.Schedule.SampleInterval,
		scheduler.Constraints{}, a.collector.Run)

	a.sched.RegisterPeriodic(jobUpload, a.conf.Schedule.UploadInterval,
		scheduler.Constraints{RequiresNetwork: true, RequiresBatteryNotLow: true}, a.uploader.Run)

	a.sched.RegisterPeriodic(jobPoll, a.conf.Schedule.PollInterval,
		scheduler.Constraints{RequiresNetwork: true}, a.poller.Run)

	a.sched.RegisterPeriodic(jobRetention, retentionInterval,
		scheduler.Constraints{}, a.runRetention)
}

// runRetention purges records older than the configured retention window.
func (a *App) runRetention(ctx context.Context, attempt int) types.Outcome {
	cutoff := time.Now().AddDate(0, 0, -a.conf.Storage.RetentionDays)
	purged, err := a.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return types.Retry("retention sweep failed", err)
	}
	return types.Success("purged %d expired records", purged)
}

func (a *App) onPermanentFailure(name string, outcome types.Outcome) {
	a.logger.Error("background job failed permanently",
		"job", name, "outcome", outcome.String())

	// Upload and poll give up permanently only on auth failures, which
	// means the stored credentials are no longer usable.
	if (name == jobUpload || name == jobPoll || name == jobImmediate) && !a.creds.IsValid() {
		a.needsPairing.Store(true)
	}
}
