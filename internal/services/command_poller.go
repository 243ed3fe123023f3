package services

import (
	"context"
	"sync"
	"time"

	"tvagent/internal/credentials"
	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/platform"
	"tvagent/internal/syncclient"
	"tvagent/internal/types"
)

// appliedHistorySize bounds the remembered command IDs. The server's
// pending list is short, so a few hundred IDs cover many poll cycles.
const appliedHistorySize = 256

// CommandAPI is the slice of the sync client the poller needs.
type CommandAPI interface {
	ControlCommands(ctx context.Context, token, deviceID string) (syncclient.ControlCommandResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (syncclient.TokenResponse, error)
}

// Poller fetches pending control commands and dispatches them. Command
// application is idempotent: IDs already applied in recent polls are
// skipped, so a server that re-serves a command until acknowledged does
// not double-apply it.
type Poller struct {
	api          CommandAPI
	creds        *credentials.Store
	dispatcher   *Dispatcher
	connectivity platform.ConnectivityChecker
	logger       logging.Logger

	mu           sync.Mutex
	applied      map[string]struct{}
	appliedOrder []string
}

// NewPoller creates a command poller.
func NewPoller(api CommandAPI, creds *credentials.Store, dispatcher *Dispatcher, connectivity platform.ConnectivityChecker, logger logging.Logger) *Poller {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Poller{
		api:          api,
		creds:        creds,
		dispatcher:   dispatcher,
		connectivity: connectivity,
		logger:       logger,
		applied:      make(map[string]struct{}),
	}
}

// Run performs one poll cycle.
func (p *Poller) Run(ctx context.Context, attempt int) types.Outcome {
	if !p.connectivity.Online(ctx) {
		return types.Retry("device is offline", nil)
	}

	token, err := p.creds.EnsureValid(ctx, p.refreshFunc())
	if err != nil {
		return types.PermanentFailure("authentication failed", err)
	}

	deviceID, err := p.creds.DeviceID()
	if err != nil {
		return types.PermanentFailure("device is not registered", err)
	}

	resp, err := p.api.ControlCommands(ctx, token, deviceID)
	if err != nil {
		if isAuthFailure(err) {
			return types.PermanentFailure("server rejected credentials", err)
		}
		return types.Retry("fetching commands failed", err)
	}

	applied := 0
	for _, cmd := range resp.Commands {
		if p.alreadyApplied(cmd.ID) {
			p.logger.Debug("skipping already-applied command", "id", cmd.ID)
			continue
		}

		handled, err := p.dispatcher.Dispatch(ctx, cmd)
		if err != nil {
			// Leave the ID unrecorded so the next poll retries it.
			continue
		}
		if handled {
			applied++
		}
		p.recordApplied(cmd.ID)
	}

	if applied > 0 {
		p.logger.Info("processed control commands", "applied", applied, "fetched", len(resp.Commands))
	}
	return types.Success("processed %d commands", applied)
}

func (p *Poller) refreshFunc() credentials.RefreshFunc {
	return func(ctx context.Context, refreshToken string) (credentials.Tokens, error) {
		resp, err := p.api.RefreshToken(ctx, refreshToken)
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

func (p *Poller) alreadyApplied(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.applied[id]
	return ok
}

func (p *Poller) recordApplied(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.applied[id]; ok {
		return
	}
	p.applied[id] = struct{}{}
	p.appliedOrder = append(p.appliedOrder, id)

	if len(p.appliedOrder) > appliedHistorySize {
		oldest := p.appliedOrder[0]
		p.appliedOrder = p.appliedOrder[1:]
		delete(p.applied, oldest)
	}
}
