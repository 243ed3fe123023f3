package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	storeerrors "tvagent/internal/infrastructure/errors"
	"tvagent/internal/types"
)

const blockedKeyPrefix = "blocked."

// registerCommandHandlers binds the remote control commands this build
// understands. The dispatcher ignores anything else.
func (a *App) registerCommandHandlers() {
	a.dispatcher.Register(types.CommandBlockApp, a.handleBlockApp(true))
	a.dispatcher.Register(types.CommandUnblockApp, a.handleBlockApp(false))
	a.dispatcher.Register(types.CommandSetTimeLimit, a.handleSetTimeLimit)
}

// handleBlockApp records block state in the secure store. Enforcement is up
// to the host integration; the agent only tracks what the server asked for.
func (a *App) handleBlockApp(blocked bool) func(context.Context, types.ControlCommand) error {
	return func(ctx context.Context, cmd types.ControlCommand) error {
		if cmd.TargetPackage == "" {
			return fmt.Errorf("command %s has no target package", cmd.ID)
		}

		key := blockedKeyPrefix + cmd.TargetPackage
		if blocked {
			if err := a.kv.Set(key, "1"); err != nil {
				return fmt.Errorf("recording block for %s: %w", cmd.TargetPackage, err)
			}
		} else {
			if err := a.kv.Delete(key); err != nil {
				return fmt.Errorf("clearing block for %s: %w", cmd.TargetPackage, err)
			}
		}

		a.logger.Info("app block state changed", "package", cmd.TargetPackage, "blocked", blocked)
		return nil
	}
}

// IsBlocked reports whether the server has blocked the given package.
func (a *App) IsBlocked(packageName string) bool {
	_, err := a.kv.Get(blockedKeyPrefix + packageName)
	return err == nil
}

// handleSetTimeLimit updates the daily limit on today's record for the
// target package, creating a zero-usage record when none exists yet.
func (a *App) handleSetTimeLimit(ctx context.Context, cmd types.ControlCommand) error {
	if cmd.TargetPackage == "" {
		return fmt.Errorf("command %s has no target package", cmd.ID)
	}

	raw, ok := cmd.Parameters["limit"]
	if !ok {
		return fmt.Errorf("command %s has no limit parameter", cmd.ID)
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit < 0 {
		return fmt.Errorf("command %s has invalid limit %q", cmd.ID, raw)
	}

	now := time.Now()
	record, err := a.repo.GetForDate(ctx, cmd.TargetPackage, now)
	switch {
	case err == nil:
	case storeerrors.IsNotFound(err):
		record = types.UsageRecord{
			PackageName: cmd.TargetPackage,
			AppName:     cmd.TargetPackage,
			Date:        types.DateKey(now),
		}
	default:
		return fmt.Errorf("loading record for %s: %w", cmd.TargetPackage, err)
	}

	record.DailyLimit = limit
	if err := a.repo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("storing limit for %s: %w", cmd.TargetPackage, err)
	}

	a.logger.Info("daily limit updated", "package", cmd.TargetPackage, "limit", limit)
	return nil
}
