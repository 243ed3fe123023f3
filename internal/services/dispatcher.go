package services

import (
	"context"

	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/types"
)

// CommandHandler applies one control command.
type CommandHandler func(ctx context.Context, cmd types.ControlCommand) error

// Dispatcher routes control commands to registered handlers by type.
// Unknown types are ignored so older agents tolerate newer servers, and a
// failing handler never blocks the rest of a batch.
type Dispatcher struct {
	handlers map[string]CommandHandler
	logger   logging.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Dispatcher{
		handlers: make(map[string]CommandHandler),
		logger:   logger,
	}
}

// Register binds a handler to a command type, replacing any previous
// binding.
func (d *Dispatcher) Register(commandType string, handler CommandHandler) {
	d.handlers[commandType] = handler
}

// Dispatch applies one command. Returns whether a handler ran and its
// error if it failed.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd types.ControlCommand) (handled bool, err error) {
	handler, ok := d.handlers[cmd.Type]
	if !ok {
		d.logger.Debug("ignoring unknown command type", "type", cmd.Type, "id", cmd.ID)
		return false, nil
	}

	if err := handler(ctx, cmd); err != nil {
		d.logger.Error("command handler failed",
			"type", cmd.Type, "id", cmd.ID, "target", cmd.TargetPackage, "error", err)
		return true, err
	}
	return true, nil
}
