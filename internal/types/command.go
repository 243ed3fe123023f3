package types

// Well-known control command types. The set is open-ended: servers may send
// types this build does not know about, and those are ignored.
const (
	CommandBlockApp     = "BLOCK_APP"
	CommandUnblockApp   = "UNBLOCK_APP"
	CommandSetTimeLimit = "SET_TIME_LIMIT"
)

// ControlCommand is a remote instruction fetched from the control server.
// Commands are transient: they are dispatched to a handler and never
// persisted locally.
type ControlCommand struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	TargetPackage string            `json:"targetPackage,omitempty"`
	Parameters    map[string]string `json:"parameters,omitempty"`
}
