package dispatch

import "github.com/fuzzpoint/psoserver/internal/session"

// Broadcastable top-level commands that carry a nested sub-command
// dispatched on the first payload byte (spec.md §4.4).
const (
	CmdBroadcastAll    uint16 = 0x60 // broadcast to everyone in the lobby
	CmdPrivateClient   uint16 = 0x62 // client -> one other client (flag = target slot)
	CmdBroadcastLobby  uint16 = 0x6C // broadcast variant used by some versions
	CmdPrivateServer   uint16 = 0x6D // server -> one client (flag = target slot)
)

// SubCommandFunc handles one sub-command payload. validate, when non-nil,
// is run first and its error takes the place of invoking fn.
type SubCommandFunc func(ctx *Context, payload []byte) error

// ValidatorFunc checks a sub-command payload's size/shape before the
// handler runs (spec.md §9: "a central table maps (command, sub-command)
// to a validation function that rejects malformed payloads with
// MalformedFrame").
type ValidatorFunc func(payload []byte) error

type subEntry struct {
	fn       SubCommandFunc
	validate ValidatorFunc
}

// SubRegistry dispatches on the first byte of a 0x60/0x62/0x6C/0x6D
// payload.
type SubRegistry struct {
	handlers map[byte]*subEntry
}

// NewSubRegistry constructs an empty SubRegistry.
func NewSubRegistry() *SubRegistry {
	return &SubRegistry{handlers: make(map[byte]*subEntry)}
}

// Register installs fn (with optional validate) as the handler for
// sub-command subcmd.
func (r *SubRegistry) Register(subcmd byte, validate ValidatorFunc, fn SubCommandFunc) {
	r.handlers[subcmd] = &subEntry{fn: fn, validate: validate}
}

// ErrEmptySubcommand is returned when a 0x60/0x62/0x6C/0x6D command
// carries an empty payload (no sub-command byte to dispatch on).
var ErrEmptySubcommand = &PreconditionError{Message: "empty sub-command payload"}

// Dispatch dispatches payload's first byte to the matching handler.
// Unknown sub-commands are silently ignored like unknown top-level
// commands.
func (r *SubRegistry) Dispatch(ctx *Context, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptySubcommand
	}
	e, ok := r.handlers[payload[0]]
	if !ok {
		ctx.Logger.Warn("unknown sub-command", "subcommand", payload[0])
		return nil
	}
	if e.validate != nil {
		if err := e.validate(payload); err != nil {
			return err
		}
	}
	return e.fn(ctx, payload)
}

// IsPrivate reports whether cmd targets a single client (flag names the
// target slot) rather than broadcasting to the whole lobby (spec.md
// §4.4 glossary).
func IsPrivate(cmd uint16) bool {
	return cmd == CmdPrivateClient || cmd == CmdPrivateServer
}

// UpdatePosition applies a movement/chat sub-command's reported position
// to c, so the server always knows where each player is (spec.md §4.4:
// needed for $what and server-side drops).
func UpdatePosition(c *session.Client, floor uint32, x, z float32) {
	c.Floor = floor
	c.X = x
	c.Z = z
}
