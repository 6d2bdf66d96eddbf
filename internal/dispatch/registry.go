// Package dispatch implements the two-level command dispatch (spec.md
// §4.4): top-level command number selects a handler; for the
// player-generated-event commands (0x60/0x62/0x6C/0x6D) a further
// sub-command dispatch on the first payload byte selects a finer-grained
// handler. A parallel table dispatches chat commands with a
// precondition-composition mechanism.
//
// Grounded on the L1J-Go reference's internal/net/packet/registry.go
// (opcode -> handler + allowed-states map, panic-recovering safeCall) —
// a closer shape than the teacher's own big-switch gameserver handler —
// adapted here to a per-Behavior allow-list and per spec.md's
// catch_handler_exceptions config gate rather than an always-on recover.
package dispatch

import (
	"fmt"
	"log/slog"

	"github.com/fuzzpoint/psoserver/internal/session"
)

// Context is passed to every top-level and sub-command handler: the
// originating client, the raw command (number, flag, payload), and the
// logger for this dispatch pass. It does not carry the client's lobby.
type Context struct {
	Client  *session.Client
	Command uint16
	Flag    uint32
	Payload []byte
	Logger  *slog.Logger
}

// HandlerFunc is a top-level command handler. Handlers mutate client/lobby
// state and reply/broadcast via ch.Client.Channel and whatever
// broadcast helper the caller wires in (kept out of this package to
// avoid an import cycle back into internal/lobby's broadcast helpers).
type HandlerFunc func(ctx *Context) error

// PreconditionError is returned by a handler (or a chat-command
// precondition) to signal that the request failed an access-control
// check and the sender should see a chat-style error rather than being
// disconnected (spec.md §7 "PreconditionFailed(msg)").
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

// ErrUnknownCommand is logged at warning level and otherwise dropped —
// never returned to the caller (spec.md §7).
var ErrUnknownCommand = fmt.Errorf("dispatch: unknown command")

type entry struct {
	fn             HandlerFunc
	allowedBehaviors map[session.Behavior]bool
}

// Registry maps top-level command numbers to handlers, gated by which
// session.Behavior states they're valid in.
type Registry struct {
	handlers map[uint16]*entry

	// CatchHandlerExceptions mirrors spec.md §7's config gate: if true, a
	// panicking handler is recovered, logged, and the Channel stays open;
	// if false, the panic propagates and the caller disconnects the
	// Channel.
	CatchHandlerExceptions bool

	logger *slog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{handlers: make(map[uint16]*entry), logger: logger}
}

// Register installs fn as the handler for cmd, valid only when the
// client's current Behavior is one of states.
func (r *Registry) Register(cmd uint16, states []session.Behavior, fn HandlerFunc) {
	allowed := make(map[session.Behavior]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	r.handlers[cmd] = &entry{fn: fn, allowedBehaviors: allowed}
}

// Dispatch looks up the handler for ctx.Command, checks it's allowed for
// client's current behavior, and invokes it. An unknown command is
// logged and dropped, never returned as an error, per spec.md §7.
func (r *Registry) Dispatch(ctx *Context) error {
	e, ok := r.handlers[ctx.Command]
	if !ok {
		r.logger.Warn("unknown command", "command", ctx.Command, "client", ctx.Client.GuildCardNumber())
		return nil
	}
	if !e.allowedBehaviors[ctx.Client.Behavior] {
		r.logger.Warn("command not allowed in current behavior",
			"command", ctx.Command, "behavior", ctx.Client.Behavior.String())
		return nil
	}
	return r.safeCall(e.fn, ctx)
}

// safeCall invokes fn, recovering a panic into an error when
// CatchHandlerExceptions is set (spec.md §7's
// "Generic RuntimeError from a handler" row).
func (r *Registry) safeCall(fn HandlerFunc, ctx *Context) (err error) {
	if r.CatchHandlerExceptions {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("handler panic recovered", "command", ctx.Command, "panic", rec)
				err = fmt.Errorf("dispatch: handler panic for command 0x%02X: %v", ctx.Command, rec)
			}
		}()
	}
	return fn(ctx)
}
