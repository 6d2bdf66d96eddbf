package dispatch

import (
	"strings"

	"github.com/fuzzpoint/psoserver/internal/account"
	"github.com/fuzzpoint/psoserver/internal/lobby"
)

// ChatContext extends Context with the lobby the chat command was issued
// in — chat commands, unlike most top-level handlers, almost always need
// to know their Lobby (spec.md §4.4).
type ChatContext struct {
	*Context
	Lobby *lobby.Lobby
}

// Precondition is one composable guard a chat command can require
// (spec.md §4.4: "check_privileges, check_is_game, check_is_leader,
// check_cheats_enabled, check_version, etc."). It returns a
// PreconditionError describing the failure, or nil if satisfied.
type Precondition func(ctx *ChatContext) error

// CheckPrivileges requires the sender's account to carry every bit in
// want.
func CheckPrivileges(want account.Flag) Precondition {
	return func(ctx *ChatContext) error {
		login := ctx.Client.Login()
		if login == nil || login.Account == nil || !login.Account.HasFlag(want) {
			return &PreconditionError{Message: "you do not have permission to use this command"}
		}
		return nil
	}
}

// CheckIsGame requires the sender to currently be in a game lobby.
func CheckIsGame(ctx *ChatContext) error {
	if ctx.Lobby == nil || !ctx.Lobby.IsGame() {
		return &PreconditionError{Message: "this command can only be used in a game"}
	}
	return nil
}

// CheckIsLeader requires the sender to be the current lobby's leader.
func CheckIsLeader(ctx *ChatContext) error {
	if ctx.Lobby == nil || !ctx.Lobby.IsLeader(ctx.Client) {
		return &PreconditionError{Message: "only the game leader can use this command"}
	}
	return nil
}

// CheckCheatsEnabled requires the current game to have cheats enabled.
func CheckCheatsEnabled(ctx *ChatContext) error {
	if ctx.Lobby == nil || ctx.Lobby.Game == nil || !ctx.Lobby.Game.CheatsEnabled {
		return &PreconditionError{Message: "cheats are not enabled in this game"}
	}
	return nil
}

// ChatCommandFunc is the handler body for a chat command, given the
// already-split argument string (everything after the command word).
type ChatCommandFunc func(ctx *ChatContext, args string) error

// ChatCommand is one entry in the chat-command table.
type ChatCommand struct {
	Name          string
	Preconditions []Precondition
	Handler       ChatCommandFunc
}

// ChatRegistry is the parallel dispatch table for user-typed `$`-prefixed
// chat commands (spec.md §4.4).
type ChatRegistry struct {
	commands map[string]*ChatCommand
}

// NewChatRegistry constructs an empty ChatRegistry.
func NewChatRegistry() *ChatRegistry {
	return &ChatRegistry{commands: make(map[string]*ChatCommand)}
}

// Register installs cmd under its own Name (case-insensitive).
func (r *ChatRegistry) Register(cmd *ChatCommand) {
	r.commands[strings.ToLower(cmd.Name)] = cmd
}

// Dispatch parses a raw chat line beginning with '$', finds the matching
// command, runs its preconditions in order, and invokes its handler. A
// failing precondition or an unknown command both surface as a
// PreconditionError the caller chat-messages back to the sender (spec.md
// §7).
func (r *ChatRegistry) Dispatch(ctx *ChatContext, line string) error {
	line = strings.TrimPrefix(line, "$")
	name, args, _ := strings.Cut(line, " ")
	cmd, ok := r.commands[strings.ToLower(name)]
	if !ok {
		return &PreconditionError{Message: "unknown command: $" + name}
	}
	for _, pre := range cmd.Preconditions {
		if err := pre(ctx); err != nil {
			return err
		}
	}
	return cmd.Handler(ctx, args)
}
