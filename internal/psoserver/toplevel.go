package psoserver

import (
	"github.com/fuzzpoint/psoserver/internal/dispatch"
	"github.com/fuzzpoint/psoserver/internal/lobby"
	"github.com/fuzzpoint/psoserver/internal/session"
	"github.com/fuzzpoint/psoserver/internal/textdecode"
)

// registerTopLevelHandlers wires the four player-generated-event command
// numbers into s.Dispatch (spec.md §4.4's two-level dispatch): each one
// hands its payload to s.SubCommands and then relays the raw command
// either to the whole lobby or to one targeted slot.
func (s *ServerState) registerTopLevelHandlers() {
	broadcastCmds := []uint16{dispatch.CmdBroadcastAll, dispatch.CmdBroadcastLobby}
	privateCmds := []uint16{dispatch.CmdPrivateClient, dispatch.CmdPrivateServer}
	lobbyStates := []session.Behavior{session.LobbyServer}

	for _, cmd := range broadcastCmds {
		cmd := cmd
		s.Dispatch.Register(cmd, lobbyStates, func(ctx *dispatch.Context) error {
			l := s.LobbyOf(ctx.Client)
			if l == nil {
				return nil
			}
			if err := s.dispatchSubCommand(ctx, l); err != nil {
				return err
			}
			for _, other := range l.Clients() {
				if other == ctx.Client {
					continue
				}
				_ = other.Channel.Send(cmd, ctx.Flag, ctx.Payload)
			}
			return nil
		})
	}

	for _, cmd := range privateCmds {
		cmd := cmd
		s.Dispatch.Register(cmd, lobbyStates, func(ctx *dispatch.Context) error {
			l := s.LobbyOf(ctx.Client)
			if l == nil {
				return nil
			}
			if err := s.dispatchSubCommand(ctx, l); err != nil {
				return err
			}
			target := l.ClientAt(int(ctx.Flag))
			if target == nil || target == ctx.Client {
				return nil
			}
			return target.Channel.Send(cmd, ctx.Flag, ctx.Payload)
		})
	}

	s.Dispatch.Register(CmdChat, lobbyStates, s.handleChat)
}

// dispatchSubCommand runs ctx.Payload through s.SubCommands, surfacing a
// PreconditionError as a chat-style error to the sender instead of letting
// it propagate and disconnect the channel (spec.md §7).
func (s *ServerState) dispatchSubCommand(ctx *dispatch.Context, l *lobby.Lobby) error {
	err := s.SubCommands.Dispatch(ctx, ctx.Payload)
	if pe, ok := err.(*dispatch.PreconditionError); ok {
		s.SendChatError(ctx.Client, pe.Message)
		return nil
	}
	return err
}

// handleChat implements spec.md §4.4's chat path: a '$'-prefixed line goes
// to the chat-command table, everything else is a plain broadcast (unless
// the sender is silenced).
func (s *ServerState) handleChat(ctx *dispatch.Context) error {
	if ctx.Client.Silenced {
		return nil
	}
	l := s.LobbyOf(ctx.Client)
	text := decodeChatText(ctx.Client.Language, ctx.Payload)

	if len(text) > 0 && text[0] == '$' {
		chatCtx := &dispatch.ChatContext{Context: ctx, Lobby: l}
		if err := s.ChatCommands.Dispatch(chatCtx, text); err != nil {
			if pe, ok := err.(*dispatch.PreconditionError); ok {
				s.SendChatError(ctx.Client, pe.Message)
				return nil
			}
			return err
		}
		return nil
	}

	if l == nil {
		return nil
	}
	for _, other := range l.Clients() {
		if other == ctx.Client {
			continue
		}
		_ = other.Channel.Send(CmdChat, uint32(ctx.Client.SlotID), ctx.Payload)
	}
	return nil
}

// decodeChatText extracts the chat line from a 0x06 payload and decodes
// it from lang's wire charset. Real clients prefix the text with a
// 4-byte segment marker the chat-command parser doesn't need to
// interpret.
func decodeChatText(lang uint8, payload []byte) string {
	if len(payload) <= 4 {
		return ""
	}
	return textdecode.Decode(textdecode.Language(lang), payload[4:])
}

// registerSwitchAssist wires the switch-enable/switch-step sub-commands
// into s.SubCommands (spec.md §4.4 "Switch assist cheat"). Both are
// carried inside the 0x60 broadcast family, so the raw command is still
// relayed by registerTopLevelHandlers' wrapper after this runs; this only
// updates switch-assist bookkeeping and, when assist triggers, replays the
// player's own previously-enabled switch to the rest of the lobby.
func (s *ServerState) registerSwitchAssist() {
	s.SubCommands.Register(dispatch.SwitchEnableSubcommand, nil, func(ctx *dispatch.Context, payload []byte) error {
		l := s.LobbyOf(ctx.Client)
		if l == nil || l.Game == nil || len(payload) < 9 {
			return nil
		}
		key := decodeSwitchKey(payload)
		dispatch.HandleSwitchEnable(l.Game.Switches, ctx.Client.SlotID, key)
		return nil
	})

	s.SubCommands.Register(dispatch.SwitchStepSubcommand, nil, func(ctx *dispatch.Context, payload []byte) error {
		l := s.LobbyOf(ctx.Client)
		if l == nil || l.Game == nil || !l.Game.CheatsEnabled || len(payload) < 9 {
			return nil
		}
		key := decodeSwitchKey(payload)
		replay, ok := dispatch.HandleSwitchStep(l.Game.Switches, l.Game.CheatsEnabled, ctx.Client.SlotID, key)
		if !ok {
			return nil
		}
		replayPayload := encodeSwitchKey(dispatch.SwitchEnableSubcommand, replay)
		for _, other := range l.Clients() {
			_ = other.Channel.Send(dispatch.CmdBroadcastAll, uint32(ctx.Client.SlotID), replayPayload)
		}
		return nil
	})
}

func decodeSwitchKey(payload []byte) lobby.SwitchKey {
	floor := uint32(payload[1])
	number := uint32(payload[5])<<24 | uint32(payload[4])<<16 | uint32(payload[3])<<8 | uint32(payload[2])
	return lobby.SwitchKey{Floor: floor, Number: number}
}

func encodeSwitchKey(subcmd byte, key lobby.SwitchKey) []byte {
	buf := make([]byte, 9)
	buf[0] = subcmd
	buf[1] = byte(key.Floor)
	buf[2] = byte(key.Number)
	buf[3] = byte(key.Number >> 8)
	buf[4] = byte(key.Number >> 16)
	buf[5] = byte(key.Number >> 24)
	return buf
}
