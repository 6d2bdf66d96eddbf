// Package proxy implements ProxySession (spec.md §4.7): an intercepting
// relay between a local client and a foreign PSO server, installed in
// place of LOBBY_SERVER when a player selects a proxy destination.
//
// No direct teacher analog exists for PSO's proxy concept; this is built
// on internal/channel (a second Channel dialed outbound) with an
// interception hook table modeled after internal/dispatch's
// handler-table shape, applied to both directions.
package proxy

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/framing"
)

// Direction identifies which leg of the proxy a hook is intercepting.
type Direction int

const (
	ClientToServer Direction = iota
	ServerToClient
)

// Hook inspects (and may rewrite) one command as it passes through the
// proxy. Returning forward=false drops the command instead of relaying
// it, and the remaining hooks are not run for it.
type Hook func(sess *Session, dir Direction, msg *framing.Message) (forward bool, err error)

// DropMode selects how the proxy handles item drops it can see (spec.md
// §4.7).
type DropMode int

const (
	DropPassthrough DropMode = iota // relay whatever the remote server decided
	DropIntercept                    // generate locally with a shared seed
)

// RosterEntry records one lobby member's public info as shadowed from
// the remote server's broadcasts (spec.md §4.7 "Recording lobby-player
// rosters").
type RosterEntry struct {
	GuildCardNumber uint32
	Name            string
	Language        uint8
	SectionID       uint8
	CharClass       uint8
}

// Session is one client's proxied connection: the local Channel to the
// real client and the second Channel dialed to the foreign server.
type Session struct {
	ClientChannel *channel.Channel
	ServerChannel *channel.Channel

	// GuildCardRewrite maps the local account's real Guild Card number to
	// the number the remote server should see, keeping identity
	// consistent across reconnects to possibly-different remote servers
	// (spec.md §4.7 "Rewriting Guild Card numbers").
	GuildCardRewrite func(real uint32) uint32

	ClientHooks []Hook // applied to ClientToServer messages
	ServerHooks []Hook // applied to ServerToClient messages

	DropMode   DropMode
	DropSeed   uint32 // shared seed for DropIntercept (spec.md §9 open question)

	Roster map[uint32]RosterEntry

	// SaveDir, if non-empty, is where any file the remote server
	// transmits (quests, Ep3 card definitions, GBA game data) is saved
	// (spec.md §4.7 "Optionally saving any file").
	SaveDir string

	logger *slog.Logger
}

// NewSession constructs a Session relaying between client and server.
func NewSession(client, server *channel.Channel, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ClientChannel: client,
		ServerChannel: server,
		Roster:        make(map[uint32]RosterEntry),
		logger:        logger,
	}
}

// RunClientToServer relays every Channel.Recv from the client to the
// server, applying ClientHooks in order. Returns when the client
// disconnects or a hook errors. On any error, both Channels are torn
// down (spec.md §4.7 failure semantics).
func (s *Session) RunClientToServer() error {
	defer s.teardown()
	for {
		msgs, err := s.ClientChannel.Recv()
		if err != nil {
			return err
		}
		for i := range msgs {
			if err := s.relay(ClientToServer, &msgs[i]); err != nil {
				return err
			}
		}
	}
}

// RunServerToClient is RunClientToServer's mirror for the upstream leg.
func (s *Session) RunServerToClient() error {
	defer s.teardown()
	for {
		msgs, err := s.ServerChannel.Recv()
		if err != nil {
			return err
		}
		for i := range msgs {
			if err := s.relay(ServerToClient, &msgs[i]); err != nil {
				return err
			}
		}
	}
}

func (s *Session) relay(dir Direction, msg *framing.Message) error {
	hooks := s.ClientHooks
	dest := s.ServerChannel
	if dir == ServerToClient {
		hooks = s.ServerHooks
		dest = s.ClientChannel
	}
	for _, h := range hooks {
		forward, err := h(s, dir, msg)
		if err != nil {
			return err
		}
		if !forward {
			return nil
		}
	}
	return dest.Send(msg.Command, msg.Flag, msg.Payload)
}

func (s *Session) teardown() {
	_ = s.ClientChannel.Close()
	_ = s.ServerChannel.Close()
}

// SaveFile persists data under SaveDir/relPath, when SaveDir is set
// (spec.md §4.7).
func (s *Session) SaveFile(relPath string, data []byte) error {
	if s.SaveDir == "" {
		return nil
	}
	full := filepath.Join(s.SaveDir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("proxy: creating save dir: %w", err)
	}
	return os.WriteFile(full, data, 0o644)
}

// UpdateRoster records or updates one player's shadowed roster entry.
func (s *Session) UpdateRoster(e RosterEntry) {
	s.Roster[e.GuildCardNumber] = e
}
