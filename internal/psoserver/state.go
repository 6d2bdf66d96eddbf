// Package psoserver wires every other package into the process-wide
// ServerState and listener loop (spec.md §4.9). Grounded on the teacher's
// cmd/gameserver/main.go (config -> logger -> repos -> server wiring
// sequence, banner/section console output) and internal/login/server.go
// (NewServer, functional options, pre-generated crypto material at
// startup). The errgroup fan-out over PortConfiguration has no single
// teacher analog — the teacher hardcodes exactly two listeners (login and
// game) — so the multi-listener loop here is new composition over the
// teacher's already-imported golang.org/x/sync/errgroup.
package psoserver

import (
	"log/slog"
	"sync"

	"github.com/fuzzpoint/psoserver/internal/account"
	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/config"
	"github.com/fuzzpoint/psoserver/internal/dispatch"
	"github.com/fuzzpoint/psoserver/internal/ep3"
	"github.com/fuzzpoint/psoserver/internal/lobby"
	"github.com/fuzzpoint/psoserver/internal/proxy"
	"github.com/fuzzpoint/psoserver/internal/session"
	"github.com/fuzzpoint/psoserver/internal/version"
)

// ServerState is the process-wide singleton (spec.md §4.9): configuration,
// every index, the default lobbies, and the live channel/client
// bookkeeping. Every field a handler touches is either itself
// synchronized (Accounts, Lobbies) or only ever touched from the single
// dispatch goroutine (spec.md §5), except ChannelToClient which is
// mutated from each connection's own goroutine at accept/disconnect time
// and therefore carries its own mutex.
type ServerState struct {
	Config *config.Config
	Logger *slog.Logger

	Accounts    *account.Index
	Lobbies     *lobby.Registry
	Tournaments *ep3.TournamentIndex

	Dispatch     *dispatch.Registry
	SubCommands  *dispatch.SubRegistry
	ChatCommands *dispatch.ChatRegistry

	mu             sync.Mutex
	channelClients map[*channel.Channel]*session.Client
	proxySessions  map[*channel.Channel]*proxy.Session

	reload *StepGraph
}

// New constructs a ServerState from cfg: loads the account index from
// disk, builds the default lobby registry with every default lobby's
// allowed-versions bitmask populated (spec.md §3 "allowed-versions
// bitmask" — NewRegistry itself leaves this zero since it has no config
// to consult), and wires the command/chat dispatch tables.
func New(cfg *config.Config, logger *slog.Logger) (*ServerState, error) {
	if logger == nil {
		logger = slog.Default()
	}

	accounts := account.New(cfg.LicensesDir)
	if err := accounts.Load(); err != nil {
		return nil, err
	}

	tournaments := ep3.NewTournamentIndex(cfg.TournamentDir)
	if err := tournaments.Load(); err != nil {
		return nil, err
	}

	lobbies := lobby.NewRegistry()
	configureDefaultLobbyVersions(lobbies)

	s := &ServerState{
		Config:         cfg,
		Logger:         logger,
		Accounts:       accounts,
		Tournaments:    tournaments,
		Lobbies:        lobbies,
		Dispatch:       dispatch.NewRegistry(logger),
		SubCommands:    dispatch.NewSubRegistry(),
		ChatCommands:   dispatch.NewChatRegistry(),
		channelClients: make(map[*channel.Channel]*session.Client),
		proxySessions:  make(map[*channel.Channel]*proxy.Session),
	}
	s.Dispatch.CatchHandlerExceptions = cfg.CatchHandlerExceptions
	s.reload = s.newReloadGraph()

	dispatch.RegisterRepresentativeChatCommands(s.ChatCommands, s.chatServices())
	s.registerSwitchAssist()
	s.registerTopLevelHandlers()

	return s, nil
}

// configureDefaultLobbyVersions gives the general lobbies a mask covering
// every client family except the two Episode III sub-versions, and the
// Ep3-only lobbies the complement of that mask. A config that wants
// tighter cross-play rules than "everyone except Ep3 in general lobbies,
// Ep3 only in Ep3 lobbies" overrides Versions directly after New returns.
func configureDefaultLobbyVersions(reg *lobby.Registry) {
	var general, ep3 uint32
	for v := version.Version(0); v < version.NumVersions; v++ {
		if v.IsEp3() {
			ep3 |= 1 << uint(v)
		} else {
			general |= 1 << uint(v)
		}
	}
	for _, l := range reg.DefaultLobbies() {
		l.Versions = general
	}
	for _, l := range reg.Ep3SearchOrder() {
		if l.HasFlag(lobby.FlagPublic) && !containsGeneral(reg, l) {
			l.Versions = ep3
		}
	}
}

// containsGeneral reports whether l is one of the NumGeneralLobbies
// general-purpose lobbies (already configured above) rather than one of
// the Ep3-only ones, so configureDefaultLobbyVersions doesn't overwrite
// the general lobbies' mask a second time while walking Ep3SearchOrder.
func containsGeneral(reg *lobby.Registry, l *lobby.Lobby) bool {
	for i, g := range reg.DefaultLobbies() {
		if g == l {
			return i < lobby.NumGeneralLobbies
		}
	}
	return false
}

// AddClient registers ch/c in the channel->client map so disconnect
// cleanup and snapshotting can find it.
func (s *ServerState) AddClient(ch *channel.Channel, c *session.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelClients[ch] = c
}

// RemoveClient deregisters ch, e.g. after Client.Disconnect fires.
func (s *ServerState) RemoveClient(ch *channel.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channelClients, ch)
}

// Clients returns a snapshot of every currently-registered client.
func (s *ServerState) Clients() []*session.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*session.Client, 0, len(s.channelClients))
	for _, c := range s.channelClients {
		out = append(out, c)
	}
	return out
}

// FindClientBySlot resolves a lobby slot to its Client — the collaborator
// dispatch.ChatServices needs for $kick/$ban/$silence/$arrow.
func (s *ServerState) FindClientBySlot(l *lobby.Lobby, slot int) *session.Client {
	if l == nil {
		return nil
	}
	return l.ClientAt(slot)
}

// LobbyOf returns the Lobby a client currently occupies, or nil.
func (s *ServerState) LobbyOf(c *session.Client) *lobby.Lobby {
	if c.LobbyID == 0 {
		return nil
	}
	return s.Lobbies.Get(c.LobbyID)
}

func (s *ServerState) chatServices() *dispatch.ChatServices {
	return &dispatch.ChatServices{
		Accounts:         s.Accounts,
		FindClientBySlot: s.FindClientBySlot,
		SendMessageBox:   s.SendMessageBox,
		SendChatError:    s.SendChatError,
	}
}
