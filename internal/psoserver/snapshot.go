package psoserver

import (
	"github.com/fuzzpoint/psoserver/internal/lobby"
	"github.com/fuzzpoint/psoserver/internal/session"
)

// Package-level snapshot types for the read-only server-state view spec.md
// §6 describes as an HTTP admin endpoint's payload shape ("a read-only
// JSON endpoint returning server snapshot data (clients, proxy sessions,
// lobbies, tournament state)"), without the HTTP server itself — out of
// scope per spec.md §6's own "Out of scope" note. An external collaborator
// (an admin HTTP handler, a metrics exporter) can call Snapshot and
// marshal the result however it likes.

// ClientSnapshot is one connected client's externally-visible state.
type ClientSnapshot struct {
	GuildCardNumber uint32 `json:"guild_card_number"`
	Version         string `json:"version"`
	Behavior        string `json:"behavior"`
	LobbyID         int    `json:"lobby_id"`
	SlotID          int    `json:"slot_id"`
}

// LobbySnapshot is one lobby or game's externally-visible state.
type LobbySnapshot struct {
	ID       int      `json:"id"`
	IsGame   bool     `json:"is_game"`
	Members  []uint32 `json:"members"`
	Leader   uint32   `json:"leader,omitempty"`
	Capacity int      `json:"capacity"`
}

// Snapshot is the top-level read-only view of the running server.
type Snapshot struct {
	Clients []ClientSnapshot `json:"clients"`
	Lobbies []LobbySnapshot  `json:"lobbies"`

	// ProxySessionCount is reported as a count rather than per-session
	// detail: a proxy session's interesting state (hook tables, roster
	// shadow) isn't itself meant for external consumption, only its
	// existence.
	ProxySessionCount int `json:"proxy_session_count"`
}

// Snapshot captures a point-in-time, read-only view of every client and
// lobby currently tracked by s. Episode III tournament state
// (s.Tournaments) is not included.
func (s *ServerState) Snapshot() Snapshot {
	clients := s.Clients()
	out := Snapshot{Clients: make([]ClientSnapshot, 0, len(clients))}
	for _, c := range clients {
		out.Clients = append(out.Clients, ClientSnapshot{
			GuildCardNumber: c.GuildCardNumber(),
			Version:         c.Version.String(),
			Behavior:        c.Behavior.String(),
			LobbyID:         c.LobbyID,
			SlotID:          c.SlotID,
		})
	}
	out.Lobbies = s.lobbiesSnapshot(clients)

	s.mu.Lock()
	out.ProxySessionCount = len(s.proxySessions)
	s.mu.Unlock()

	return out
}

// lobbiesSnapshot walks the default lobby ids plus every lobby currently
// referenced by a connected client, since Registry doesn't expose a full
// id enumeration beyond its fixed default range.
func (s *ServerState) lobbiesSnapshot(clients []*session.Client) []LobbySnapshot {
	seen := make(map[int]bool)
	var out []LobbySnapshot

	for _, l := range s.Lobbies.DefaultLobbies() {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, snapshotOneLobby(l))
	}
	for _, c := range clients {
		l := s.LobbyOf(c)
		if l == nil || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, snapshotOneLobby(l))
	}
	return out
}

func snapshotOneLobby(l *lobby.Lobby) LobbySnapshot {
	clients := l.Clients()
	members := make([]uint32, 0, len(clients))
	for _, c := range clients {
		members = append(members, c.GuildCardNumber())
	}
	var leader uint32
	if lc := l.Leader(); lc != nil {
		leader = lc.GuildCardNumber()
	}
	return LobbySnapshot{
		ID:       l.ID,
		IsGame:   l.IsGame(),
		Members:  members,
		Leader:   leader,
		Capacity: l.Capacity(),
	}
}
