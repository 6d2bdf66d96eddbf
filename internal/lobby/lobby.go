// Package lobby implements the shared lobby/game runtime (spec.md §4.5):
// non-game lobbies, game lobbies, floor items, enemies, quest/battle
// overlays, and the lobby registry that owns them all.
//
// Grounded on the teacher's internal/world (spatial/zone state),
// internal/spawn (NPC/enemy population), and internal/game/instance
// (instanced dungeons ~= private games); the floor item manager is
// grounded on the teacher's internal/model/dropped_item.go and
// internal/game/itemhandler.
package lobby

import (
	"sync"

	"github.com/fuzzpoint/psoserver/internal/session"
	"github.com/fuzzpoint/psoserver/internal/version"
)

// Flag is the base-Lobby flag word (spec.md §3 "Lobby (non-game)").
type Flag uint32

const (
	FlagPublic Flag = 1 << iota
	FlagDefault
	FlagIsOverflow
	FlagPersistent
)

// MaxLobbyClients is the fixed slot count for non-game lobbies.
const MaxLobbyClients = 12

// ErrLobbyFull is returned by Add when every slot is occupied.
var ErrLobbyFull = errorString("lobby: full")

type errorString string

func (e errorString) Error() string { return string(e) }

// Lobby is a persistent or transient room holding up to MaxLobbyClients
// client slots (spec.md §3). Game is a Lobby plus the extra game-only
// state described in game.go.
type Lobby struct {
	mu sync.Mutex

	ID       int
	Block    int
	Type     int // visual/skin
	Event    int // festival decoration
	Versions uint32 // allowed-versions bitmask
	Flags    Flag

	clients   [MaxLobbyClients]*session.Client
	leaderIdx int

	// Game is non-nil when this Lobby is a game instance; see game.go.
	Game *GameState
}

// New constructs an empty Lobby with the given id.
func New(id int) *Lobby {
	return &Lobby{ID: id, leaderIdx: -1}
}

// Capacity returns the number of usable slots: MaxLobbyClients for a
// plain lobby, or the (possibly smaller) game-specific cap when Game is
// set.
func (l *Lobby) Capacity() int {
	if l.Game != nil && l.Game.MaxClients > 0 && l.Game.MaxClients < MaxLobbyClients {
		return l.Game.MaxClients
	}
	return MaxLobbyClients
}

// HasFlag reports whether every bit in f is set.
func (l *Lobby) HasFlag(f Flag) bool { return l.Flags&f == f }

// Count returns the number of occupied slots.
func (l *Lobby) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countLocked()
}

func (l *Lobby) countLocked() int {
	n := 0
	for i := 0; i < l.Capacity(); i++ {
		if l.clients[i] != nil {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no slot is occupied.
func (l *Lobby) IsEmpty() bool { return l.Count() == 0 }

// IsFull reports whether every usable slot is occupied.
func (l *Lobby) IsFull() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countLocked() >= l.Capacity()
}

// ClientAt returns the client in slot i, or nil.
func (l *Lobby) ClientAt(i int) *session.Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= MaxLobbyClients {
		return nil
	}
	return l.clients[i]
}

// Clients returns a snapshot slice of every occupied slot, in slot order.
func (l *Lobby) Clients() []*session.Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*session.Client, 0, l.Capacity())
	for i := 0; i < l.Capacity(); i++ {
		if l.clients[i] != nil {
			out = append(out, l.clients[i])
		}
	}
	return out
}

// AcceptsVersion reports whether v is permitted to join per the
// allowed-versions bitmask.
func (l *Lobby) AcceptsVersion(v version.Version) bool {
	return l.Versions&(1<<uint(v)) != 0
}

// Add places c in the first free slot, sets c's LobbyID/SlotID, and
// returns the assigned slot. Fails with ErrLobbyFull if every slot is
// occupied. If this is the first client added, it becomes the leader.
func (l *Lobby) Add(c *session.Client) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cap := l.Capacity()
	for i := 0; i < cap; i++ {
		if l.clients[i] == nil {
			l.clients[i] = c
			c.LobbyID = l.ID
			c.SlotID = i
			if l.leaderIdx == -1 {
				l.leaderIdx = i
			}
			return i, nil
		}
	}
	return -1, ErrLobbyFull
}

// Remove clears c's slot, if it holds one in this Lobby, and reassigns
// the leader if c was it. Returns the freed slot index, or -1 if c was
// not found.
func (l *Lobby) Remove(c *session.Client) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < MaxLobbyClients; i++ {
		if l.clients[i] == c {
			l.clients[i] = nil
			c.LobbyID = 0
			c.SlotID = 0
			if l.leaderIdx == i {
				l.leaderIdx = l.firstOccupiedLocked()
			}
			return i
		}
	}
	return -1
}

func (l *Lobby) firstOccupiedLocked() int {
	for i := 0; i < l.Capacity(); i++ {
		if l.clients[i] != nil {
			return i
		}
	}
	return -1
}

// LeaderSlot returns the current leader's slot index, or -1 if the lobby
// is empty.
func (l *Lobby) LeaderSlot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.leaderIdx
}

// Leader returns the current leader client, or nil if the lobby is empty.
func (l *Lobby) Leader() *session.Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.leaderIdx < 0 {
		return nil
	}
	return l.clients[l.leaderIdx]
}

// IsLeader reports whether c is the lobby's current leader.
func (l *Lobby) IsLeader(c *session.Client) bool {
	return l.Leader() == c
}
