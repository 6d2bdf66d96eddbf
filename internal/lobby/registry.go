package lobby

import (
	"sync"
)

// NumDefaultLobbies is the count of public lobbies created up front and
// never destroyed (spec.md §4.5): 15 general + 5 Episode III only.
const (
	NumGeneralLobbies = 15
	NumEp3Lobbies     = 5
	NumDefaultLobbies = NumGeneralLobbies + NumEp3Lobbies
)

// Registry is the ServerState's lobby_id -> Lobby map (spec.md §4.5).
// New ids are monotonically allocated; default public lobbies reserve
// ids 1..NumDefaultLobbies and are PERSISTENT. Game lobbies are created
// on demand and queued for removal once both non-persistent and empty.
type Registry struct {
	mu sync.Mutex

	byID   map[int]*Lobby
	nextID int

	pendingDestroy map[int]bool
}

// NewRegistry constructs a Registry with the default public lobbies
// already populated (general lobbies first, then Ep3-only lobbies), all
// PERSISTENT and PUBLIC.
func NewRegistry() *Registry {
	r := &Registry{
		byID:           make(map[int]*Lobby),
		nextID:         NumDefaultLobbies + 1,
		pendingDestroy: make(map[int]bool),
	}
	for i := 1; i <= NumGeneralLobbies; i++ {
		l := New(i)
		l.Flags = FlagPublic | FlagDefault | FlagPersistent
		r.byID[i] = l
	}
	for i := NumGeneralLobbies + 1; i <= NumDefaultLobbies; i++ {
		l := New(i)
		l.Flags = FlagPublic | FlagPersistent
		r.byID[i] = l
	}
	return r
}

// Get returns the lobby with the given id, or nil.
func (r *Registry) Get(id int) *Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

// Contains reports whether id names a live lobby.
func (r *Registry) Contains(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok
}

// CreateGame allocates a new monotonic id, registers l under it, and
// returns the assigned id. l.ID is overwritten to match.
func (r *Registry) CreateGame(l *Lobby) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	l.ID = id
	r.byID[id] = l
	return id
}

// DefaultLobbies returns every built-in lobby, ids 1 through
// NumDefaultLobbies in id order (the general lobbies, then the Ep3-only
// ones) — the search order join() scans for non-Ep3 clients (spec.md
// §4.5). FlagDefault is not consulted.
func (r *Registry) DefaultLobbies() []*Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Lobby, 0, NumDefaultLobbies)
	for i := 1; i <= NumDefaultLobbies; i++ {
		if l, ok := r.byID[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Ep3SearchOrder returns the Ep3-only lobbies first, then the general
// lobbies — the distinct search order spec.md §4.5 calls out for
// Episode III clients.
func (r *Registry) Ep3SearchOrder() []*Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Lobby, 0, NumDefaultLobbies)
	for i := NumGeneralLobbies + 1; i <= NumDefaultLobbies; i++ {
		if l, ok := r.byID[i]; ok {
			out = append(out, l)
		}
	}
	for i := 1; i <= NumGeneralLobbies; i++ {
		if l, ok := r.byID[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

// QueueDestroy marks a non-persistent, empty lobby for removal on the
// next Tick (spec.md §4.5: "Removal is deferred to a post-tick callback
// so that iteration during removal is safe").
func (r *Registry) QueueDestroy(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok || l.HasFlag(FlagPersistent) {
		return
	}
	r.pendingDestroy[id] = true
}

// Tick removes every lobby queued for destruction that is still empty
// (a client may have rejoined it since QueueDestroy was called).
func (r *Registry) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.pendingDestroy {
		if l, ok := r.byID[id]; ok && l.IsEmpty() {
			delete(r.byID, id)
		}
		delete(r.pendingDestroy, id)
	}
}
