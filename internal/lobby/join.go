package lobby

import (
	"errors"

	"github.com/fuzzpoint/psoserver/internal/session"
)

// ErrNoSpace is returned by Join when every lobby in the search order is
// full or version-incompatible.
var ErrNoSpace = errors.New("lobby: no lobby with free space")

// Join scans order for the first lobby with free space that accepts c's
// version, adds c to it, and returns the lobby and assigned slot
// (spec.md §4.5 "Joining a lobby").
func Join(order []*Lobby, c *session.Client) (*Lobby, int, error) {
	for _, l := range order {
		if !l.AcceptsVersion(c.Version) {
			continue
		}
		if l.IsFull() {
			continue
		}
		slot, err := l.Add(c)
		if err != nil {
			continue
		}
		return l, slot, nil
	}
	return nil, -1, ErrNoSpace
}

// ChangeClientLobby atomically moves c from its current lobby (if any)
// to dest: removes from the source, then adds to dest (spec.md §4.5
// "Moving between lobbies"). If the source becomes empty and is
// non-persistent, it is queued for destruction via reg.
//
// Notification (player-left / join / player-joined broadcasts) is a
// dispatch-layer concern layered on top of this; ChangeClientLobby only
// guarantees the state mutation is atomic from the caller's point of
// view (single-threaded dispatch, spec.md §5).
func ChangeClientLobby(reg *Registry, src *Lobby, dest *Lobby, c *session.Client) (slot int, err error) {
	if src != nil {
		src.Remove(c)
		if src.IsEmpty() && !src.HasFlag(FlagPersistent) {
			reg.QueueDestroy(src.ID)
		}
	}
	slot, err = dest.Add(c)
	if err != nil && src != nil {
		// Roll back: re-add to the source lobby so the client isn't left
		// in limbo if the destination turned out to be full.
		_, _ = src.Add(c)
	}
	return slot, err
}
