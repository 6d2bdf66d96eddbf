// Package session implements the per-client state machine (spec.md §4.3):
// the Config structure round-tripped to the client, the Login object
// produced by a successful credential lookup, the Client aggregate owned
// by the dispatch layer, and the Behavior enum that determines which
// handler set a listening port's accepted connections run under.
//
// Grounded on the teacher's internal/gameserver/client.go (GameClient:
// mutex-guarded rarely-changed fields alongside atomic hot-path fields)
// and internal/login/state.go (ConnectionState enum + transition guards).
package session

// Behavior is the role assigned to a listening port (spec.md §4.3). It
// determines which command handler table is active for a Client and,
// on completion, which port (if any) the client is redirected to next.
type Behavior int

const (
	// PatchServer serves the pre-login patch protocol. Never transitions;
	// the client disconnects after sync.
	PatchServer Behavior = iota
	// DataServerBB runs the Blue-Burst-only character/key/guildcard file
	// exchange, then reconnects to LoginServer.
	DataServerBB
	// LoginServer accepts credentials and per-version handshake variants,
	// then reconnects to LobbyServer.
	LoginServer
	// LobbyServer is the long-lived state: menus, lobby joins, game
	// creation, in-game commands.
	LobbyServer
	// ProxyServer is spawned by LobbyServer when the player selects a
	// proxy destination; installs a ProxySession collaborator.
	ProxyServer
)

func (b Behavior) String() string {
	switch b {
	case PatchServer:
		return "PATCH_SERVER"
	case DataServerBB:
		return "DATA_SERVER_BB"
	case LoginServer:
		return "LOGIN_SERVER"
	case LobbyServer:
		return "LOBBY_SERVER"
	case ProxyServer:
		return "PROXY_SERVER"
	default:
		return "UNKNOWN"
	}
}
