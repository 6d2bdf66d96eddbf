package psoserver

import (
	"encoding/binary"

	"github.com/fuzzpoint/psoserver/internal/lobby"
	"github.com/fuzzpoint/psoserver/internal/session"
)

// Top-level command numbers used outside the patch protocol (spec.md
// §4.2/§4.4). Values follow the numbering the PSO protocol documentation
// community (Sylverant, newserv, Tethealla) has converged on for these
// commands across server implementations; spec.md itself only pins down
// the handful of literal bytes in its §8 worked examples (0x02, 0x17,
// 0x9D, reconnect's 0x19 — already defined in internal/session).
//
// CmdGCLogin and CmdXBLogin deliberately share a literal value: the real
// protocol reuses the same command byte across GC and Xbox, the two
// dialects disambiguated by which listener (and therefore which Version)
// the connection arrived on rather than by the command number itself.
const (
	CmdLoginInitNonBB uint16 = 0x17
	CmdLoginInitBB    uint16 = 0x03

	CmdDCNTELogin uint16 = 0x88
	CmdDCLogin    uint16 = 0x90
	CmdPCLogin    uint16 = 0x9D
	CmdGCLogin    uint16 = 0x9E
	CmdXBLogin    uint16 = 0x9E
	CmdBBLogin    uint16 = 0x93

	CmdMessageBox uint16 = 0x1A
	CmdMenu       uint16 = 0x1F
	CmdChat       uint16 = 0x06

	CmdLobbyJoin          uint16 = 0x67
	CmdLobbyAddPlayer     uint16 = 0x68
	CmdLobbyRemovePlayer  uint16 = 0x69
	CmdGameJoin           uint16 = 0x64
	CmdGameAddPlayer      uint16 = 0x65
	CmdGameRemovePlayer   uint16 = 0x66
)

// SendMessageBox queues a modal message-box command to c (spec.md §7:
// ban notices, $kick notices).
func (s *ServerState) SendMessageBox(c *session.Client, text string) {
	buf := append([]byte(text), 0)
	for len(buf)&3 != 0 {
		buf = append(buf, 0)
	}
	_ = c.Channel.Send(CmdMessageBox, 0, buf)
}

// SendChatError sends text back to c alone as a chat line, how
// PreconditionError surfaces to the offending sender (spec.md §7
// "PreconditionFailed(msg)... chat-back to the sender").
func (s *ServerState) SendChatError(c *session.Client, text string) {
	buf := append([]byte(text), 0)
	for len(buf)&3 != 0 {
		buf = append(buf, 0)
	}
	_ = c.Channel.Send(CmdChat, uint32(c.SlotID), buf)
}

// SendMenu queues a minimal "proceed" menu to c — enough to exercise the
// scenario in spec.md §8 #1 ("replies with a menu command") without
// modeling the full per-version menu-item struct, which spec.md leaves
// unspecified beyond naming that a menu is sent.
func (s *ServerState) SendMenu(c *session.Client, menuID uint32, items []uint32) {
	buf := make([]byte, 4+4*len(items))
	binary.LittleEndian.PutUint32(buf[0:4], menuID)
	for i, item := range items {
		binary.LittleEndian.PutUint32(buf[4+4*i:8+4*i], item)
	}
	_ = c.Channel.Send(CmdMenu, uint32(len(items)), buf)
}

// encodeRoster encodes the simplified per-player records used to build
// join/add/remove broadcasts: slot id, Guild Card number, and display
// name. Real retail join commands also carry full character appearance
// data; that per-version binary layout is out of scope here (spec.md
// non-goals: "file-format parsing helpers... beyond the fact that the
// runtime consumes them").
func encodeRoster(l *lobby.Lobby) []byte {
	clients := l.Clients()
	buf := make([]byte, 1, 1+9*len(clients))
	buf[0] = byte(len(clients))
	for _, c := range clients {
		entry := make([]byte, 9)
		entry[0] = byte(c.SlotID)
		binary.LittleEndian.PutUint32(entry[1:5], c.GuildCardNumber())
		name := c.Login()
		n := ""
		if name != nil {
			n = name.Username
		}
		nb := []byte(n)
		if len(nb) > 3 {
			nb = nb[:3]
		}
		copy(entry[5:8], nb)
		buf = append(buf, entry...)
	}
	return buf
}

// BroadcastJoin sends the full roster to the newly joined client and a
// player-added delta to everyone already in l (spec.md §4.5 "Joining a
// lobby").
func (s *ServerState) BroadcastJoin(l *lobby.Lobby, joined *session.Client) {
	joinCmd, addCmd := CmdLobbyJoin, CmdLobbyAddPlayer
	if l.IsGame() {
		joinCmd, addCmd = CmdGameJoin, CmdGameAddPlayer
	}
	_ = joined.Channel.Send(joinCmd, uint32(l.ID), encodeRoster(l))

	single := make([]byte, 1, 10)
	single[0] = 1
	entry := make([]byte, 9)
	entry[0] = byte(joined.SlotID)
	binary.LittleEndian.PutUint32(entry[1:5], joined.GuildCardNumber())
	single = append(single, entry...)
	for _, other := range l.Clients() {
		if other == joined {
			continue
		}
		_ = other.Channel.Send(addCmd, uint32(joined.SlotID), single)
	}
}

// BroadcastLeave tells every remaining member of l that slot left
// (spec.md §4.5 "Moving between lobbies" — "fires player-left
// notifications").
func (s *ServerState) BroadcastLeave(l *lobby.Lobby, leftSlot int) {
	removeCmd := CmdLobbyRemovePlayer
	if l.IsGame() {
		removeCmd = CmdGameRemovePlayer
	}
	for _, other := range l.Clients() {
		_ = other.Channel.Send(removeCmd, uint32(leftSlot), nil)
	}
}
