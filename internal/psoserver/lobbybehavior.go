package psoserver

import (
	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/config"
	"github.com/fuzzpoint/psoserver/internal/dispatch"
	"github.com/fuzzpoint/psoserver/internal/lobby"
	"github.com/fuzzpoint/psoserver/internal/session"
)

// mainMenuID is the menu-id byte real clients key their "proceed" top
// menu display on after their first lobby join (spec.md §8 scenario 1).
const mainMenuID = 0

// runLobbyServer drives one LOBBY_SERVER connection from the moment the
// client reconnects off LOGIN_SERVER (spec.md §4.3) through to
// disconnect: a fresh handshake, a repeat of the credential exchange to
// re-identify the connection, the initial lobby join and roster
// broadcast, and finally the steady-state command loop that feeds every
// decoded message to s.Dispatch.
func (s *ServerState) runLobbyServer(ch *channel.Channel, pc config.PortConfiguration) {
	serverKey, clientKey, err := generateKeys(pc.Version)
	if err != nil {
		s.Logger.Error("lobby: generating keys", "error", err)
		_ = ch.Close()
		return
	}
	if err := sendEncryptionInit(ch, encryptionInitCommand(pc.Version), serverKey, clientKey); err != nil {
		s.Logger.Warn("lobby: handshake failed", "error", err)
		return
	}

	msgs, err := ch.Recv()
	if err != nil || len(msgs) == 0 {
		return
	}
	login, rejectErr := s.authenticate(pc.Version, msgs[0].Command, msgs[0].Payload)
	if rejectErr != nil {
		s.rejectLogin(ch, pc.Version, rejectErr)
		return
	}
	if login == nil {
		s.Logger.Warn("lobby: unexpected command for version", "command", msgs[0].Command, "version", pc.Version)
		_ = ch.Close()
		return
	}

	client := session.NewClient(ch, pc.Version, session.LobbyServer)
	client.SetLogin(login)
	s.AddClient(ch, client)

	defer func() {
		if l := s.LobbyOf(client); l != nil {
			slot := l.Remove(client)
			if l.IsEmpty() && !l.HasFlag(lobby.FlagPersistent) {
				s.Lobbies.QueueDestroy(l.ID)
			}
			s.BroadcastLeave(l, slot)
		}
		s.RemoveClient(ch)
		_ = ch.Close()
	}()

	order := s.Lobbies.DefaultLobbies()
	if pc.Version.IsEp3() {
		order = s.Lobbies.Ep3SearchOrder()
	}
	joined, _, err := lobby.Join(order, client)
	if err != nil {
		s.Logger.Warn("lobby: no default lobby accepted this client", "version", pc.Version, "error", err)
		return
	}
	s.BroadcastJoin(joined, client)
	if s.Config.WelcomeMessage != "" {
		s.SendMessageBox(client, s.Config.WelcomeMessage)
	}
	s.SendMenu(client, mainMenuID, nil)

	for {
		msgs, err := ch.Recv()
		if err != nil {
			return
		}
		for i := range msgs {
			ctx := &dispatch.Context{
				Client:  client,
				Command: msgs[i].Command,
				Flag:    msgs[i].Flag,
				Payload: msgs[i].Payload,
				Logger:  s.Logger,
			}
			if dispErr := s.Dispatch.Dispatch(ctx); dispErr != nil {
				s.Logger.Error("lobby: dispatch error", "command", ctx.Command, "error", dispErr)
				return
			}
		}
	}
}
