package psoserver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzpoint/psoserver/internal/session"
	"github.com/fuzzpoint/psoserver/internal/version"
)

func TestSnapshotListsDefaultLobbiesWithNoClients(t *testing.T) {
	s := newTestState(t)
	snap := s.Snapshot()
	require.Len(t, snap.Lobbies, len(s.Lobbies.DefaultLobbies()))
	require.Empty(t, snap.Clients)
	require.Equal(t, 0, snap.ProxySessionCount)
}

func TestSnapshotIncludesConnectedClient(t *testing.T) {
	s := newTestState(t)
	c := session.NewClient(nil, version.BB, session.LobbyServer)
	s.AddClient(nil, c)

	snap := s.Snapshot()
	require.Len(t, snap.Clients, 1)
	require.Equal(t, "BB", snap.Clients[0].Version)
	require.Equal(t, "LOBBY_SERVER", snap.Clients[0].Behavior)
}
