package dispatch

import (
	"log/slog"
	"testing"

	"github.com/fuzzpoint/psoserver/internal/account"
	"github.com/fuzzpoint/psoserver/internal/lobby"
	"github.com/fuzzpoint/psoserver/internal/session"
	"github.com/fuzzpoint/psoserver/internal/version"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, flags account.Flag) *session.Client {
	c := session.NewClient(nil, version.BB, session.LobbyServer)
	acc := account.New(1)
	acc.Flags = flags
	c.SetLogin(&session.Login{Account: acc})
	return c
}

func TestChatDispatchUnknownCommand(t *testing.T) {
	r := NewChatRegistry()
	ctx := &ChatContext{Context: &Context{Client: newClient(t, 0), Logger: slog.Default()}}
	err := r.Dispatch(ctx, "$bogus")
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
}

func TestChatDispatchPreconditionFailure(t *testing.T) {
	r := NewChatRegistry()
	idx := account.New(t.TempDir())
	svc := &ChatServices{Accounts: idx}
	RegisterRepresentativeChatCommands(r, svc)

	ctx := &ChatContext{Context: &Context{Client: newClient(t, 0), Logger: slog.Default()}}
	err := r.Dispatch(ctx, "$kick 0")
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
}

func TestChatDispatchMaxLevelRequiresLeaderAndGame(t *testing.T) {
	r := NewChatRegistry()
	svc := &ChatServices{Accounts: account.New(t.TempDir())}
	RegisterRepresentativeChatCommands(r, svc)

	client := newClient(t, 0)
	l := lobby.NewGame(1, 0, lobby.Episode1, lobby.ModeNormal, 0)
	l.Versions = 1 << uint(version.BB)
	_, err := l.Add(client)
	require.NoError(t, err)

	ctx := &ChatContext{Context: &Context{Client: client, Logger: slog.Default()}, Lobby: l}
	require.NoError(t, r.Dispatch(ctx, "$maxlevel 50"))
	require.Equal(t, 50, l.Game.MaxLevel)
}

func TestSubRegistryDispatchEmptyPayload(t *testing.T) {
	r := NewSubRegistry()
	ctx := &Context{Logger: slog.Default()}
	err := r.Dispatch(ctx, nil)
	require.ErrorIs(t, err, ErrEmptySubcommand)
}

func TestSwitchAssistReplay(t *testing.T) {
	s := lobby.NewSwitchState()
	s.SetEnabled(0, lobby.SwitchKey{Floor: 1, Number: 1})

	replay, ok := HandleSwitchStep(s, true, 0, lobby.SwitchKey{Floor: 1, Number: 2})
	require.True(t, ok)
	require.Equal(t, lobby.SwitchKey{Floor: 1, Number: 1}, replay)

	_, ok = HandleSwitchStep(s, false, 0, lobby.SwitchKey{Floor: 1, Number: 2})
	require.False(t, ok)
}
