package psoserver

import (
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzpoint/psoserver/internal/account"
	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/cipher"
	"github.com/fuzzpoint/psoserver/internal/config"
	"github.com/fuzzpoint/psoserver/internal/dispatch"
	"github.com/fuzzpoint/psoserver/internal/lobby"
	"github.com/fuzzpoint/psoserver/internal/session"
	"github.com/fuzzpoint/psoserver/internal/version"
)

// buildLoginPayload lays out the login command the way parseTwoFields
// reads it back: an 8-byte reserved prefix followed by two NUL-terminated
// fieldLen-byte ASCII fields.
func buildLoginPayload(fieldLen int, a, b string) []byte {
	buf := make([]byte, loginPayloadPrefix+2*fieldLen)
	copy(buf[loginPayloadPrefix:], a)
	copy(buf[loginPayloadPrefix+fieldLen:], b)
	return buf
}

// TestScenarioPCLoginUnregisteredUserAllowed is spec.md §8 scenario 1's
// LOGIN_SERVER half: an unregistered PC v2 serial/access-key pair is
// accepted outright, the account is created and persisted under its
// decimal-serial filename, and the client is handed a reconnect to the
// configured LOBBY_SERVER port.
func TestScenarioPCLoginUnregisteredUserAllowed(t *testing.T) {
	licensesDir := t.TempDir()
	cfg := &config.Config{
		LicensesDir:            licensesDir,
		AllowUnregisteredUsers: true,
		Listeners: []config.PortConfiguration{
			{Name: "pc-login", Addr: "0.0.0.0", Port: 12000, Version: version.PCV2, Behavior: session.LoginServer},
			{Name: "pc-lobby", Addr: "0.0.0.0", Port: 12001, Version: version.PCV2, Behavior: session.LobbyServer},
		},
	}
	s, err := New(cfg, slog.Default())
	require.NoError(t, err)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	pc := cfg.Listeners[0]
	go s.runLoginServer(channel.NewNoCipher(serverConn, version.PCV2, slog.Default()), pc)

	clientCh := channel.NewNoCipher(clientConn, version.PCV2, slog.Default())

	msgs, err := clientCh.Recv()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, CmdLoginInitNonBB, msgs[0].Command)

	n := cipher.KeySize(version.PCV2)
	require.Len(t, msgs[0].Payload, 2*n)
	serverKey := msgs[0].Payload[:n]
	clientKey := msgs[0].Payload[n : 2*n]
	require.NoError(t, clientCh.SetCiphers(clientKey, serverKey))

	payload := buildLoginPayload(16, strconv.Itoa(0x00ABCDEF), "12345678")
	require.NoError(t, clientCh.Send(CmdPCLogin, 0, payload))

	msgs, err = clientCh.Recv()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, session.CmdReconnect, msgs[0].Command)

	require.FileExists(t, filepath.Join(licensesDir, "0011259375.json"))

	acc, err := s.Accounts.ByID(0x00ABCDEF)
	require.NoError(t, err)
	require.Equal(t, uint32(0x00ABCDEF), acc.AccountID)
}

// TestScenarioBBLoginBannedAccount is spec.md §8 scenario 2: a banned
// Blue Burst account gets a message-box with the ban text and a
// disconnect, never a reconnect.
func TestScenarioBBLoginBannedAccount(t *testing.T) {
	licensesDir := t.TempDir()
	cfg := &config.Config{LicensesDir: licensesDir, BanMessage: "banned for cheating"}
	s, err := New(cfg, slog.Default())
	require.NoError(t, err)

	hash, err := account.HashBBPassword("bar")
	require.NoError(t, err)
	acc := account.New(0x01000001)
	acc.BanEndTime = 4102444800 // 2100-01-01, far enough in the future
	acc.Credentials.BB = []account.BBCredential{{Username: "foo", PasswordHash: hash}}
	require.NoError(t, s.Accounts.Put(acc))

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	pc := config.PortConfiguration{Name: "bb-login", Version: version.BB, Behavior: session.LoginServer}
	go s.runLoginServer(channel.NewNoCipher(serverConn, version.BB, slog.Default()), pc)

	clientCh := channel.NewNoCipher(clientConn, version.BB, slog.Default())

	msgs, err := clientCh.Recv()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, CmdLoginInitBB, msgs[0].Command)

	n := cipher.KeySize(version.BB)
	serverKey := msgs[0].Payload[:n]
	clientKey := msgs[0].Payload[n : 2*n]
	require.NoError(t, clientCh.SetCiphers(clientKey, serverKey))

	payload := buildLoginPayload(16, "foo", "bar")
	require.NoError(t, clientCh.Send(CmdBBLogin, 0, payload))

	msgs, err = clientCh.Recv()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, CmdMessageBox, msgs[0].Command)
	require.Contains(t, string(msgs[0].Payload), "banned for cheating")

	_, err = clientCh.Recv()
	require.Error(t, err)
}

// TestScenarioSwitchAssistReplaysPriorSwitch is spec.md §8 scenario 6:
// with cheats enabled and switch-assist on, stepping on switch B replays
// the player's own previously-enabled switch A to the whole lobby.
func TestScenarioSwitchAssistReplaysPriorSwitch(t *testing.T) {
	s := newTestState(t)
	g := lobby.NewGame(0, int(version.BB), lobby.Episode1, lobby.ModeNormal, 0)
	g.Game.CheatsEnabled = true
	g.Versions = 1 << uint(version.BB)
	s.Lobbies.CreateGame(g)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	serverCh := channel.NewNoCipher(serverConn, version.BB, slog.Default())
	p1 := session.NewClient(serverCh, version.BB, session.LobbyServer)
	_, err := g.Add(p1)
	require.NoError(t, err)

	clientCh := channel.NewNoCipher(clientConn, version.BB, slog.Default())
	received := make(chan []byte, 4)
	go func() {
		for {
			msgs, err := clientCh.Recv()
			if err != nil {
				return
			}
			for _, m := range msgs {
				received <- m.Payload
			}
		}
	}()

	enableA := encodeSwitchKey(dispatch.SwitchEnableSubcommand, lobby.SwitchKey{Floor: 2, Number: 1})
	ctxA := &dispatch.Context{Client: p1, Payload: enableA, Logger: slog.Default()}
	require.NoError(t, s.SubCommands.Dispatch(ctxA, enableA))

	stepB := encodeSwitchKey(dispatch.SwitchStepSubcommand, lobby.SwitchKey{Floor: 2, Number: 2})
	ctxB := &dispatch.Context{Client: p1, Payload: stepB, Logger: slog.Default()}
	require.NoError(t, s.SubCommands.Dispatch(ctxB, stepB))

	replay := <-received
	require.Equal(t, lobby.SwitchKey{Floor: 2, Number: 1}, decodeSwitchKey(replay))
	require.Equal(t, dispatch.SwitchEnableSubcommand, replay[0])
}
