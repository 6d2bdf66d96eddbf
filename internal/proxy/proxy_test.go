package proxy

import (
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/framing"
	"github.com/fuzzpoint/psoserver/internal/version"
)

// newPipeSession wires a Session between two in-process net.Pipe links, one
// standing in for the real client and one for the real remote server, each
// driven from the test as a bare framing encoder/decoder.
func newPipeSession(t *testing.T) (sess *Session, clientSide, serverSide net.Conn) {
	t.Helper()
	clientConn, clientSideConn := net.Pipe()
	serverConn, serverSideConn := net.Pipe()

	clientChan := channel.NewNoCipher(clientSideConn, version.GC, nil)
	serverChan := channel.NewNoCipher(serverSideConn, version.GC, nil)

	sess = NewSession(clientChan, serverChan, nil)
	return sess, clientConn, serverConn
}

func sendFrame(t *testing.T, conn net.Conn, cmd uint16, payload []byte) {
	t.Helper()
	buf, err := framing.Encode(version.GC, cmd, 0, payload)
	require.NoError(t, err)
	_, err = conn.Write(buf)
	require.NoError(t, err)
}

func recvFrame(t *testing.T, conn net.Conn) framing.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	msgs, _, err := framing.Decode(version.GC, buf[:n])
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	return msgs[0]
}

func TestRelayForwardsUnmodifiedByDefault(t *testing.T) {
	sess, clientSide, serverSide := newPipeSession(t)
	go sess.RunClientToServer()

	sendFrame(t, clientSide, 0x60, []byte("hello"))
	got := recvFrame(t, serverSide)
	require.Equal(t, uint16(0x60), got.Command)
	require.Equal(t, []byte("hello"), got.Payload)
}

func TestGuildCardRewriteHookRewritesOffset(t *testing.T) {
	sess, clientSide, serverSide := newPipeSession(t)
	sess.GuildCardRewrite = func(real uint32) uint32 { return real + 1000 }
	sess.ClientHooks = []Hook{GuildCardRewriteHook(0)}
	go sess.RunClientToServer()

	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, 42)
	sendFrame(t, clientSide, 0x61, payload)

	got := recvFrame(t, serverSide)
	require.Equal(t, uint32(1042), binary.LittleEndian.Uint32(got.Payload))
}

func TestReconnectInterceptHookRewritesAddressAndCapturesTarget(t *testing.T) {
	sess, clientSide, serverSide := newPipeSession(t)
	var dialedAddr uint32
	var dialedPort uint16
	sess.ServerHooks = []Hook{ReconnectInterceptHook(0x7f000001, 9100, func(addr uint32, port uint16) {
		dialedAddr, dialedPort = addr, port
	})}
	go sess.RunServerToClient()

	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], 0x0a0a0a0a)
	binary.LittleEndian.PutUint16(payload[4:6], 5100)
	sendFrame(t, serverSide, CmdReconnect, payload)

	got := recvFrame(t, clientSide)
	require.Equal(t, uint32(0x7f000001), binary.LittleEndian.Uint32(got.Payload[0:4]))
	require.Equal(t, uint16(9100), binary.LittleEndian.Uint16(got.Payload[4:6]))
	require.Equal(t, uint32(0x0a0a0a0a), dialedAddr)
	require.Equal(t, uint16(5100), dialedPort)
}

func TestSaveFileHookWritesUnderSaveDir(t *testing.T) {
	sess, _, serverSide := newPipeSession(t)
	sess.SaveDir = t.TempDir()
	sess.ServerHooks = []Hook{SaveFileHook(func(msg *framing.Message) string {
		if msg.Command != 0x13 {
			return ""
		}
		return "quest.bin"
	})}
	go sess.RunServerToClient()

	sendFrame(t, serverSide, 0x13, []byte("quest data"))
	// Give the relay goroutine a moment to process before asserting.
	time.Sleep(50 * time.Millisecond)

	data, err := os.ReadFile(filepath.Join(sess.SaveDir, "quest.bin"))
	require.NoError(t, err)
	require.Equal(t, []byte("quest data"), data)
}

func TestUpdateRosterRecordsEntry(t *testing.T) {
	sess, _, _ := newPipeSession(t)
	sess.UpdateRoster(RosterEntry{GuildCardNumber: 7, Name: "Rika"})
	require.Equal(t, "Rika", sess.Roster[7].Name)
}
