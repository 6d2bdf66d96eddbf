package psoserver

import (
	"net"

	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/config"
	"github.com/fuzzpoint/psoserver/internal/proxy"
)

// runProxyServer drives one PROXY_SERVER connection (spec.md §4.7): the
// local client's handshake is performed exactly as on LOGIN_SERVER, then
// a second Channel is dialed to pc's configured destination and keyed,
// as the client side of that leg, from the server and client keys in the
// remote server's plaintext encryption-init payload (the proxy generates
// no keys of its own for the upstream leg).
func (s *ServerState) runProxyServer(ch *channel.Channel, pc config.PortConfiguration) {
	serverKey, clientKey, err := generateKeys(pc.Version)
	if err != nil {
		s.Logger.Error("proxy: generating keys", "error", err)
		_ = ch.Close()
		return
	}
	if err := sendEncryptionInit(ch, encryptionInitCommand(pc.Version), serverKey, clientKey); err != nil {
		s.Logger.Warn("proxy: local handshake failed", "error", err)
		return
	}

	if pc.ProxyDestAddr == "" {
		s.Logger.Error("proxy: listener has no destination configured", "name", pc.Name)
		_ = ch.Close()
		return
	}
	remoteConn, err := net.Dial("tcp", net.JoinHostPort(pc.ProxyDestAddr, portString(pc.ProxyDestPort)))
	if err != nil {
		s.Logger.Warn("proxy: dialing remote failed", "addr", pc.ProxyDestAddr, "error", err)
		_ = ch.Close()
		return
	}
	remoteCh := channel.NewNoCipher(remoteConn, pc.Version, s.Logger)

	msgs, err := remoteCh.Recv()
	if err != nil || len(msgs) == 0 {
		_ = ch.Close()
		_ = remoteCh.Close()
		return
	}
	remoteInit := msgs[0].Payload
	n := len(remoteInit) / 2
	if n > 0 {
		if setErr := remoteCh.SetCiphers(remoteInit[n:], remoteInit[:n]); setErr != nil {
			s.Logger.Warn("proxy: remote handshake failed", "error", setErr)
			_ = ch.Close()
			_ = remoteCh.Close()
			return
		}
	}

	sess := proxy.NewSession(ch, remoteCh, s.Logger)
	sess.SaveDir = s.Config.QuestsDir

	errCh := make(chan error, 2)
	go func() { errCh <- sess.RunClientToServer() }()
	go func() { errCh <- sess.RunServerToClient() }()
	<-errCh
}
