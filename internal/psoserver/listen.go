package psoserver

import (
	"context"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/config"
	"github.com/fuzzpoint/psoserver/internal/session"
)

// Run opens every configured listener and blocks until ctx is cancelled or
// one of them fails to bind. Each listener gets its own accept loop in the
// errgroup (teacher's internal/login/server.go + cmd/gameserver/main.go
// both start exactly two such loops; this generalizes the same pattern
// over an arbitrary PortConfiguration list, spec.md §4.9).
func (s *ServerState) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, pc := range s.Config.Listeners {
		pc := pc
		lc := net.ListenConfig{}
		ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(pc.Addr, portString(pc.Port)))
		if err != nil {
			return err
		}
		s.Logger.Info("listening", "name", pc.Name, "addr", ln.Addr(), "behavior", pc.Behavior, "version", pc.Version)
		g.Go(func() error {
			return s.acceptLoop(ctx, ln, pc)
		})
	}
	return g.Wait()
}

func portString(p uint16) string {
	buf := [5]byte{}
	n := len(buf)
	if p == 0 {
		return "0"
	}
	for p > 0 {
		n--
		buf[n] = byte('0' + p%10)
		p /= 10
	}
	return string(buf[n:])
}

// acceptLoop accepts connections on ln until ctx is cancelled, dispatching
// each to a fresh goroutine running pc's configured behavior.
func (s *ServerState) acceptLoop(ctx context.Context, ln net.Listener, pc config.PortConfiguration) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleConn(conn, pc)
	}
}

// handleConn routes a freshly accepted connection to the handler for pc's
// Behavior (spec.md §4.3's five listening-port roles).
func (s *ServerState) handleConn(conn net.Conn, pc config.PortConfiguration) {
	switch pc.Behavior {
	case session.PatchServer, session.DataServerBB:
		s.runPatchServer(conn, pc)
	case session.LoginServer:
		ch := channel.NewNoCipher(conn, pc.Version, s.Logger)
		s.runLoginServer(ch, pc)
	case session.LobbyServer:
		ch := channel.NewNoCipher(conn, pc.Version, s.Logger)
		s.runLobbyServer(ch, pc)
	case session.ProxyServer:
		ch := channel.NewNoCipher(conn, pc.Version, s.Logger)
		s.runProxyServer(ch, pc)
	default:
		s.Logger.Error("unknown listener behavior", "behavior", pc.Behavior)
		_ = conn.Close()
	}
}
