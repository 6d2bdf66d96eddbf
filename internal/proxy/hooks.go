package proxy

import (
	"encoding/binary"

	"github.com/fuzzpoint/psoserver/internal/framing"
)

// CmdReconnect is the command number the remote server uses to redirect
// the client elsewhere (spec.md §4.3's reconnect contract, relayed here
// from the remote server's point of view).
const CmdReconnect uint16 = 0x19

// GuildCardRewriteHook rewrites the 4-byte Guild Card number at
// payloadOffset in every message so the remote server sees a consistent
// identity across proxy sessions (spec.md §4.7).
func GuildCardRewriteHook(payloadOffset int) Hook {
	return func(s *Session, dir Direction, msg *framing.Message) (bool, error) {
		if s.GuildCardRewrite == nil {
			return true, nil
		}
		if len(msg.Payload) < payloadOffset+4 {
			return true, nil
		}
		real := binary.LittleEndian.Uint32(msg.Payload[payloadOffset : payloadOffset+4])
		rewritten := s.GuildCardRewrite(real)
		binary.LittleEndian.PutUint32(msg.Payload[payloadOffset:payloadOffset+4], rewritten)
		return true, nil
	}
}

// ReconnectInterceptHook watches for the remote server's reconnect
// command and patches the embedded address/port in-flight so the client
// is silently redirected back to the proxy for the next hop instead of
// connecting directly to whatever the remote server named (spec.md §4.7
// "Patching connect-address commands in-flight").
//
// proxyAddr/proxyPort are the address the client should be told to use
// instead; dialNext is invoked with the address/port the remote server
// actually requested so the proxy can open its own connection there
// ahead of the client's next hop.
func ReconnectInterceptHook(proxyAddr uint32, proxyPort uint16, dialNext func(addr uint32, port uint16)) Hook {
	return func(s *Session, dir Direction, msg *framing.Message) (bool, error) {
		if msg.Command != CmdReconnect || len(msg.Payload) < 6 {
			return true, nil
		}
		realAddr := binary.LittleEndian.Uint32(msg.Payload[0:4])
		realPort := binary.LittleEndian.Uint16(msg.Payload[4:6])
		if dialNext != nil {
			dialNext(realAddr, realPort)
		}
		binary.LittleEndian.PutUint32(msg.Payload[0:4], proxyAddr)
		binary.LittleEndian.PutUint16(msg.Payload[4:6], proxyPort)
		return true, nil
	}
}

// SaveFileHook saves any payload that arrives tagged as a file transfer
// (spec.md §4.7 "Optionally saving any file"). nameFor extracts the
// relative save path from a message, or returns "" to skip saving it.
func SaveFileHook(nameFor func(msg *framing.Message) string) Hook {
	return func(s *Session, dir Direction, msg *framing.Message) (bool, error) {
		if dir != ServerToClient {
			return true, nil
		}
		name := nameFor(msg)
		if name == "" {
			return true, nil
		}
		if err := s.SaveFile(name, msg.Payload); err != nil {
			return true, err
		}
		return true, nil
	}
}
