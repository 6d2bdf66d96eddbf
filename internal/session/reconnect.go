package session

import (
	"encoding/binary"
	"net"
)

// CmdReconnect is the command number that tells the client to disconnect
// and reopen a connection elsewhere (spec.md §4.3 "Reconnect contract").
const CmdReconnect uint16 = 0x19

// Endpoint is an IPv4 address and port the client should connect to next.
type Endpoint struct {
	Address uint32 // big-endian IPv4, as the wire command expects
	Port    uint16
}

// ListenerAddresses is the pair of addresses a given listening port is
// reachable at: the address LAN-local clients should use, and the
// address WAN clients should use. A reconnect command picks between them
// per spec.md §4.3 step 1.
type ListenerAddresses struct {
	Local    net.IP
	External net.IP
	Port     uint16
}

// ipToBigEndianUint32 packs a 4-byte IPv4 address into the big-endian
// uint32 the wire reconnect commands carry.
func ipToBigEndianUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
}

// sameSubnet reports whether client and server addresses share their
// first three octets — the same heuristic the retail client family uses
// to distinguish LAN peers from WAN peers when picking a reconnect
// target. Used only when no more specific CIDR configuration is given.
func sameSubnet(client, server net.IP) bool {
	c, s := client.To4(), server.To4()
	if c == nil || s == nil {
		return false
	}
	return c[0] == s[0] && c[1] == s[1] && c[2] == s[2]
}

// ResolveEndpoint chooses which of addrs.Local/External the client at
// clientIP should be told to use (spec.md §4.3 step 1).
func ResolveEndpoint(clientIP net.IP, addrs ListenerAddresses) Endpoint {
	target := addrs.External
	if sameSubnet(clientIP, addrs.Local) {
		target = addrs.Local
	}
	return Endpoint{Address: ipToBigEndianUint32(target), Port: addrs.Port}
}

// BuildReconnectPayload encodes ep as the CmdReconnect payload: the
// 4-byte address in the same octet order ResolveEndpoint packed it in,
// the 2-byte port, and two padding bytes to round out the command to the
// version's alignment (spec.md §4.2 "size is the total bytes... before
// padding" — the codec pads the rest, this just keeps the struct a
// round 8 bytes like the retail command).
func BuildReconnectPayload(ep Endpoint) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], ep.Address)
	binary.LittleEndian.PutUint16(buf[4:6], ep.Port)
	return buf
}
