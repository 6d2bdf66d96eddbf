package session

import (
	"encoding/binary"
	"errors"
)

// ConfigMagic prefixes every serialized Config so a parser can reject a
// reconnecting client's stale or corrupt blob instead of trusting
// whatever bytes came back (spec.md §3 "Config").
const ConfigMagic uint32 = 0x50534F43 // "PSOC"

// ConfigSize is the total serialized size of Config, matching the fixed,
// opaque field the protocol reserves for the server's own use in every
// command that carries a client-config field.
const ConfigSize = 32

// NoOverride is the sentinel for the three 8-bit override fields meaning
// "no override, use the server default".
const NoOverride uint8 = 0xFF

// ClientSideMask selects the bits of EnabledFlags that a reconnecting
// client is allowed to report back honestly; all other bits must be
// re-derived server-side rather than trusted from the wire (spec.md §3:
// "only the low bits... may be trusted as coming from the client").
const ClientSideMask uint64 = 0x00000000FFFFFFFF

// Config is the per-client structure round-tripped to the client in
// every command that has a client-config field, and re-parsed from the
// client on reconnect (spec.md §3).
type Config struct {
	EnabledFlags       uint64
	SpecificVersion    uint32
	OverrideRandomSeed uint32
	ProxyDestAddress   uint32
	ProxyDestPort      uint16
	OverrideSectionID  uint8
	OverrideLobbyEvent uint8
	OverrideLobbyNumber uint8
}

// ErrBadConfig is returned by ParseConfig when the magic prefix doesn't
// match or the blob is too short.
var ErrBadConfig = errors.New("session: malformed client config")

// Serialize encodes c into a ConfigSize-byte blob, magic-prefixed.
func (c Config) Serialize() []byte {
	buf := make([]byte, ConfigSize)
	binary.LittleEndian.PutUint32(buf[0:4], ConfigMagic)
	binary.LittleEndian.PutUint64(buf[4:12], c.EnabledFlags)
	binary.LittleEndian.PutUint32(buf[12:16], c.SpecificVersion)
	binary.LittleEndian.PutUint32(buf[16:20], c.OverrideRandomSeed)
	binary.LittleEndian.PutUint32(buf[20:24], c.ProxyDestAddress)
	binary.LittleEndian.PutUint16(buf[24:26], c.ProxyDestPort)
	buf[26] = c.OverrideSectionID
	buf[27] = c.OverrideLobbyEvent
	buf[28] = c.OverrideLobbyNumber
	// buf[29:32] reserved, zero.
	return buf
}

// ParseConfig decodes a Config previously produced by Serialize. On
// reconnect only the bits under ClientSideMask should be trusted; callers
// must re-derive the rest from server-side session state.
func ParseConfig(data []byte) (Config, error) {
	if len(data) < ConfigSize {
		return Config{}, ErrBadConfig
	}
	if binary.LittleEndian.Uint32(data[0:4]) != ConfigMagic {
		return Config{}, ErrBadConfig
	}
	return Config{
		EnabledFlags:        binary.LittleEndian.Uint64(data[4:12]),
		SpecificVersion:     binary.LittleEndian.Uint32(data[12:16]),
		OverrideRandomSeed:  binary.LittleEndian.Uint32(data[16:20]),
		ProxyDestAddress:    binary.LittleEndian.Uint32(data[20:24]),
		ProxyDestPort:       binary.LittleEndian.Uint16(data[24:26]),
		OverrideSectionID:   data[26],
		OverrideLobbyEvent:  data[27],
		OverrideLobbyNumber: data[28],
	}, nil
}

// TrustedClientFlags masks EnabledFlags down to the bits a reconnecting
// client is allowed to assert about itself.
func (c Config) TrustedClientFlags() uint64 {
	return c.EnabledFlags & ClientSideMask
}

// NewDefaultConfig returns a Config with every override set to
// NoOverride, ready to be customized by the session layer before a
// reconnect.
func NewDefaultConfig() Config {
	return Config{
		OverrideSectionID:   NoOverride,
		OverrideLobbyEvent:  NoOverride,
		OverrideLobbyNumber: NoOverride,
	}
}
