// Package cipher implements the four PSO stream-cipher families and the
// handshake that keys them. Each client version family uses a different
// keystream algorithm (see the per-file comments); all of them present the
// same Stream interface so the framing codec and Channel never need to
// branch on which one is in play.
package cipher

import (
	"errors"
	"fmt"

	"github.com/fuzzpoint/psoserver/internal/version"
)

// ErrCipherState names the condition of a Channel asked to encrypt/decrypt
// before its ciphers have been keyed by the handshake, or re-keyed out of
// order. Nothing in this package or in internal/channel returns it: a
// Channel whose ciphers are not set passes bytes through unencrypted.
var ErrCipherState = errors.New("cipher: not keyed, or keyed out of order")

// Stream is a keystream cipher that encrypts/decrypts in place. All four
// families advance internal state as a side effect of each call, so a
// Stream must never be used from more than one goroutine concurrently and
// must never be reused for both directions of a Channel — each direction
// owns its own instance, as sending and receiving advance state
// independently.
type Stream interface {
	// Encrypt transforms data in place: an XOR with the next len(data)
	// keystream bytes for the PC, GC/XB and DC families, Blowfish over
	// 8-byte blocks for BB.
	Encrypt(data []byte)
	// Decrypt is Encrypt's inverse. For the XOR families the keystream
	// does not depend on the data, so Decrypt applies the same XOR as
	// Encrypt; for the BB block cipher it runs the block decryption.
	Decrypt(data []byte)
}

// KeySize returns the number of key bytes NewStream expects for v: 4 bytes
// for every family except Blue Burst, which expands a 48-byte key.
func KeySize(v version.Version) int {
	if v == version.BB {
		return 48
	}
	return 4
}

// NewStream constructs the keystream appropriate for v, keyed by key.
// len(key) must equal KeySize(v).
func NewStream(v version.Version, key []byte) (Stream, error) {
	if len(key) != KeySize(v) {
		return nil, fmt.Errorf("cipher: version %s needs a %d-byte key, got %d", v, KeySize(v), len(key))
	}
	switch {
	case v == version.PCV2:
		return newPCStream(key), nil
	case v.IsDC():
		return newDCStream(key), nil
	case v.IsGC() || v == version.XB:
		return newGCXBStream(key), nil
	case v == version.BB:
		return newBBStream(key)
	default:
		return nil, fmt.Errorf("cipher: unsupported version %s", v)
	}
}
