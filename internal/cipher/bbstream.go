package cipher

import (
	"fmt"

	"golang.org/x/crypto/blowfish"
)

// bbBlockSize is the Blue Burst cipher's block size: 8 bytes, little-endian.
const bbBlockSize = 8

// bbStream is the Blue Burst v4 cipher: a Blowfish-family block cipher
// over a server-selected 48-byte key, operating on 8-byte little-endian
// blocks. The 48-byte key from the handshake is the Blowfish key itself:
// this is the standard 16-round Blowfish, with no per-server key file and
// no key-slot selection.
//
// Grounded on the teacher's internal/crypto/blowfish.go, which wraps
// golang.org/x/crypto/blowfish rather than hand-rolling a Feistel network;
// this does the same. BB's key material is 48 bytes, within Blowfish's
// accepted 4-56 byte key range, so no separate expansion step is needed
// beyond byte-order handling for the little-endian blocks the PSO client
// expects (golang.org/x/crypto/blowfish operates big-endian internally).
type bbStream struct {
	enc *blowfish.Cipher
	dec *blowfish.Cipher
}

func newBBStream(key []byte) (*bbStream, error) {
	c, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: bb key expansion: %w", err)
	}
	// Independent ECB-mode ciphers for each direction: BB encrypts each
	// 8-byte block independently (no chaining), so a single *blowfish.Cipher
	// would suffice, but splitting in/out keeps the Stream contract
	// symmetric with the other three families, each of which does carry
	// per-direction state.
	c2, _ := blowfish.NewCipher(key)
	return &bbStream{enc: c, dec: c2}, nil
}

func reverseBlock(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// Encrypt/Decrypt process data in 8-byte blocks. A trailing partial block
// (shorter than 8 bytes) is left untouched — callers must pad to the
// block size before encrypting, per spec.md §4.1 ("the server's output
// cipher advances by the full length of whatever is sent, including
// padding for BB block alignment").
func (s *bbStream) Encrypt(data []byte) {
	for off := 0; off+bbBlockSize <= len(data); off += bbBlockSize {
		block := data[off : off+bbBlockSize]
		reverseBlock(block)
		s.enc.Encrypt(block, block)
		reverseBlock(block)
	}
}

func (s *bbStream) Decrypt(data []byte) {
	for off := 0; off+bbBlockSize <= len(data); off += bbBlockSize {
		block := data[off : off+bbBlockSize]
		reverseBlock(block)
		s.dec.Decrypt(block, block)
		reverseBlock(block)
	}
}
