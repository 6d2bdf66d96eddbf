// Package framing implements the three PSO header dialects (§4.2): the
// DC/GC/XB 4-byte header, the PC/Patch 4-byte header with a different
// field order, and the BB 8-byte header. Decoding is incremental — callers
// feed it whatever bytes a socket read returned, in however many pieces,
// and it yields zero or more complete Messages plus the number of bytes
// it consumed.
//
// Grounded on the teacher's internal/protocol/packet.go (single-dialect
// length-prefixed read/write over io.Reader/io.Writer) and
// internal/gslistener/protocol.go (same shape, different header width) —
// this generalizes both into one codec parameterized by version.Dialect.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fuzzpoint/psoserver/internal/version"
)

// ErrMalformedFrame is returned when a header declares an impossible or
// oversized frame.
var ErrMalformedFrame = errors.New("framing: malformed frame")

// DefaultMaxPayload is the maximum payload size accepted for game-version
// traffic. BB auth exchanges are allowed a larger ceiling, see
// MaxPayloadFor.
const DefaultMaxPayload = 64 * 1024

// bbAuthMaxPayload covers the character/guild-card file exchange, which
// ships larger blobs than any in-game command.
const bbAuthMaxPayload = 256 * 1024

// MaxPayloadFor returns the maximum payload size the codec accepts for v.
func MaxPayloadFor(v version.Version) int {
	if v == version.BB {
		return bbAuthMaxPayload
	}
	return DefaultMaxPayload
}

// Message is one decoded command: a top-level command number, the opaque
// per-command flag, and the payload bytes (header and alignment padding
// stripped).
type Message struct {
	Command uint16
	Flag    uint32
	Payload []byte
}

func headerSize(d version.HeaderDialect) int {
	if d == version.DialectBB {
		return 8
	}
	return 4
}

// Decode scans buf for as many complete frames as it contains, returning
// the decoded Messages and the number of leading bytes of buf that were
// consumed (including any alignment padding after each payload). The
// caller must retain buf[consumed:] and append the next read to it.
//
// Decode never blocks and never reads past what buf already holds: a
// trailing partial header or payload simply isn't consumed yet.
func Decode(v version.Version, buf []byte) (messages []Message, consumed int, err error) {
	dialect := v.Dialect()
	align := v.Alignment()
	hsize := headerSize(dialect)
	maxPayload := MaxPayloadFor(v)

	pos := 0
	for {
		if len(buf)-pos < hsize {
			break
		}
		header := buf[pos : pos+hsize]

		var cmd uint16
		var flag uint32
		var totalSize int

		switch dialect {
		case version.DialectDCGCXB:
			cmd = uint16(header[0])
			flag = uint32(header[1])
			totalSize = int(binary.LittleEndian.Uint16(header[2:4]))
		case version.DialectPCPatch:
			totalSize = int(binary.LittleEndian.Uint16(header[0:2]))
			cmd = uint16(header[2])
			flag = uint32(header[3])
		case version.DialectBB:
			totalSize = int(binary.LittleEndian.Uint16(header[0:2]))
			cmd = binary.LittleEndian.Uint16(header[2:4])
			flag = binary.LittleEndian.Uint32(header[4:8])
		}

		if totalSize < hsize {
			return messages, pos, fmt.Errorf("%w: size %d smaller than header", ErrMalformedFrame, totalSize)
		}
		payloadLen := totalSize - hsize
		if payloadLen > maxPayload {
			return messages, pos, fmt.Errorf("%w: payload %d exceeds max %d", ErrMalformedFrame, payloadLen, maxPayload)
		}

		// Tolerate peers that pad to alignment and peers that don't: the
		// frame proper is exactly totalSize bytes; padding beyond that up
		// to the alignment boundary is consumed but discarded.
		paddedTotal := totalSize
		if rem := paddedTotal % align; rem != 0 {
			paddedTotal += align - rem
		}

		if len(buf)-pos < paddedTotal {
			break // wait for more bytes
		}

		payload := make([]byte, payloadLen)
		copy(payload, buf[pos+hsize:pos+totalSize])
		messages = append(messages, Message{Command: cmd, Flag: flag, Payload: payload})

		pos += paddedTotal
	}

	return messages, pos, nil
}

// Encode frames (cmd, flag, payload) for v: header + payload + zero
// padding to v's alignment. The returned slice is ready to hand to a
// cipher's Encrypt and then to the wire.
func Encode(v version.Version, cmd uint16, flag uint32, payload []byte) ([]byte, error) {
	dialect := v.Dialect()
	align := v.Alignment()
	hsize := headerSize(dialect)

	totalSize := hsize + len(payload)
	if totalSize-hsize > MaxPayloadFor(v) {
		return nil, fmt.Errorf("%w: payload %d exceeds max %d", ErrMalformedFrame, len(payload), MaxPayloadFor(v))
	}

	paddedTotal := totalSize
	if rem := paddedTotal % align; rem != 0 {
		paddedTotal += align - rem
	}

	buf := make([]byte, paddedTotal)
	switch dialect {
	case version.DialectDCGCXB:
		buf[0] = byte(cmd)
		buf[1] = byte(flag)
		binary.LittleEndian.PutUint16(buf[2:4], uint16(totalSize))
	case version.DialectPCPatch:
		binary.LittleEndian.PutUint16(buf[0:2], uint16(totalSize))
		buf[2] = byte(cmd)
		buf[3] = byte(flag)
	case version.DialectBB:
		binary.LittleEndian.PutUint16(buf[0:2], uint16(totalSize))
		binary.LittleEndian.PutUint16(buf[2:4], cmd)
		binary.LittleEndian.PutUint32(buf[4:8], flag)
	}
	copy(buf[hsize:totalSize], payload)
	// buf[totalSize:] is already zero (Go zero-values new slices), matching
	// "padding bytes on command boundaries must be zero on the wire".
	return buf, nil
}
