package framing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzpoint/psoserver/internal/version"
)

func TestRoundTripEachDialect(t *testing.T) {
	cases := []struct {
		name string
		v    version.Version
	}{
		{"DCGCXB", version.GC},
		{"PCPatch", version.PCV2},
		{"BB", version.BB},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := []byte("hello, lobby")
			encoded, err := Encode(tc.v, 0x60, 3, payload)
			require.NoError(t, err)

			msgs, consumed, err := Decode(tc.v, encoded)
			require.NoError(t, err)
			require.Equal(t, len(encoded), consumed)
			require.Len(t, msgs, 1)
			require.EqualValues(t, 0x60, msgs[0].Command)
			require.EqualValues(t, 3, msgs[0].Flag)
			require.Equal(t, payload, msgs[0].Payload)
		})
	}
}

func TestDecodeHandlesPartialAndMultipleFrames(t *testing.T) {
	v := version.GC
	f1, err := Encode(v, 0x05, 0, []byte{1, 2, 3})
	require.NoError(t, err)
	f2, err := Encode(v, 0x06, 1, []byte{4, 5})
	require.NoError(t, err)

	// A partial header should not be consumed.
	msgs, consumed, err := Decode(v, f1[:2])
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.Zero(t, consumed)

	// Two frames and a trailing partial third.
	buf := append(append(append([]byte{}, f1...), f2...), f1[:1]...)
	msgs, consumed, err = Decode(v, buf)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, len(f1)+len(f2), consumed)
	require.EqualValues(t, 0x05, msgs[0].Command)
	require.EqualValues(t, 0x06, msgs[1].Command)
}

func TestDecodeReadsDeclaredSizeAndConsumesAlignmentPadding(t *testing.T) {
	// Header declares size = header(4) + payload(3) = 7, which isn't a
	// multiple of the 4-byte alignment, so one zero pad byte follows on
	// the wire. Decode must read exactly the 3-byte payload but consume
	// all 8 bytes.
	v := version.GC
	payload := []byte{9, 9, 9}
	raw := []byte{0x10, 0x00, byte(len(payload) + 4), 0x00}
	raw = append(raw, payload...)
	raw = append(raw, 0x00) // alignment padding

	msgs, consumed, err := Decode(v, raw)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, payload, msgs[0].Payload)
	require.Equal(t, len(raw), consumed)
}

func TestDecodeWaitsForAlignmentPadding(t *testing.T) {
	// Same declared frame as above, but the padding byte hasn't arrived
	// yet: Decode must not consume or emit anything.
	v := version.GC
	payload := []byte{9, 9, 9}
	raw := []byte{0x10, 0x00, byte(len(payload) + 4), 0x00}
	raw = append(raw, payload...)

	msgs, consumed, err := Decode(v, raw)
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.Zero(t, consumed)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	v := version.GC
	big := make([]byte, MaxPayloadFor(v)+1)
	_, err := Encode(v, 1, 0, big)
	require.Error(t, err)
}

func TestDecodeRejectsSizeSmallerThanHeader(t *testing.T) {
	v := version.BB
	raw := []byte{0x02, 0x00, 0, 0, 0, 0, 0, 0} // size=2 < header size 8
	_, _, err := Decode(v, raw)
	require.ErrorIs(t, err, ErrMalformedFrame)
}
