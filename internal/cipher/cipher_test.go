package cipher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzpoint/psoserver/internal/version"
)

func TestRoundTripAllVersions(t *testing.T) {
	versions := []version.Version{
		version.DCNTE, version.DCV1, version.DCV2,
		version.PCV2,
		version.GCNTE, version.GC, version.GCEp3NTE, version.GCEp3, version.XB,
		version.BB,
	}

	for _, v := range versions {
		v := v
		t.Run(v.String(), func(t *testing.T) {
			key := make([]byte, KeySize(v))
			for i := range key {
				key[i] = byte(i*7 + 3)
			}

			enc, err := NewStream(v, key)
			require.NoError(t, err)
			dec, err := NewStream(v, key)
			require.NoError(t, err)

			plaintext := make([]byte, 64)
			for i := range plaintext {
				plaintext[i] = byte(i)
			}

			buf := append([]byte(nil), plaintext...)
			enc.Encrypt(buf)
			require.NotEqual(t, plaintext, buf)

			dec.Decrypt(buf)
			require.Equal(t, plaintext, buf)
		})
	}
}

func TestKeystreamsMatchForSameKey(t *testing.T) {
	key := []byte{0x11, 0x22, 0x33, 0x44}
	a, err := NewStream(version.PCV2, key)
	require.NoError(t, err)
	b, err := NewStream(version.PCV2, key)
	require.NoError(t, err)

	p1 := make([]byte, 32)
	p2 := make([]byte, 32)
	a.Encrypt(p1)
	b.Encrypt(p2)
	require.Equal(t, p1, p2)
}

func TestWrongKeySizeRejected(t *testing.T) {
	_, err := NewStream(version.BB, []byte{1, 2, 3, 4})
	require.Error(t, err)
}
