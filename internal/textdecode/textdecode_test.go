package textdecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeASCIIFastPath(t *testing.T) {
	raw := append([]byte("Ash"), 0, 'j', 'u', 'n', 'k')
	require.Equal(t, "Ash", Decode(LanguageEnglish, raw))
}

func TestEncodeDecodeRoundTripShiftJIS(t *testing.T) {
	name := "レッド" // "Red" in katakana
	encoded := Encode(LanguageJapanese, name)
	require.NotEqual(t, []byte(name), encoded[:len(encoded)-1])
	decoded := Decode(LanguageJapanese, encoded)
	require.Equal(t, name, decoded)
}

func TestEncodeDecodeRoundTripBig5(t *testing.T) {
	name := "紅色" // "red" in traditional Chinese
	encoded := Encode(LanguageChineseTraditional, name)
	decoded := Decode(LanguageChineseTraditional, encoded)
	require.Equal(t, name, decoded)
}

func TestEncodeFixedPadsAndTruncates(t *testing.T) {
	padded := EncodeFixed(LanguageEnglish, "Ash", 8)
	require.Len(t, padded, 8)
	require.Equal(t, "Ash", Decode(LanguageEnglish, padded))

	truncated := EncodeFixed(LanguageEnglish, "LongerThanField", 4)
	require.Len(t, truncated, 4)
	require.Equal(t, byte(0), truncated[3])
}
