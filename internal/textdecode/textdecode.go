// Package textdecode converts the fixed-width, NUL-terminated name and
// text fields the wire protocol carries (player names, Guild Card
// comments, quest text tables) between their wire encoding and UTF-8
// (spec.md §3 glossary: "last-seen player name", SPEC_FULL.md §2). Which
// wire encoding applies is keyed on the client's reported language byte,
// the same convention the L1J-Go reference keys its packet string fields
// on a fixed regional charset (internal/net/packet.ReadS/WriteS, MS950).
package textdecode

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Language byte values as reported in session.Client.Language (spec.md §3
// table; retail's fixed 8-value language enum).
const (
	LanguageJapanese Language = iota
	LanguageEnglish
	LanguageGerman
	LanguageFrench
	LanguageSpanish
	LanguageChineseSimplified
	LanguageChineseTraditional
	LanguageKorean
)

// Language identifies which wire charset a text field uses.
type Language uint8

// charsetFor returns the x/text Encoding for lang, or nil for the
// languages whose wire charset is a strict ASCII/Latin-1 subset that
// needs no conversion.
func charsetFor(lang Language) encoding.Encoding {
	switch lang {
	case LanguageJapanese:
		return japanese.ShiftJIS
	case LanguageChineseSimplified, LanguageChineseTraditional:
		return traditionalchinese.Big5
	default:
		return nil
	}
}

// Decode converts a NUL-terminated wire byte string in lang's charset to
// UTF-8. Truncates at the first NUL; a conversion failure falls back to
// the raw bytes rather than erroring, since a single corrupt name field
// shouldn't fail whatever command carries it.
func Decode(lang Language, raw []byte) string {
	raw = cString(raw)
	cs := charsetFor(lang)
	if cs == nil {
		return string(raw)
	}
	out, err := cs.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// Encode converts s to lang's wire charset and appends a NUL terminator.
// Falls back to the raw UTF-8 bytes if the charset can't represent s.
func Encode(lang Language, s string) []byte {
	cs := charsetFor(lang)
	var buf []byte
	if cs == nil {
		buf = []byte(s)
	} else {
		encoded, err := cs.NewEncoder().Bytes([]byte(s))
		if err != nil {
			buf = []byte(s)
		} else {
			buf = encoded
		}
	}
	return append(buf, 0)
}

// EncodeFixed is Encode padded (or truncated) to exactly width bytes,
// including its NUL terminator — the shape every fixed-width wire name
// field needs.
func EncodeFixed(lang Language, s string, width int) []byte {
	buf := Encode(lang, s)
	if len(buf) > width {
		buf = buf[:width]
		buf[width-1] = 0
		return buf
	}
	out := make([]byte, width)
	copy(out, buf)
	return out
}

func cString(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
