package storage

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Encoding identifies how a document's text was stored on disk. Documents are
// written back in the encoding they were read in.
type Encoding string

const (
	UTF8    Encoding = "utf-8"
	UTF8BOM Encoding = "utf-8-bom"
	UTF16LE Encoding = "utf-16le"
	UTF16BE Encoding = "utf-16be"
)

// ErrNotText is returned for content that is not text in a known encoding.
var ErrNotText = errors.New("not text in a known encoding")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

func utf16For(enc Encoding) encoding.Encoding {
	if enc == UTF16BE {
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	}
	return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
}

// Decode detects the encoding of raw from its byte-order mark (UTF-8 without a
// BOM otherwise) and returns the text.
func Decode(raw []byte) (string, Encoding, error) {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return decodeUTF8(raw[len(bomUTF8):], UTF8BOM)
	case bytes.HasPrefix(raw, bomUTF16LE), bytes.HasPrefix(raw, bomUTF16BE):
		enc := UTF16LE
		if bytes.HasPrefix(raw, bomUTF16BE) {
			enc = UTF16BE
		}
		if len(raw)%2 != 0 {
			return "", "", fmt.Errorf("%w: odd-length %s content", ErrNotText, enc)
		}
		out, err := utf16For(enc).NewDecoder().Bytes(raw)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrNotText, err)
		}
		return string(out), enc, nil
	default:
		return decodeUTF8(raw, UTF8)
	}
}

func decodeUTF8(b []byte, enc Encoding) (string, Encoding, error) {
	if !utf8.Valid(b) {
		return "", "", fmt.Errorf("%w: invalid utf-8", ErrNotText)
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return "", "", fmt.Errorf("%w: contains NUL bytes", ErrNotText)
	}
	return string(b), enc, nil
}

// Encode converts text back into the on-disk representation of enc.
func Encode(text string, enc Encoding) ([]byte, error) {
	switch enc {
	case "", UTF8:
		return []byte(text), nil
	case UTF8BOM:
		return append(append([]byte{}, bomUTF8...), text...), nil
	case UTF16LE, UTF16BE:
		e := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
		if enc == UTF16BE {
			e = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
		}
		return e.NewEncoder().Bytes([]byte(text))
	default:
		return nil, fmt.Errorf("storage: unknown encoding %q", enc)
	}
}
