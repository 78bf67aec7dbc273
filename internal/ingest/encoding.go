package ingest

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectEncoding resolves raw bytes to UTF-8 text, trying encodings in a
// fixed order: UTF-8 with BOM, UTF-8, Latin-1, Windows-1252, ASCII. The
// returned name is recorded in the audit log.
func DetectEncoding(data []byte) (text []byte, encoding string) {
	if bytes.HasPrefix(data, utf8BOM) {
		return bytes.TrimPrefix(data, utf8BOM), "utf-8-sig"
	}
	if utf8.Valid(data) {
		if isASCII(data) {
			return data, "ascii"
		}
		return data, "utf-8"
	}
	// Latin-1 decodes any byte sequence; Windows-1252 is preferred when the
	// data uses the 0x80-0x9F range Latin-1 reserves for control characters.
	if hasWindows1252Range(data) {
		if decoded, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
			return decoded, "windows-1252"
		}
	}
	if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
		return decoded, "latin-1"
	}
	return data, "utf-8"
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b > 0x7F {
			return false
		}
	}
	return true
}

func hasWindows1252Range(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 && b <= 0x9F {
			return true
		}
	}
	return false
}
