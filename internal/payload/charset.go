package payload

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding is a detected text encoding
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1250 Encoding = "windows-1250"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectEncoding detects the encoding of a byte buffer. Anything that is not valid UTF-8
// is treated as Windows-1250.
func DetectEncoding(data []byte) Encoding {
	if bytes.HasPrefix(data, utf8BOM) || utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingWindows1250
}

// ToUTF8 strips a UTF-8 BOM or decodes Windows-1250 input, returning UTF-8 bytes
func ToUTF8(data []byte) ([]byte, Encoding, error) {
	enc := DetectEncoding(data)
	if enc == EncodingUTF8 {
		return bytes.TrimPrefix(data, utf8BOM), enc, nil
	}

	decoded, err := charmap.Windows1250.NewDecoder().Bytes(data)
	if err != nil {
		return nil, enc, fmt.Errorf("failed to decode %s: %w", enc, err)
	}
	return decoded, enc, nil
}
