// Package encoding provides text decoding for decompiler output.
package encoding

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeText converts text that may start with a UTF-8 or UTF-16 byte order
// mark to a UTF-8 string without the mark. Text without a BOM is treated as
// UTF-8. Returns the original bytes as a string if decoding fails.
func DecodeText(data []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}
