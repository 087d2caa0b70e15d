// Package encoding provides strict EUC-KR text conversion for ROSE Online
// file formats.
package encoding

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// ErrBadEncoding reports text that cannot be represented in EUC-KR.
var ErrBadEncoding = errors.New("text not representable in EUC-KR")

// DecodeEUCKR converts EUC-KR encoded bytes to a UTF-8 string.
// Invalid byte sequences are an error, never silently replaced: the game
// client rejects such files and the codec must match it.
func DecodeEUCKR(data []byte) (string, error) {
	decoder := korean.EUCKR.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	// The x/text decoder substitutes U+FFFD for bytes outside the code page
	// instead of failing. EUC-KR has no encoding for U+FFFD, so its presence
	// in the output always means the input was invalid.
	if strings.ContainsRune(string(result), utf8.RuneError) {
		return "", fmt.Errorf("%w: invalid EUC-KR byte sequence", ErrBadEncoding)
	}
	return string(result), nil
}

// EncodeEUCKR converts a UTF-8 string to EUC-KR encoded bytes.
func EncodeEUCKR(s string) ([]byte, error) {
	encoder := korean.EUCKR.NewEncoder()
	result, _, err := transform.Bytes(encoder, []byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadEncoding, s)
	}
	return result, nil
}
