package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// utf16ToByteOffset converts a UTF-16 character offset within a line to a
// byte offset. Offsets past the end of the line clamp to its length.
func utf16ToByteOffset(line string, utf16Offset int) int {
	u16 := 0
	byteOffset := 0
	for byteOffset < len(line) && u16 < utf16Offset {
		r, size := utf8.DecodeRuneInString(line[byteOffset:])
		u16 += runeLen16(r, size)
		byteOffset += size
	}
	return byteOffset
}

// byteToUTF16Offset converts a byte offset within a line to UTF-16 code units
func byteToUTF16Offset(line string, byteOffset int) int {
	if byteOffset > len(line) {
		byteOffset = len(line)
	}
	u16 := 0
	for i := 0; i < byteOffset; {
		r, size := utf8.DecodeRuneInString(line[i:])
		u16 += runeLen16(r, size)
		i += size
	}
	return u16
}

func runeLen16(r rune, size int) int {
	if r == utf8.RuneError && size == 1 {
		return 1
	}
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// positionAt converts a byte offset in text to an LSP position
func positionAt(text string, offset int) Position {
	offset = max(0, min(offset, len(text)))

	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	line := strings.Count(text[:lineStart], "\n")
	return Position{
		Line:      uint32(line),
		Character: uint32(byteToUTF16Offset(text[lineStart:offset], offset-lineStart)),
	}
}
