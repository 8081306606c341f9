package buffer

import (
	"unicode/utf16"
	"unicode/utf8"
)

// TextSummaryOf computes the exact TextSummary of a byte slice.
func TextSummaryOf(content []byte) TextSummary {
	var sum TextSummary
	sum.Bytes = len(content)

	rowStart := 0
	row := uint32(0)
	utf16Col := uint32(0)
	for i := 0; i < len(content); {
		if content[i] == '\n' {
			rowLen := uint32(i - rowStart)
			if rowLen >= sum.LongestRowLen {
				sum.LongestRow, sum.LongestRowLen = row, rowLen
			}
			row++
			rowStart = i + 1
			utf16Col = 0
			i++
			continue
		}
		r, size := utf8.DecodeRune(content[i:])
		if n := utf16.RuneLen(r); n > 0 {
			utf16Col += uint32(n)
		} else {
			utf16Col++
		}
		i += size
	}

	lastRowLen := uint32(len(content) - rowStart)
	if lastRowLen >= sum.LongestRowLen {
		sum.LongestRow, sum.LongestRowLen = row, lastRowLen
	}

	sum.Lines = Point{Row: row, Column: uint32(len(content) - rowStart)}
	sum.LinesUTF16 = PointUTF16{Row: row, Column: utf16Col}
	return sum
}
