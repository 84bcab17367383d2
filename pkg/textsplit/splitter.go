// Package textsplit splits long text into overlapping fixed-size chunks
// for embedding. Chunks are contiguous rune windows: each chunk starts
// exactly `overlap` runes before the previous chunk ended, so stitching
// chunks back together with the overlap removed reproduces the input.
package textsplit

import (
	"strings"
	"unicode/utf8"
)

// boundaryClasses orders the preferred break points: paragraph first,
// then line, then sentence, then word. Character position is the fallback.
var boundaryClasses = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{" "},
}

// Split cuts text into chunks of at most chunkSize runes with roughly
// `overlap` shared runes between neighbors. Deterministic for identical
// input. Empty text yields no chunks; text shorter than chunkSize yields
// exactly one.
func Split(text string, chunkSize, overlap int) []string {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0 // fallback if overlap >= chunkSize
	}

	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}
	if total <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		limit := start + chunkSize
		if limit >= total {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		// The break must land past start+overlap so the next window
		// advances by at least one rune.
		end := breakPoint(runes, start+overlap+1, limit)
		chunks = append(chunks, string(runes[start:end]))
		start = end - overlap
	}
	return chunks
}

// breakPoint picks the cut position in (min, max]: the last natural
// boundary of the highest-priority class found in the window, else max.
func breakPoint(runes []rune, min, max int) int {
	if min < 1 {
		min = 1
	}
	if min >= max {
		return max
	}

	window := string(runes[min:max])
	for _, class := range boundaryClasses {
		best := -1
		for _, sep := range class {
			idx := strings.LastIndex(window, sep)
			if idx < 0 {
				continue
			}
			pos := min + utf8.RuneCountInString(window[:idx]) + utf8.RuneCountInString(sep)
			if pos > best {
				best = pos
			}
		}
		if best > 0 {
			return best
		}
	}
	return max
}
