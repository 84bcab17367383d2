package textsplit

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEdgeCases(t *testing.T) {
	assert.Empty(t, Split("", 100, 10))

	short := Split("hello world", 100, 10)
	require.Len(t, short, 1)
	assert.Equal(t, "hello world", short[0])

	exact := Split("abcde", 5, 2)
	require.Len(t, exact, 1)
	assert.Equal(t, "abcde", exact[0])
}

func TestSplitRespectsChunkSize(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)

	for _, size := range []int{20, 100, 1000} {
		chunks := Split(text, size, 10)
		for i, chunk := range chunks {
			assert.LessOrEqualf(t, len([]rune(chunk)), size, "chunk %d exceeds size %d", i, size)
		}
	}
}

func TestSplitReconstruction(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"prose", strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 40), 100, 10},
		{"paragraphs", strings.Repeat("First paragraph here.\n\nSecond one follows.\n", 30), 80, 15},
		{"no separators", randomLetters(997), 64, 8},
		{"unicode", strings.Repeat("héllo wörld — ünïcode tëxt. ", 60), 50, 7},
		{"tiny chunks", "abcdefghijklmnopqrstuvwxyz", 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, tt.size, tt.overlap)
			require.NotEmpty(t, chunks)

			var sb strings.Builder
			for i, chunk := range chunks {
				runes := []rune(chunk)
				if i == 0 {
					sb.WriteString(chunk)
					continue
				}
				require.GreaterOrEqual(t, len(runes), tt.overlap)
				sb.WriteString(string(runes[tt.overlap:]))
			}
			assert.Equal(t, tt.text, sb.String())
		})
	}
}

func TestSplitChunkCountWithoutBoundaries(t *testing.T) {
	// No natural breaks, so every cut lands exactly at chunkSize and the
	// count is ceil((L-overlap)/(size-overlap)).
	size, overlap := 64, 8
	for _, length := range []int{65, 100, 500, 997} {
		text := randomLetters(length)
		chunks := Split(text, size, overlap)
		want := (length - overlap + (size - overlap) - 1) / (size - overlap)
		assert.Equalf(t, want, len(chunks), "length %d", length)
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("Some body of text that will be split. ", 100)
	first := Split(text, 120, 12)
	second := Split(text, 120, 12)
	assert.Equal(t, first, second)
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	text := "Alpha section content here.\n\nBeta section content over there padding padding."
	chunks := Split(text, 40, 0)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"), "first chunk should end at the paragraph break, got %q", chunks[0])
}

func randomLetters(n int) string {
	rng := rand.New(rand.NewSource(42))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + rng.Intn(26))
	}
	return string(b)
}
