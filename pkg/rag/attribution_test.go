package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-docchat-be/pkg/store"
)

func lookupFrom(chunks map[string]string) func(string) (store.Chunk, bool) {
	return func(id string) (store.Chunk, bool) {
		text, ok := chunks[id]
		if !ok {
			return store.Chunk{}, false
		}
		return store.Chunk{ID: id, Text: text}, true
	}
}

func TestSplitAnswer(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantAnswer  string
		wantSources string
		wantFound   bool
	}{
		{
			name:        "marker present",
			raw:         "The answer is foo\nSOURCES: 0-pl, 2-pl",
			wantAnswer:  "The answer is foo",
			wantSources: "0-pl, 2-pl",
			wantFound:   true,
		},
		{
			name:       "no marker",
			raw:        "I don't know.",
			wantAnswer: "I don't know.",
			wantFound:  false,
		},
		{
			name:        "marker with empty field",
			raw:         "Answer\nSOURCES:",
			wantAnswer:  "Answer",
			wantSources: "",
			wantFound:   true,
		},
		{
			name:        "uses last marker",
			raw:         "SOURCES: is a literal I mention\nReal answer\nSOURCES: 1-pl",
			wantAnswer:  "SOURCES: is a literal I mention\nReal answer",
			wantSources: "1-pl",
			wantFound:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, sources, found := splitAnswer(tt.raw)
			assert.Equal(t, tt.wantAnswer, answer)
			assert.Equal(t, tt.wantSources, sources)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestAttributeResolvesKnownTags(t *testing.T) {
	lookup := lookupFrom(map[string]string{
		"0-pl": "first chunk text",
		"2-pl": "third chunk text",
	})

	attr := attribute("The answer is foo", "0-pl, 2-pl, 9-pl", lookup)

	assert.Equal(t, "The answer is foo\nSources: 0-pl, 2-pl", attr.AnswerText)
	assert.Equal(t, []string{"0-pl", "2-pl"}, attr.Sources)
	require.Len(t, attr.Evidence, 2)
	assert.Equal(t, "0-pl", attr.Evidence[0].Name)
	assert.Equal(t, "first chunk text", attr.Evidence[0].Text)
}

func TestAttributeNormalizesTags(t *testing.T) {
	lookup := lookupFrom(map[string]string{"1-pl": "text"})

	attr := attribute("Answer", "  1-pl. ", lookup)

	assert.Equal(t, []string{"1-pl"}, attr.Sources)
	assert.Equal(t, "Answer\nSources: 1-pl", attr.AnswerText)
}

func TestAttributeNoResolvableTags(t *testing.T) {
	lookup := lookupFrom(map[string]string{"0-pl": "text"})

	attr := attribute("Answer", "7-pl, 9-pl", lookup)

	assert.Equal(t, "Answer\nNo sources found", attr.AnswerText)
	assert.Empty(t, attr.Sources)
	assert.Empty(t, attr.Evidence)
}

func TestAttributeEmptyField(t *testing.T) {
	attr := attribute("Answer", "", lookupFrom(nil))
	assert.Equal(t, "Answer\nNo sources found", attr.AnswerText)
}
