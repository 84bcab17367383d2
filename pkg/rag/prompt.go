package rag

import (
	"fmt"
	"strings"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/store"
)

// buildGroundedPrompt assembles the two-message grounding prompt: the
// system directive with the retrieved chunks inlined (each labeled with
// its source tag), then the user question.
func buildGroundedPrompt(retrieved []store.Chunk, question string) []llm.Message {
	var summaries strings.Builder
	for i, chunk := range retrieved {
		if i > 0 {
			summaries.WriteString("\n\n")
		}
		summaries.WriteString(fmt.Sprintf("Content: %s\nSource: %s", chunk.Text, chunk.ID))
	}

	return []llm.Message{
		{Role: constant.ChatMessageRoleSystem, Content: constant.GroundedSystemTemplate + summaries.String()},
		{Role: constant.ChatMessageRoleUser, Content: question},
	}
}
