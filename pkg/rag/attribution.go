package rag

import (
	"strings"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/pkg/store"
)

// Attribution is the answer text with its sources line appended, plus the
// resolved chunk texts as inspectable evidence.
type Attribution struct {
	AnswerText string
	Sources    []string
	Evidence   []store.Evidence
}

// splitAnswer separates the raw model output into the answer body and the
// comma-separated sources field following the last "SOURCES:" marker.
func splitAnswer(raw string) (answer, sourcesField string, found bool) {
	idx := strings.LastIndex(raw, constant.SourcesMarker)
	if idx < 0 {
		return strings.TrimSpace(raw), "", false
	}
	answer = strings.TrimSpace(raw[:idx])
	sourcesField = strings.TrimSpace(raw[idx+len(constant.SourcesMarker):])
	return answer, sourcesField, true
}

// attribute resolves each listed source tag against the session's chunk
// records. Tags are normalized (whitespace trimmed, one trailing period
// stripped); unresolvable tags are silently dropped. With at least one
// resolved tag the answer gains a "Sources: a, b" line and the chunk
// texts as evidence; with none it gains the fixed no-sources notice.
func attribute(answer, sourcesField string, lookup func(id string) (store.Chunk, bool)) Attribution {
	var found []string
	var evidence []store.Evidence

	for _, tag := range strings.Split(sourcesField, ",") {
		name := normalizeTag(tag)
		if name == "" {
			continue
		}
		chunk, ok := lookup(name)
		if !ok {
			continue
		}
		found = append(found, name)
		evidence = append(evidence, store.Evidence{Name: name, Text: chunk.Text})
	}

	if len(found) == 0 {
		return Attribution{AnswerText: answer + "\n" + constant.NoSourcesNotice}
	}
	return Attribution{
		AnswerText: answer + "\n" + constant.SourcesPrefix + strings.Join(found, ", "),
		Sources:    found,
		Evidence:   evidence,
	}
}

func normalizeTag(tag string) string {
	return strings.TrimSuffix(strings.TrimSpace(tag), ".")
}
