package attachments

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// cutAtRuneBoundary truncates at max bytes without splitting a multibyte
// rune; prompts must stay valid UTF-8.
func cutAtRuneBoundary(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

const (
	// maxCharsPerFile clamps each attached file independently.
	maxCharsPerFile = 40_000
	// maxCharsAggregate clamps the whole attachment section.
	maxCharsAggregate = 120_000

	sectionHeader   = "--- ATTACHED FILES ---"
	fileTruncNote   = "\n[... file truncated ...]"
	sectionOmitNote = "\n[... remaining attachments omitted: aggregate size limit reached ...]"
)

// File is one extracted attachment ready for prompt embedding.
type File struct {
	Name string
	Text string
}

// BuildQueryText appends the attachment section to the user question. Each
// file is clamped independently, and the whole section is clamped again with
// a visible omission note if the aggregate limit lands mid-file. The engine
// downstream sees only this final text.
func BuildQueryText(question string, files []File) string {
	if len(files) == 0 {
		return question
	}

	var section strings.Builder
	for _, f := range files {
		text := f.Text
		if len(text) > maxCharsPerFile {
			text = cutAtRuneBoundary(text, maxCharsPerFile) + fileTruncNote
		}
		block := fmt.Sprintf("### %s\n```\n%s\n```\n\n", f.Name, text)

		if section.Len()+len(block) > maxCharsAggregate {
			remaining := maxCharsAggregate - section.Len()
			if remaining > 0 {
				section.WriteString(cutAtRuneBoundary(block, remaining))
			}
			section.WriteString(sectionOmitNote)
			break
		}
		section.WriteString(block)
	}

	return question + "\n\n" + sectionHeader + "\n" + strings.TrimRight(section.String(), "\n") + "\n"
}
