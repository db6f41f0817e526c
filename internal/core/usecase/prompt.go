package usecase

import (
	"fmt"
	"strings"

	"github.com/unimate/docqa/internal/core/domain"
)

const promptInstruction = `Use the context to answer the question.
Answer clearly based on the context. If the context is insufficient, say you don't know.`

// PromptBuilder assembles the generation prompt from the question and its
// retrieved passages, bounded by a rune budget. The question and the
// instruction are always included in full; passages fill whatever budget
// remains, best-ranked first, with the overflowing passage trimmed and the
// rest dropped. Identical inputs always yield the identical prompt.
type PromptBuilder struct {
	charBudget int
}

func NewPromptBuilder(charBudget int) *PromptBuilder {
	if charBudget <= 0 {
		charBudget = 6000
	}
	return &PromptBuilder{charBudget: charBudget}
}

func (b *PromptBuilder) Build(question string, result domain.RetrievalResult) string {
	var out strings.Builder
	out.WriteString(promptInstruction)
	out.WriteString("\n\nQuestion:\n")
	out.WriteString(question)
	out.WriteString("\n\nContext:\n")

	remaining := b.charBudget - runeLen(out.String())

	for i, passage := range result.Passages {
		header := fmt.Sprintf("[%d] source=%s\n", i+1, passage.Source)
		block := header + passage.Text + "\n\n"

		if cost := runeLen(block); cost <= remaining {
			out.WriteString(block)
			remaining -= cost
			continue
		}

		// Trim this passage to the leftover budget; anything ranked below
		// it is dropped entirely.
		room := remaining - runeLen(header) - 2
		if room > 0 {
			runes := []rune(passage.Text)
			if room < len(runes) {
				out.WriteString(header)
				out.WriteString(string(runes[:room]))
				out.WriteString("\n\n")
			}
		}
		break
	}

	out.WriteString("Answer:")
	return out.String()
}

func runeLen(s string) int {
	return len([]rune(s))
}
