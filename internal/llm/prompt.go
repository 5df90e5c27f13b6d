package llm

import (
	"strings"

	"github.com/Rrens/groqchat/internal/domain"
)

// SplitSystem separates the system preamble from the conversational turns.
// Providers with a dedicated system field (Anthropic, Gemini) use this.
// Multiple system messages are joined with a blank line.
func SplitSystem(messages []domain.Message) (string, []domain.Message) {
	var system []string
	turns := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			if m.Content != "" {
				system = append(system, m.Content)
			}
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}

// CleanReply trims surrounding whitespace from model output
func CleanReply(content string) string {
	return strings.TrimSpace(content)
}
