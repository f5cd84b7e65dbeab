package prompt

import (
	"strings"

	"ragchat/internal/domain"
)

const (
	framing = "You are a helpful AI assistant. Use the context and conversation history to answer."

	// NoContextMarker replaces the context section when the session has no
	// grounding text, so the model and the user both see explicitly that no
	// documents back the reply.
	NoContextMarker = "No documents uploaded yet."

	// NoHistoryMarker replaces the history section on a fresh conversation.
	NoHistoryMarker = "None"
)

// Render assembles the generation prompt from retrieved context, bounded
// conversation history (oldest first) and the new user message. It is pure
// and deterministic; inputs are assumed pre-bounded by the retriever and
// conversation store.
func Render(contextText string, history []domain.Message, userMessage string) string {
	var b strings.Builder
	b.WriteString(framing)
	b.WriteString("\n\n")
	if contextText != "" {
		b.WriteString("Document Context:\n")
		b.WriteString(contextText)
		b.WriteString("\n")
	} else {
		b.WriteString(NoContextMarker)
	}
	b.WriteString("\n\nConversation History:\n")
	b.WriteString(HistoryLines(history))
	b.WriteString("\n\nUser: ")
	b.WriteString(userMessage)
	b.WriteString("\nAssistant:")
	return b.String()
}

// HistoryLines renders history as chronological "role: content" lines, or
// the no-history marker when empty.
func HistoryLines(history []domain.Message) string {
	if len(history) == 0 {
		return NoHistoryMarker
	}
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = string(m.Role) + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}
