package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxContextChars is the hard cap on research context inserted into the
// system prompt. Content past this offset is dropped, not summarized.
const MaxContextChars = 20000

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn handed to the completion API.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

const systemTemplate = `You are a helpful research assistant.
Research Method Used: %s

Context:
%s

Use the context above to answer the user's request.`

// TruncateContext enforces the context cap. The cut never splits a
// multibyte rune, so the prompt stays valid UTF-8.
func TruncateContext(context string) string {
	if len(context) <= MaxContextChars {
		return context
	}
	cut := MaxContextChars
	for cut > 0 && !utf8.RuneStart(context[cut]) {
		cut--
	}
	return context[:cut]
}

// BuildPrompt assembles the fixed completion template: a system message
// naming the research method and embedding the capped context, followed by
// the prior non-system history in original order, followed by the new user
// message.
func BuildPrompt(history []Message, userText, method, context string) []Message {
	msgs := make([]Message, 0, len(history)+2)

	msgs = append(msgs, Message{
		Role:    RoleSystem,
		Content: fmt.Sprintf(systemTemplate, strings.ToUpper(method), TruncateContext(context)),
	})

	for _, m := range history {
		if m.Role == RoleSystem {
			continue
		}
		msgs = append(msgs, m)
	}

	msgs = append(msgs, Message{Role: RoleUser, Content: userText})
	return msgs
}
