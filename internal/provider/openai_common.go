package provider

import (
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// toOpenAIMessages maps the prompt onto chat completion messages. System
// messages are folded into one leading message, since compatible endpoints
// reject system text after the first turn.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	system, turns := splitSystem(messages)

	out := make([]openai.ChatCompletionMessage, 0, len(turns)+2)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range turns {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	// A system prompt needs at least one turn after it.
	if system != "" && len(turns) == 0 {
		log.Debug().Msg("Prompt has only system text, adding a user turn")
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: "Begin."})
	}
	return out
}
