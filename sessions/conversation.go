package sessions

import (
	"fmt"

	"github.com/Desarso/tripwise/models"
)

// Conversation is the append-only message list of one chat exchange.
//
// It enforces a valid turn structure for chat-completion APIs:
//   - every tool message answers a tool call made by an earlier assistant message
//   - a tool call is answered at most once
type Conversation struct {
	messages []models.Message
	pending  map[string]bool // tool call ids awaiting a tool message
	answered map[string]bool
}

func NewConversation(systemPrompt, developerPrompt, userMessage string) *Conversation {
	c := &Conversation{
		pending:  make(map[string]bool),
		answered: make(map[string]bool),
	}
	c.messages = append(c.messages,
		models.Message{Role: models.RoleSystem, Content: systemPrompt},
		models.Message{Role: models.RoleDeveloper, Content: developerPrompt},
		models.Message{Role: models.RoleUser, Content: userMessage},
	)
	return c
}

// Messages returns a copy of the conversation so far.
func (c *Conversation) Messages() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// AppendToolCalls records the assistant turn that requested calls.
func (c *Conversation) AppendToolCalls(content string, calls []models.FunctionCall) error {
	seen := make(map[string]bool, len(calls))
	for _, call := range calls {
		if call.ID == "" {
			return fmt.Errorf("tool call %q has no id", call.Name)
		}
		if seen[call.ID] || c.pending[call.ID] || c.answered[call.ID] {
			return fmt.Errorf("duplicate tool call id %q", call.ID)
		}
		seen[call.ID] = true
	}
	for _, call := range calls {
		c.pending[call.ID] = true
	}
	c.messages = append(c.messages, models.Message{
		Role:      models.RoleAssistant,
		Content:   content,
		ToolCalls: append([]models.FunctionCall(nil), calls...),
	})
	return nil
}

// AppendToolResult answers a pending tool call with its JSON-encoded result.
func (c *Conversation) AppendToolResult(callID, name, content string) error {
	if !c.pending[callID] {
		if c.answered[callID] {
			return fmt.Errorf("tool call %q already answered", callID)
		}
		return fmt.Errorf("tool result references unknown tool call %q", callID)
	}
	delete(c.pending, callID)
	c.answered[callID] = true
	c.messages = append(c.messages, models.Message{
		Role:       models.RoleTool,
		Name:       name,
		Content:    content,
		ToolCallID: callID,
	})
	return nil
}
