package tripwise

import (
	"github.com/Desarso/tripwise/sessions"
)

// Re-export the session type so callers only need the root package
type ChatSession = sessions.ChatSession

// NewChatSession wires an agent and the loaded prompts into a ChatSession
// honoring the configured tool-round cap.
func NewChatSession(agent *Agent, prompts Prompts, cfg *Config) *ChatSession {
	session := sessions.NewChatSession(agent, prompts.System, prompts.Developer)
	if cfg != nil && cfg.MaxToolRounds > 0 {
		session.MaxToolRounds = cfg.MaxToolRounds
	}
	return session
}
