package sessions

import (
	"context"
	"log"

	"github.com/Desarso/tripwise/models"
)

// AgentError represents errors that can occur during agent operations
type AgentError struct {
	Message string
	Err     error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// AgentInterface defines the interface that agents must implement
type AgentInterface interface {
	Run(ctx context.Context, conversation []models.Message) (models.Model_Response, error)
	ExecuteTool(ctx context.Context, name string, rawArgs string) (interface{}, error)
}

// ExchangeRecorder receives every completed exchange. Implemented by the stores package.
type ExchangeRecorder interface {
	RecordExchange(ctx context.Context, message string, response models.ChatResponse, toolRounds int) (string, error)
}

// ChatSession drives one user message to a final answer through the model's
// tool-calling loop. It holds no per-request state and is safe for concurrent use.
type ChatSession struct {
	Agent           AgentInterface
	SystemPrompt    string
	DeveloperPrompt string
	MaxToolRounds   int
	Recorder        ExchangeRecorder // Optional: audit log of exchanges
	Logger          *log.Logger
}
