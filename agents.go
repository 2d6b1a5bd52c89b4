package tripwise

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Desarso/tripwise/models"
)

// Model is a chat-completion backend able to request tool calls.
type Model interface {
	Model_Request(ctx context.Context, conversation []models.Message, tools []models.FunctionDeclaration) (models.Model_Response, error)
}

type Agent struct {
	Model Model
	Tools []models.FunctionDeclaration
}

func Create_Agent(model Model, tools []models.FunctionDeclaration) Agent {
	return Agent{
		Model: model,
		Tools: tools,
	}
}

func (agent *Agent) Run(ctx context.Context, conversation []models.Message) (models.Model_Response, error) {
	return agent.Model.Model_Request(ctx, conversation, agent.Tools)
}

// ExecuteTool decodes the model-supplied arguments and runs the named tool.
// An unknown tool is not an error: it produces an {"error": ...} result so the
// model can see what happened. Malformed arguments are a *models.ClientError.
func (agent *Agent) ExecuteTool(ctx context.Context, functionName string, rawArgs string) (interface{}, error) {
	args, err := DecodeArguments(rawArgs)
	if err != nil {
		return nil, err
	}

	for _, tool := range agent.Tools {
		if tool.Name != functionName {
			continue
		}
		if tool.Callable == nil {
			return nil, fmt.Errorf("internal error: tool '%s' is not callable", functionName)
		}
		return tool.Callable(ctx, args)
	}

	return map[string]interface{}{"error": "Unknown tool " + functionName}, nil
}

// DecodeArguments parses a JSON-encoded argument object. Blank input is an
// empty object; anything else that is not a JSON object is a client error.
func DecodeArguments(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &models.ClientError{Message: "invalid tool arguments", Err: err}
	}
	if args == nil {
		return nil, &models.ClientError{Message: "invalid tool arguments: expected a JSON object"}
	}
	return args, nil
}
