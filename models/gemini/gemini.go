package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Desarso/tripwise/models"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

const (
	roleUser  = "user"
	roleModel = "model"
)

// Gemini_Model implements the Model interface on the Gemini API.
type Gemini_Model struct {
	Model  string
	Client *genai.Client
	Logger *log.Logger
}

func NewGeminiModel(ctx context.Context, apiKey, model string) (*Gemini_Model, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini_Model{
		Model:  model,
		Client: client,
		Logger: log.New(os.Stdout, "[gemini] ", log.LstdFlags),
	}, nil
}

// Model_Request implements the Model interface
func (g *Gemini_Model) Model_Request(ctx context.Context, conversation []models.Message, tools []models.FunctionDeclaration) (models.Model_Response, error) {
	system, contents, err := ConvertConversation(conversation)
	if err != nil {
		return models.Model_Response{}, err
	}

	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if len(tools) > 0 {
		config.Tools = ConvertTools(tools)
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		}
	}

	start := time.Now()
	result, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, config)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("gemini request failed: %w", err)
	}
	if g.Logger != nil {
		g.Logger.Printf("GenerateContent in %v", time.Since(start))
	}
	return ToModelResponse(result)
}

// ConvertTools wraps every declaration into a single Gemini tool.
func ConvertTools(fds []models.FunctionDeclaration) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(fds))
	for _, fd := range fds {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 fd.Name,
			Description:          fd.Description,
			ParametersJsonSchema: fd.Parameters,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ConvertConversation splits the conversation into a system instruction
// (system and developer messages) and Gemini contents. Consecutive tool
// results are grouped into one user turn.
func ConvertConversation(conversation []models.Message) (*genai.Content, []*genai.Content, error) {
	var instructions []string
	var contents []*genai.Content

	for _, m := range conversation {
		switch m.Role {
		case models.RoleSystem, models.RoleDeveloper:
			if strings.TrimSpace(m.Content) != "" {
				instructions = append(instructions, m.Content)
			}

		case models.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  roleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})

		case models.RoleAssistant:
			content := &genai.Content{Role: roleModel}
			if m.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
			}
			for _, call := range m.ToolCalls {
				args := map[string]any{}
				if strings.TrimSpace(call.Arguments) != "" {
					if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
						return nil, nil, fmt.Errorf("tool call %s has invalid arguments: %w", call.ID, err)
					}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: args},
				})
			}
			contents = append(contents, content)

		case models.RoleTool:
			var output any
			if err := json.Unmarshal([]byte(m.Content), &output); err != nil {
				output = m.Content
			}
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.Name,
				Response: map[string]any{"output": output},
			}}
			last := len(contents) - 1
			if last >= 0 && contents[last].Role == roleUser && isFunctionResponses(contents[last]) {
				contents[last].Parts = append(contents[last].Parts, part)
			} else {
				contents = append(contents, &genai.Content{Role: roleUser, Parts: []*genai.Part{part}})
			}

		default:
			return nil, nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	var system *genai.Content
	if len(instructions) > 0 {
		system = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(instructions, "\n\n")}}}
	}
	return system, contents, nil
}

func isFunctionResponses(c *genai.Content) bool {
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return len(c.Parts) > 0
}

// ToModelResponse converts the first candidate into a Model_Response.
func ToModelResponse(result *genai.GenerateContentResponse) (models.Model_Response, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return models.Model_Response{}, fmt.Errorf("gemini returned no candidates")
	}

	modelResponse := models.Model_Response{}
	for _, part := range result.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			text := part.Text
			modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{Text: &text})
		}
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			argsJSON, err := json.Marshal(args)
			if err != nil {
				return models.Model_Response{}, fmt.Errorf("failed to encode arguments of %s: %w", part.FunctionCall.Name, err)
			}
			modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{
				FunctionCall: &models.FunctionCall{
					ID:        part.FunctionCall.ID,
					Name:      part.FunctionCall.Name,
					Arguments: string(argsJSON),
				},
			})
		}
	}
	return modelResponse, nil
}
