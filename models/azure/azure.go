package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Desarso/tripwise/models"
)

const (
	DefaultAPIVersion = "2024-05-01-preview"
	DefaultTimeout    = 120 * time.Second
)

// Azure_Model implements the Model interface against an Azure OpenAI deployment.
type Azure_Model struct {
	Endpoint    string // e.g. https://my-resource.openai.azure.com
	APIKey      string
	Deployment  string
	APIVersion  string
	Temperature *float64
	MaxTokens   *int
	Client      *http.Client
	Logger      *log.Logger
}

func NewAzureModel(endpoint, apiKey, deployment, apiVersion string) *Azure_Model {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Azure_Model{
		Endpoint:   strings.TrimRight(endpoint, "/"),
		APIKey:     apiKey,
		Deployment: deployment,
		APIVersion: apiVersion,
		Client:     &http.Client{Timeout: DefaultTimeout},
		Logger:     log.New(os.Stdout, "[azure] ", log.LstdFlags),
	}
}

// Model_Request implements the Model interface
func (a *Azure_Model) Model_Request(ctx context.Context, conversation []models.Message, tools []models.FunctionDeclaration) (models.Model_Response, error) {
	if len(conversation) == 0 {
		return models.Model_Response{}, fmt.Errorf("conversation must not be empty")
	}

	response, err := a.makeRequest(ctx, a.createRequest(conversation, tools))
	if err != nil {
		return models.Model_Response{}, err
	}
	return toModelResponse(response)
}

// CompletionsURL is the chat-completions URL of the configured deployment.
func (a *Azure_Model) CompletionsURL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(a.Endpoint, "/"), url.PathEscape(a.Deployment), url.QueryEscape(a.APIVersion))
}

func (a *Azure_Model) createRequest(conversation []models.Message, tools []models.FunctionDeclaration) ChatCompletionRequest {
	req := ChatCompletionRequest{
		Messages:    ConvertMessages(conversation),
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
	}
	if len(tools) > 0 {
		req.Tools = ConvertTools(tools)
		req.ToolChoice = "auto"
	}
	return req
}

// ConvertMessages maps the conversation onto chat-completions messages.
// An assistant turn that only carries tool calls is sent without content.
func ConvertMessages(conversation []models.Message) []Message {
	out := make([]Message, 0, len(conversation))
	for _, m := range conversation {
		msg := Message{Role: m.Role}
		if m.Content != "" || len(m.ToolCalls) == 0 {
			content := m.Content
			msg.Content = &content
		}
		if m.Name != "" {
			name := m.Name
			msg.Name = &name
		}
		if m.ToolCallID != "" {
			id := m.ToolCallID
			msg.ToolCallID = &id
		}
		for _, call := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   call.ID,
				Type: "function",
				Function: ToolCallFunction{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func (a *Azure_Model) makeRequest(ctx context.Context, requestBody ChatCompletionRequest) (ChatCompletionResponse, error) {
	jsonBytes, err := json.Marshal(requestBody)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.CompletionsURL(), bytes.NewReader(jsonBytes))
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.APIKey)

	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return ChatCompletionResponse{}, fmt.Errorf("azure openai API error (status %d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return ChatCompletionResponse{}, fmt.Errorf("azure openai API error (status %d): %s", resp.StatusCode, string(body))
	}

	var completion ChatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if a.Logger != nil {
		if completion.Usage != nil {
			a.Logger.Printf("Completion in %v (prompt=%d completion=%d tokens)",
				time.Since(start), completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
		} else {
			a.Logger.Printf("Completion in %v", time.Since(start))
		}
	}
	return completion, nil
}

// toModelResponse converts the first choice into a Model_Response.
func toModelResponse(response ChatCompletionResponse) (models.Model_Response, error) {
	if len(response.Choices) == 0 {
		return models.Model_Response{}, fmt.Errorf("azure openai returned no choices")
	}

	msg := response.Choices[0].Message
	modelResponse := models.Model_Response{}

	if msg.Content != nil && *msg.Content != "" {
		text := *msg.Content
		modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{Text: &text})
	}

	for _, toolCall := range msg.ToolCalls {
		if toolCall.Type != "" && toolCall.Type != "function" {
			continue
		}
		modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{
			FunctionCall: &models.FunctionCall{
				ID:        toolCall.ID,
				Name:      toolCall.Function.Name,
				Arguments: toolCall.Function.Arguments,
			},
		})
	}

	return modelResponse, nil
}
