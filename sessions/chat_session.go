package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Desarso/tripwise/models"
	"github.com/google/uuid"
)

const (
	DefaultIntent        = "answer"
	IntentIncomplete     = "incomplete"
	DefaultMaxToolRounds = 8
)

// NewChatSession creates a session with a stdout logger and the default round cap.
func NewChatSession(agent AgentInterface, systemPrompt, developerPrompt string) *ChatSession {
	return &ChatSession{
		Agent:           agent,
		SystemPrompt:    systemPrompt,
		DeveloperPrompt: developerPrompt,
		MaxToolRounds:   DefaultMaxToolRounds,
		Logger:          log.New(os.Stdout, "[chat] ", log.LstdFlags),
	}
}

// Run answers a single user message. Tool calls requested by the model are
// executed and fed back until the model replies without tool calls.
//
// Client errors from tools (malformed arguments, invalid feature payloads)
// abort the exchange and are returned as-is. Model failures are *AgentError.
func (s *ChatSession) Run(ctx context.Context, userMessage string) (models.ChatResponse, error) {
	response, rounds, err := s.run(ctx, userMessage)
	if err != nil {
		return models.ChatResponse{}, err
	}

	if s.Recorder != nil {
		id, err := s.Recorder.RecordExchange(ctx, userMessage, response, rounds)
		if err != nil {
			s.logger().Printf("Error recording exchange: %v", err)
		} else {
			s.logger().Printf("Recorded exchange %s", id)
		}
	}
	return response, nil
}

func (s *ChatSession) run(ctx context.Context, userMessage string) (models.ChatResponse, int, error) {
	logger := s.logger()
	maxRounds := s.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}

	conv := NewConversation(s.SystemPrompt, s.DeveloperPrompt, userMessage)
	actions := []models.ActionResult{}

	for round := 0; ; round++ {
		logger.Printf("=== Chat Iteration %d ===", round+1)

		response, err := s.Agent.Run(ctx, conv.Messages())
		if err != nil {
			logger.Printf("Agent error: %v", err)
			return models.ChatResponse{}, round, &AgentError{Message: "model request failed", Err: err}
		}

		calls := response.FunctionCalls()
		if len(calls) == 0 {
			intent, answer := ParseFinalAnswer(response.Text())
			logger.Printf("Final answer after %d tool round(s), intent=%s", round, intent)
			return models.ChatResponse{
				Intent:        intent,
				AnswerMD:      answer,
				ActionsResult: actions,
			}, round, nil
		}

		if round >= maxRounds {
			logger.Printf("Model still requesting tools after %d rounds, stopping", round)
			return models.ChatResponse{
				Intent:        IntentIncomplete,
				AnswerMD:      fmt.Sprintf("Stopped after %d tool-calling rounds without a final answer from the model.", round),
				ActionsResult: actions,
			}, round, nil
		}

		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = "call_" + uuid.New().String()
			}
		}
		if err := conv.AppendToolCalls(response.Text(), calls); err != nil {
			return models.ChatResponse{}, round, &AgentError{Message: "invalid tool calls from model", Err: err}
		}

		for _, call := range calls {
			logger.Printf("Tool call: %s (id=%s)", call.Name, call.ID)
			result, err := s.Agent.ExecuteTool(ctx, call.Name, call.Arguments)
			if err != nil {
				logger.Printf("Tool execution error for %s: %v", call.Name, err)
				return models.ChatResponse{}, round, err
			}

			actions = append(actions, models.ActionResult{Tool: call.Name, Result: result})

			content, err := json.Marshal(result)
			if err != nil {
				return models.ChatResponse{}, round, fmt.Errorf("failed to marshal result of %s: %w", call.Name, err)
			}
			if err := conv.AppendToolResult(call.ID, call.Name, string(content)); err != nil {
				return models.ChatResponse{}, round, err
			}
		}
	}
}

// ParseFinalAnswer reads the model's final text as {"intent", "answer_md"}.
// Anything that is not a JSON object with string fields is treated as a
// plain answer carrying the raw text.
func ParseFinalAnswer(content string) (intent string, answerMD string) {
	var plan map[string]interface{}
	if err := json.Unmarshal([]byte(content), &plan); err != nil || plan == nil {
		return DefaultIntent, content
	}

	intent = DefaultIntent
	if v, ok := plan["intent"]; ok {
		s, isString := v.(string)
		if !isString {
			return DefaultIntent, content
		}
		intent = s
	}
	if v, ok := plan["answer_md"]; ok {
		s, isString := v.(string)
		if !isString {
			return DefaultIntent, content
		}
		answerMD = s
	}
	return intent, answerMD
}

func (s *ChatSession) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return s.Logger
}
