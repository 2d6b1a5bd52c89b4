package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Desarso/tripwise/common_tools"
	"github.com/Desarso/tripwise/models"
)

// scriptedAgent replays canned model turns and dispatches tools to real
// declarations, recording every conversation it was shown.
type scriptedAgent struct {
	turns  []models.Model_Response
	tools  []models.FunctionDeclaration
	seen   [][]models.Message
	runErr error
}

func (a *scriptedAgent) Run(ctx context.Context, conversation []models.Message) (models.Model_Response, error) {
	a.seen = append(a.seen, conversation)
	if a.runErr != nil {
		return models.Model_Response{}, a.runErr
	}
	if len(a.turns) == 0 {
		text := `{"intent":"answer","answer_md":"done"}`
		return models.Model_Response{Parts: []models.Model_Part{{Text: &text}}}, nil
	}
	turn := a.turns[0]
	a.turns = a.turns[1:]
	return turn, nil
}

func (a *scriptedAgent) ExecuteTool(ctx context.Context, name string, rawArgs string) (interface{}, error) {
	args := map[string]interface{}{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil || args == nil {
			return nil, &models.ClientError{Message: "invalid tool arguments", Err: err}
		}
	}
	for _, tool := range a.tools {
		if tool.Name == name {
			return tool.Callable(ctx, args)
		}
	}
	return map[string]interface{}{"error": "Unknown tool " + name}, nil
}

func textTurn(text string) models.Model_Response {
	return models.Model_Response{Parts: []models.Model_Part{{Text: &text}}}
}

func callTurn(calls ...models.FunctionCall) models.Model_Response {
	parts := make([]models.Model_Part, 0, len(calls))
	for i := range calls {
		call := calls[i]
		parts = append(parts, models.Model_Part{FunctionCall: &call})
	}
	return models.Model_Response{Parts: parts}
}

func testTools(t *testing.T) []models.FunctionDeclaration {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, []byte(`{"avg_delay": 12.5, "satisfaction_rate": 0.61}`), 0644); err != nil {
		t.Fatal(err)
	}
	return common_tools.DefaultTools(common_tools.NewStatsStore(path), common_tools.NewPredictor("", "", ""))
}

func newTestSession(agent AgentInterface) *ChatSession {
	s := NewChatSession(agent, "system prompt", "developer prompt")
	s.Logger = nil
	return s
}

const validFeatures = `{"Age":35,"Gender":"Female","TravelCategory":"Business","TravelClass":"Business",
"Distance":1200,"DepDelay":0,"ArrDelay":0,"SeatComfort":5,"Food":4,"Entertainment":4,"LegRoom":5,
"Cleanliness":5,"Luggage":4,"BoardingPoint":"DEL"}`

func TestRunStatLookupThenAnswer(t *testing.T) {
	agent := &scriptedAgent{
		tools: testTools(t),
		turns: []models.Model_Response{
			callTurn(models.FunctionCall{ID: "call_1", Name: "get_stat", Arguments: `{"key":"avg_delay"}`}),
			textTurn(`{"intent":"stat","answer_md":"Average delay is **12.5** minutes."}`),
		},
	}

	resp, err := newTestSession(agent).Run(context.Background(), "What is the average delay?")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Intent != "stat" {
		t.Errorf("expected intent stat, got %q", resp.Intent)
	}
	if resp.AnswerMD != "Average delay is **12.5** minutes." {
		t.Errorf("unexpected answer: %q", resp.AnswerMD)
	}
	if len(resp.ActionsResult) != 1 {
		t.Fatalf("expected 1 action, got %d", len(resp.ActionsResult))
	}
	if resp.ActionsResult[0].Tool != "get_stat" || resp.ActionsResult[0].Result != 12.5 {
		t.Errorf("unexpected action: %+v", resp.ActionsResult[0])
	}

	// second model call sees: system, developer, user, assistant tool call, tool result
	second := agent.seen[1]
	if len(second) != 5 {
		t.Fatalf("expected 5 messages on second call, got %d", len(second))
	}
	roles := []string{models.RoleSystem, models.RoleDeveloper, models.RoleUser, models.RoleAssistant, models.RoleTool}
	for i, role := range roles {
		if second[i].Role != role {
			t.Errorf("message %d: expected role %s, got %s", i, role, second[i].Role)
		}
	}
	tool := second[4]
	if tool.ToolCallID != "call_1" || tool.Name != "get_stat" || tool.Content != "12.5" {
		t.Errorf("unexpected tool message: %+v", tool)
	}
}

func TestRunPlainTextAnswer(t *testing.T) {
	agent := &scriptedAgent{turns: []models.Model_Response{textTurn("Hello there, how can I help?")}}

	resp, err := newTestSession(agent).Run(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Intent != "answer" || resp.AnswerMD != "Hello there, how can I help?" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.ActionsResult == nil || len(resp.ActionsResult) != 0 {
		t.Errorf("expected empty, non-nil actions, got %#v", resp.ActionsResult)
	}
}

func TestRunMockPrediction(t *testing.T) {
	agent := &scriptedAgent{
		tools: testTools(t),
		turns: []models.Model_Response{
			callTurn(models.FunctionCall{ID: "p1", Name: "predict_customer", Arguments: validFeatures}),
			textTurn(`{"intent":"predict","answer_md":"Likely satisfied."}`),
		},
	}

	resp, err := newTestSession(agent).Run(context.Background(), "Will she be satisfied?")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.ActionsResult) != 1 {
		t.Fatalf("expected 1 action, got %d", len(resp.ActionsResult))
	}
	pred, ok := resp.ActionsResult[0].Result.(common_tools.MockPrediction)
	if !ok {
		t.Fatalf("expected MockPrediction, got %T", resp.ActionsResult[0].Result)
	}
	if pred.Label != "Satisfied" || pred.Source != "mock" {
		t.Errorf("unexpected prediction: %+v", pred)
	}
}

func TestRunInvalidFeaturesIsClientError(t *testing.T) {
	agent := &scriptedAgent{
		tools: testTools(t),
		turns: []models.Model_Response{
			callTurn(models.FunctionCall{ID: "p1", Name: "predict_customer", Arguments: `{"Age":35}`}),
		},
	}

	_, err := newTestSession(agent).Run(context.Background(), "predict")
	var validationErr *common_tools.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if status, _ := ErrorStatus(err); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestRunMalformedArgumentsIsClientError(t *testing.T) {
	agent := &scriptedAgent{
		tools: testTools(t),
		turns: []models.Model_Response{
			callTurn(models.FunctionCall{ID: "s1", Name: "get_stat", Arguments: `{"key":`}),
		},
	}

	_, err := newTestSession(agent).Run(context.Background(), "stat")
	var clientErr *models.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
}

func TestRunUnknownToolContinues(t *testing.T) {
	agent := &scriptedAgent{
		tools: testTools(t),
		turns: []models.Model_Response{
			callTurn(models.FunctionCall{ID: "x1", Name: "book_flight", Arguments: `{}`}),
			textTurn(`{"intent":"answer","answer_md":"I can't book flights."}`),
		},
	}

	resp, err := newTestSession(agent).Run(context.Background(), "book me a flight")
	if err != nil {
		t.Fatal(err)
	}
	result, ok := resp.ActionsResult[0].Result.(map[string]interface{})
	if !ok || result["error"] != "Unknown tool book_flight" {
		t.Errorf("unexpected result: %#v", resp.ActionsResult[0].Result)
	}
}

func TestRunMultipleCallsInOneTurn(t *testing.T) {
	agent := &scriptedAgent{
		tools: testTools(t),
		turns: []models.Model_Response{
			callTurn(
				models.FunctionCall{ID: "a", Name: "get_stat", Arguments: `{"key":"avg_delay"}`},
				models.FunctionCall{ID: "b", Name: "get_stat", Arguments: `{"key":"nope"}`},
			),
			textTurn(`{"intent":"stat","answer_md":"ok"}`),
		},
	}

	resp, err := newTestSession(agent).Run(context.Background(), "stats")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.ActionsResult) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(resp.ActionsResult))
	}
	if resp.ActionsResult[1].Result != nil {
		t.Errorf("absent key should yield nil, got %v", resp.ActionsResult[1].Result)
	}
	last := agent.seen[1]
	if last[len(last)-1].Content != "null" || last[len(last)-1].ToolCallID != "b" {
		t.Errorf("unexpected last tool message: %+v", last[len(last)-1])
	}
}

func TestRunGeneratesMissingCallIDs(t *testing.T) {
	agent := &scriptedAgent{
		tools: testTools(t),
		turns: []models.Model_Response{
			callTurn(models.FunctionCall{Name: "get_stat", Arguments: `{"key":"avg_delay"}`}),
			textTurn("fine"),
		},
	}

	if _, err := newTestSession(agent).Run(context.Background(), "stat"); err != nil {
		t.Fatal(err)
	}
	conv := agent.seen[1]
	id := conv[3].ToolCalls[0].ID
	if !strings.HasPrefix(id, "call_") {
		t.Errorf("expected generated call id, got %q", id)
	}
	if conv[4].ToolCallID != id {
		t.Errorf("tool message id %q does not match call id %q", conv[4].ToolCallID, id)
	}
}

func TestRunStopsAfterMaxToolRounds(t *testing.T) {
	var turns []models.Model_Response
	for i := 0; i < 10; i++ {
		turns = append(turns, callTurn(models.FunctionCall{Name: "get_stat", Arguments: `{"key":"avg_delay"}`}))
	}
	agent := &scriptedAgent{tools: testTools(t), turns: turns}

	s := newTestSession(agent)
	s.MaxToolRounds = 2
	resp, err := s.Run(context.Background(), "loop")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Intent != IntentIncomplete {
		t.Errorf("expected incomplete intent, got %q", resp.Intent)
	}
	if len(resp.ActionsResult) != 2 {
		t.Errorf("expected 2 actions, got %d", len(resp.ActionsResult))
	}
	if len(agent.seen) != 3 {
		t.Errorf("expected 3 model calls, got %d", len(agent.seen))
	}
}

func TestRunModelFailureIsAgentError(t *testing.T) {
	agent := &scriptedAgent{runErr: errors.New("connection refused")}

	_, err := newTestSession(agent).Run(context.Background(), "hi")
	var agentErr *AgentError
	if !errors.As(err, &agentErr) {
		t.Fatalf("expected AgentError, got %v", err)
	}
	if status, _ := ErrorStatus(err); status != 502 {
		t.Errorf("expected 502, got %d", status)
	}
}

func TestRunStatsFailurePropagates(t *testing.T) {
	tools := common_tools.DefaultTools(
		common_tools.NewStatsStore(filepath.Join(t.TempDir(), "missing.json")),
		common_tools.NewPredictor("", "", ""),
	)
	agent := &scriptedAgent{
		tools: tools,
		turns: []models.Model_Response{
			callTurn(models.FunctionCall{ID: "s", Name: "get_stat", Arguments: `{"key":"avg_delay"}`}),
		},
	}

	_, err := newTestSession(agent).Run(context.Background(), "stat")
	if err == nil {
		t.Fatal("expected error")
	}
	if status, _ := ErrorStatus(err); status != 500 {
		t.Errorf("expected 500, got %d", status)
	}
}

type memoryRecorder struct {
	messages []string
	rounds   []int
	err      error
}

func (r *memoryRecorder) RecordExchange(ctx context.Context, message string, response models.ChatResponse, toolRounds int) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.messages = append(r.messages, message)
	r.rounds = append(r.rounds, toolRounds)
	return "ex-1", nil
}

func TestRunRecordsExchange(t *testing.T) {
	agent := &scriptedAgent{
		tools: testTools(t),
		turns: []models.Model_Response{
			callTurn(models.FunctionCall{ID: "s", Name: "get_stat", Arguments: `{"key":"avg_delay"}`}),
			textTurn("12.5"),
		},
	}
	recorder := &memoryRecorder{}
	s := newTestSession(agent)
	s.Recorder = recorder

	if _, err := s.Run(context.Background(), "avg delay?"); err != nil {
		t.Fatal(err)
	}
	if len(recorder.messages) != 1 || recorder.messages[0] != "avg delay?" || recorder.rounds[0] != 1 {
		t.Errorf("unexpected recording: %+v", recorder)
	}
}

func TestRunRecorderFailureDoesNotFailExchange(t *testing.T) {
	s := newTestSession(&scriptedAgent{turns: []models.Model_Response{textTurn("ok")}})
	s.Recorder = &memoryRecorder{err: errors.New("disk full")}

	if _, err := s.Run(context.Background(), "hi"); err != nil {
		t.Errorf("recorder failure should not fail the exchange: %v", err)
	}
}

func TestParseFinalAnswer(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantIntent string
		wantAnswer string
	}{
		{"full object", `{"intent":"predict","answer_md":"**yes**"}`, "predict", "**yes**"},
		{"missing intent", `{"answer_md":"hi"}`, "answer", "hi"},
		{"missing answer", `{"intent":"stat"}`, "stat", ""},
		{"plain text", "just text", "answer", "just text"},
		{"empty", "", "answer", ""},
		{"array", `[1,2,3]`, "answer", `[1,2,3]`},
		{"number", `42`, "answer", `42`},
		{"non-string intent", `{"intent":5,"answer_md":"x"}`, "answer", `{"intent":5,"answer_md":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, answer := ParseFinalAnswer(tt.content)
			if intent != tt.wantIntent || answer != tt.wantAnswer {
				t.Errorf("ParseFinalAnswer(%q) = (%q, %q), want (%q, %q)",
					tt.content, intent, answer, tt.wantIntent, tt.wantAnswer)
			}
		})
	}
}
