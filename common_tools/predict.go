package common_tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultScoringTimeout bounds each individual scoring attempt.
	DefaultScoringTimeout = 30 * time.Second

	snippetLimit = 2000

	failureMessage = "AML endpoint call failed"
	failureHint    = "Match the request body to the 'Consume' tab exactly and verify key/headers."
)

// Mock scoring coefficients.
const (
	mockBaseline      = 0.5
	mockNeutralRating = 3
	seatComfortWeight = 0.08
	cleanlinessWeight = 0.06
	delayUnitMinutes  = 60.0
	maxDelayUnits     = 4.0
	delayWeight       = 0.05
)

// MockPrediction is the result of local heuristic scoring.
type MockPrediction struct {
	Label  string  `json:"label"`
	Proba  float64 `json:"proba"`
	Source string  `json:"source"`
}

// RawResponse is returned when the endpoint answers 2xx with a body that is not JSON.
type RawResponse struct {
	Status    int         `json:"status"`
	RequestID string      `json:"request_id,omitempty"`
	Text      string      `json:"text"`
	TriedBody interface{} `json:"tried_body"`
}

// AttemptFailure describes why one candidate body did not produce a result.
type AttemptFailure struct {
	Status      int         `json:"status,omitempty"`
	RequestID   string      `json:"request_id,omitempty"`
	TriedBody   interface{} `json:"tried_body"`
	BodySnippet *string     `json:"body_snippet,omitempty"`
	Note        string      `json:"note,omitempty"`
	Exception   string      `json:"exception,omitempty"`
}

// RemoteFailure is returned when every candidate body failed.
type RemoteFailure struct {
	Error   string          `json:"error"`
	Hint    string          `json:"hint"`
	Details *AttemptFailure `json:"details"`
}

// Predictor scores customer features, remotely when a scoring URI is set and
// with a deterministic local heuristic otherwise.
type Predictor struct {
	ScoringURI string
	APIKey     string
	Deployment string
	Client     *http.Client
	Logger     *log.Logger
}

func NewPredictor(scoringURI, apiKey, deployment string) *Predictor {
	return &Predictor{
		ScoringURI: strings.TrimSpace(scoringURI),
		APIKey:     strings.TrimSpace(apiKey),
		Deployment: strings.TrimSpace(deployment),
		Client:     &http.Client{Timeout: DefaultScoringTimeout},
		Logger:     log.New(os.Stdout, "[predict] ", log.LstdFlags),
	}
}

// Predict_Customer is the predict_customer tool. A payload that fails
// validation returns *ValidationError and nothing is scored. Remote failures
// never surface as errors; they come back as a *RemoteFailure result.
func (p *Predictor) Predict_Customer(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
	features, err := ValidateFeatures(payload)
	if err != nil {
		return nil, err
	}

	if p.ScoringURI == "" {
		return MockScore(features), nil
	}
	return p.scoreRemote(ctx, payload), nil
}

// MockScore computes the local heuristic prediction.
func MockScore(f CustomerFeatures) MockPrediction {
	totalDelay := f.DepDelay + f.ArrDelay
	score := mockBaseline +
		float64(f.SeatComfort-mockNeutralRating)*seatComfortWeight +
		float64(f.Cleanliness-mockNeutralRating)*cleanlinessWeight
	score += (maxDelayUnits - math.Min(totalDelay/delayUnitMinutes, maxDelayUnits)) * delayWeight
	score = math.Max(0, math.Min(1, score))

	label := "Dissatisfied"
	proba := 1 - score
	if score >= 0.5 {
		label = "Satisfied"
		proba = score
	}
	return MockPrediction{
		Label:  label,
		Proba:  math.Round(proba*10000) / 10000,
		Source: "mock",
	}
}

type columnarData struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

type columnarBody struct {
	InputData columnarData `json:"input_data"`
}

type rowsBody struct {
	InputData []map[string]interface{} `json:"input_data"`
}

// candidateBodies returns the request layouts in the order they are tried:
// columnar (MLflow/AutoML), list of rows, raw payload.
func candidateBodies(payload map[string]interface{}) []interface{} {
	columns := payloadColumns(payload)
	values := make([]interface{}, len(columns))
	for i, c := range columns {
		values[i] = payload[c]
	}
	return []interface{}{
		columnarBody{InputData: columnarData{Columns: columns, Data: [][]interface{}{values}}},
		rowsBody{InputData: []map[string]interface{}{payload}},
		payload,
	}
}

// payloadColumns orders the known features canonically, then any extra keys sorted.
func payloadColumns(payload map[string]interface{}) []string {
	columns := make([]string, 0, len(payload))
	known := make(map[string]bool, len(featureOrder))
	for _, name := range featureOrder {
		known[name] = true
		if _, ok := payload[name]; ok {
			columns = append(columns, name)
		}
	}
	var extra []string
	for k := range payload {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

func (p *Predictor) scoreRemote(ctx context.Context, payload map[string]interface{}) interface{} {
	var lastFailure *AttemptFailure
	for i, body := range candidateBodies(payload) {
		result, failure := p.attempt(ctx, body)
		if failure == nil {
			p.Logger.Printf("Scoring attempt %d succeeded", i+1)
			return result
		}
		p.Logger.Printf("Scoring attempt %d failed: status=%d note=%q exception=%q", i+1, failure.Status, failure.Note, failure.Exception)
		lastFailure = failure
	}
	return &RemoteFailure{Error: failureMessage, Hint: failureHint, Details: lastFailure}
}

// attempt posts one candidate body. A nil failure means the result is final.
func (p *Predictor) attempt(ctx context.Context, body interface{}) (interface{}, *AttemptFailure) {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return nil, &AttemptFailure{Exception: err.Error(), TriedBody: body}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.ScoringURI, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, &AttemptFailure{Exception: err.Error(), TriedBody: body}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.Deployment != "" {
		req.Header.Set("azureml-model-deployment", p.Deployment)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, &AttemptFailure{Exception: err.Error(), TriedBody: body}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AttemptFailure{Exception: fmt.Sprintf("reading response: %v", err), TriedBody: body}
	}
	text := string(respBody)
	requestID := resp.Header.Get("x-ms-request-id")
	if requestID == "" {
		requestID = resp.Header.Get("x-request-id")
	}

	if resp.StatusCode/100 != 2 {
		snippet := truncate(text, snippetLimit)
		return nil, &AttemptFailure{
			Status:      resp.StatusCode,
			RequestID:   requestID,
			TriedBody:   body,
			BodySnippet: &snippet,
		}
	}

	if strings.TrimSpace(text) == "" {
		empty := ""
		return nil, &AttemptFailure{
			Status:      resp.StatusCode,
			RequestID:   requestID,
			TriedBody:   body,
			BodySnippet: &empty,
			Note:        "Empty 2xx response",
		}
	}

	var obj interface{}
	if err := json.Unmarshal(respBody, &obj); err != nil {
		return &RawResponse{
			Status:    resp.StatusCode,
			RequestID: requestID,
			Text:      truncate(text, snippetLimit),
			TriedBody: body,
		}, nil
	}
	return normalizeResponse(obj), nil
}

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
