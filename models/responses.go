package models

// ActionResult records one tool invocation made while answering a request.
type ActionResult struct {
	Tool   string      `json:"tool"`
	Result interface{} `json:"result"`
}

// ChatResponse is the terminal output of one chat exchange.
type ChatResponse struct {
	Intent        string         `json:"intent"`
	AnswerMD      string         `json:"answer_md"`
	ActionsResult []ActionResult `json:"actions_result"`
}

// Model_Response is a single model turn: either text, tool calls, or both.
type Model_Response struct {
	Parts []Model_Part `json:"parts"`
}

// FunctionCall is a tool call requested by the model. Arguments is the raw
// JSON-encoded argument object exactly as the model produced it.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Model_Part struct {
	Text         *string       `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

// FunctionCalls returns the tool calls of the turn in order.
func (r Model_Response) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, part := range r.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, *part.FunctionCall)
		}
	}
	return calls
}

// Text concatenates the text parts of the turn.
func (r Model_Response) Text() string {
	var text string
	for _, part := range r.Parts {
		if part.Text != nil {
			text += *part.Text
		}
	}
	return text
}
