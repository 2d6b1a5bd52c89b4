package models

// ChatRequest is the body accepted by the chat endpoint and the websocket transport.
// Message is a pointer so an explicitly empty string still passes the required check.
type ChatRequest struct {
	Message *string `json:"message" binding:"required"`
}
