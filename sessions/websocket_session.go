package sessions

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Desarso/tripwise/models"
	"github.com/gorilla/websocket"
)

// WebSocketWriter serializes writes to a websocket connection.
type WebSocketWriter struct {
	Conn   *websocket.Conn
	Logger *log.Logger
	mu     sync.Mutex
}

func (w *WebSocketWriter) WriteResponse(resp interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(resp)
}

func (w *WebSocketWriter) WriteError(status int, message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(WebSocketErrorMessage{Error: message, Status: status})
}

// WebSocketErrorMessage is sent in place of a response when an exchange fails.
type WebSocketErrorMessage struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// WebSocketSession runs one chat exchange per incoming {"message": ...} frame.
// Frames are handled in order; each gets exactly one reply frame.
type WebSocketSession struct {
	Chat      *ChatSession
	SessionID string
	Writer    *WebSocketWriter
	Logger    *log.Logger
}

// NewWebSocketSession creates a new WebSocket session
func NewWebSocketSession(sessionID string, conn *websocket.Conn, chat *ChatSession) *WebSocketSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", sessionID), log.LstdFlags)
	return &WebSocketSession{
		Chat:      chat,
		SessionID: sessionID,
		Writer:    &WebSocketWriter{Conn: conn, Logger: logger},
		Logger:    logger,
	}
}

// Serve reads frames until the client disconnects or ctx is cancelled.
func (ws *WebSocketSession) Serve(ctx context.Context) error {
	conn := ws.Writer.Conn
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req models.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.Logger.Printf("WebSocket error: %v", err)
				return err
			}
			ws.Logger.Printf("WebSocket session ended")
			return nil
		}

		if req.Message == nil {
			if err := ws.Writer.WriteError(400, "message is required"); err != nil {
				return err
			}
			continue
		}

		start := time.Now()
		resp, err := ws.Chat.Run(ctx, *req.Message)
		if err != nil {
			status, msg := ErrorStatus(err)
			ws.Logger.Printf("Exchange failed (%d): %v", status, err)
			if err := ws.Writer.WriteError(status, msg); err != nil {
				return err
			}
			continue
		}
		ws.Logger.Printf("Exchange completed in %v", time.Since(start))

		if err := ws.Writer.WriteResponse(resp); err != nil {
			ws.Logger.Printf("Error writing response: %v", err)
			return err
		}
	}
}
