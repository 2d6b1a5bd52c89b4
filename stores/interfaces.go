package stores

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrExchangeNotFound = errors.New("exchange not found")

// Exchange is the audit record of one completed chat request.
type Exchange struct {
	gorm.Model
	ExchangeID  string `gorm:"uniqueIndex;not null"`
	Message     string `gorm:"type:text;not null"`
	Intent      string `gorm:"index"`
	AnswerMD    string `gorm:"type:text"`
	ActionsJSON string `gorm:"type:text"` // JSON array of {tool, result}
	ToolRounds  int    `gorm:"default:0"`
}

// ExchangeRecord is the listing view of an Exchange.
type ExchangeRecord struct {
	ExchangeID string          `json:"exchange_id"`
	CreatedAt  string          `json:"created_at"`
	Message    string          `json:"message"`
	Intent     string          `json:"intent"`
	AnswerMD   string          `json:"answer_md"`
	Actions    json.RawMessage `json:"actions_result"`
	ToolRounds int             `json:"tool_rounds"`
}

func (e Exchange) Record() ExchangeRecord {
	actions := json.RawMessage(e.ActionsJSON)
	if len(actions) == 0 {
		actions = json.RawMessage("[]")
	}
	return ExchangeRecord{
		ExchangeID: e.ExchangeID,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		Message:    e.Message,
		Intent:     e.Intent,
		AnswerMD:   e.AnswerMD,
		Actions:    actions,
		ToolRounds: e.ToolRounds,
	}
}

// ExchangeStore interface for abstracting database operations
type ExchangeStore interface {
	SaveExchange(ctx context.Context, exchange *Exchange) error
	GetExchange(ctx context.Context, exchangeID string) (*Exchange, error)
	// ListExchanges returns the newest exchanges first. limit <= 0 means no limit.
	ListExchanges(ctx context.Context, limit, offset int) ([]Exchange, error)
	// PruneBefore hard-deletes exchanges created before cutoff and reports how many.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string `json:"type"`       // "sqlite" or "postgres"
	Connection string `json:"connection"` // file path or DSN
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
	}
}
