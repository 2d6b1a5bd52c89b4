package stores

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Desarso/tripwise/models"
	"github.com/google/uuid"
)

// Recorder writes completed chat exchanges to an ExchangeStore.
type Recorder struct {
	Store ExchangeStore
}

func NewRecorder(store ExchangeStore) *Recorder {
	return &Recorder{Store: store}
}

// RecordExchange stores the exchange under a fresh id and returns the id.
func (r *Recorder) RecordExchange(ctx context.Context, message string, response models.ChatResponse, toolRounds int) (string, error) {
	actions := response.ActionsResult
	if actions == nil {
		actions = []models.ActionResult{}
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return "", fmt.Errorf("failed to marshal actions: %w", err)
	}

	exchange := &Exchange{
		ExchangeID:  uuid.New().String(),
		Message:     message,
		Intent:      response.Intent,
		AnswerMD:    response.AnswerMD,
		ActionsJSON: string(actionsJSON),
		ToolRounds:  toolRounds,
	}
	if err := r.Store.SaveExchange(ctx, exchange); err != nil {
		return "", err
	}
	return exchange.ExchangeID, nil
}
