package common_tools

import (
	"github.com/Desarso/tripwise/models"
)

const (
	GetStatToolName         = "get_stat"
	PredictCustomerToolName = "predict_customer"
)

func noAdditionalProperties() *bool {
	f := false
	return &f
}

// GetStatTool returns a FunctionDeclaration for the stats lookup tool.
func GetStatTool(store *StatsStore) models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        GetStatToolName,
		Description: "Return a precomputed statistic by key from the stats store.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"key": map[string]interface{}{"type": "string"},
			},
			Required:             []string{"key"},
			AdditionalProperties: noAdditionalProperties(),
		},
		Callable: store.Get_Stat,
	}
}

// PredictCustomerTool returns a FunctionDeclaration for the satisfaction predictor.
func PredictCustomerTool(predictor *Predictor) models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        PredictCustomerToolName,
		Description: "Predict customer satisfaction using the AML endpoint (or local mock).",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"Age":            map[string]interface{}{"type": "integer"},
				"Gender":         map[string]interface{}{"type": "string", "enum": []string{"Male", "Female"}},
				"TravelCategory": map[string]interface{}{"type": "string", "enum": []string{"Business", "Personal"}},
				"TravelClass":    map[string]interface{}{"type": "string", "enum": []string{"Economy", "Economy Plus", "Business"}},
				"Distance":       map[string]interface{}{"type": "number"},
				"DepDelay":       map[string]interface{}{"type": "number"},
				"ArrDelay":       map[string]interface{}{"type": "number"},
				"SeatComfort":    map[string]interface{}{"type": "integer"},
				"Food":           map[string]interface{}{"type": "integer"},
				"Entertainment":  map[string]interface{}{"type": "integer"},
				"LegRoom":        map[string]interface{}{"type": "integer"},
				"Cleanliness":    map[string]interface{}{"type": "integer"},
				"Luggage":        map[string]interface{}{"type": "integer"},
				"BoardingPoint":  map[string]interface{}{"type": "string"},
			},
			Required:             append([]string(nil), featureOrder...),
			AdditionalProperties: noAdditionalProperties(),
		},
		Callable: predictor.Predict_Customer,
	}
}

// DefaultTools returns the tools offered to the model on every request.
func DefaultTools(store *StatsStore, predictor *Predictor) []models.FunctionDeclaration {
	return []models.FunctionDeclaration{
		PredictCustomerTool(predictor),
		GetStatTool(store),
	}
}
