package common_tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// featureOrder is the canonical column order of a CustomerFeatures row.
var featureOrder = []string{
	"Age", "Gender", "TravelCategory", "TravelClass", "Distance",
	"DepDelay", "ArrDelay", "SeatComfort", "Food", "Entertainment",
	"LegRoom", "Cleanliness", "Luggage", "BoardingPoint",
}

// CustomerFeatures describes one trip to be scored.
type CustomerFeatures struct {
	Age            int
	Gender         string
	TravelCategory string
	TravelClass    string
	Distance       float64
	DepDelay       float64
	ArrDelay       float64
	SeatComfort    int
	Food           int
	Entertainment  int
	LegRoom        int
	Cleanliness    int
	Luggage        int
	BoardingPoint  string
}

// featureInput is the decode target for raw payloads. Pointers let the
// validator tell a missing field apart from a zero value.
type featureInput struct {
	Age            *int     `json:"Age" validate:"required"`
	Gender         *string  `json:"Gender" validate:"required,oneof=Male Female"`
	TravelCategory *string  `json:"TravelCategory" validate:"required"`
	TravelClass    *string  `json:"TravelClass" validate:"required"`
	Distance       *float64 `json:"Distance" validate:"required"`
	DepDelay       *float64 `json:"DepDelay" validate:"required"`
	ArrDelay       *float64 `json:"ArrDelay" validate:"required"`
	SeatComfort    *int     `json:"SeatComfort" validate:"required"`
	Food           *int     `json:"Food" validate:"required"`
	Entertainment  *int     `json:"Entertainment" validate:"required"`
	LegRoom        *int     `json:"LegRoom" validate:"required"`
	Cleanliness    *int     `json:"Cleanliness" validate:"required"`
	Luggage        *int     `json:"Luggage" validate:"required"`
	BoardingPoint  *string  `json:"BoardingPoint" validate:"required"`
}

var validate = validator.New()

// ValidationError reports why a feature payload was rejected. It is a
// client error: the caller supplied a bad payload.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "Invalid payload: " + strings.Join(e.Problems, "; ")
}

func (in *featureInput) fields() map[string]interface{} {
	return map[string]interface{}{
		"Age":            &in.Age,
		"Gender":         &in.Gender,
		"TravelCategory": &in.TravelCategory,
		"TravelClass":    &in.TravelClass,
		"Distance":       &in.Distance,
		"DepDelay":       &in.DepDelay,
		"ArrDelay":       &in.ArrDelay,
		"SeatComfort":    &in.SeatComfort,
		"Food":           &in.Food,
		"Entertainment":  &in.Entertainment,
		"LegRoom":        &in.LegRoom,
		"Cleanliness":    &in.Cleanliness,
		"Luggage":        &in.Luggage,
		"BoardingPoint":  &in.BoardingPoint,
	}
}

// ValidateFeatures checks payload against the CustomerFeatures record. Every
// offending field is reported, at most one problem per field, in column order.
func ValidateFeatures(payload map[string]interface{}) (CustomerFeatures, error) {
	var in featureInput
	problems := make(map[string]string)

	for name, target := range in.fields() {
		raw, ok := payload[name]
		if !ok {
			continue
		}
		data, err := json.Marshal(raw)
		if err != nil {
			problems[name] = fmt.Sprintf("%s: %v", name, err)
			continue
		}
		if err := json.Unmarshal(data, target); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				problems[name] = fmt.Sprintf("%s: expected %s, got %s", name, typeErr.Type, typeErr.Value)
			} else {
				problems[name] = fmt.Sprintf("%s: %v", name, err)
			}
		}
	}

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return CustomerFeatures{}, &ValidationError{Problems: []string{err.Error()}}
		}
		for _, fe := range fieldErrs {
			if _, seen := problems[fe.Field()]; seen {
				continue
			}
			switch fe.Tag() {
			case "required":
				problems[fe.Field()] = fe.Field() + ": field required"
			case "oneof":
				problems[fe.Field()] = fe.Field() + " must be Male or Female"
			default:
				problems[fe.Field()] = fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag())
			}
		}
	}

	if len(problems) > 0 {
		ordered := make([]string, 0, len(problems))
		for _, name := range featureOrder {
			if p, ok := problems[name]; ok {
				ordered = append(ordered, p)
			}
		}
		return CustomerFeatures{}, &ValidationError{Problems: ordered}
	}

	return CustomerFeatures{
		Age:            *in.Age,
		Gender:         *in.Gender,
		TravelCategory: *in.TravelCategory,
		TravelClass:    *in.TravelClass,
		Distance:       *in.Distance,
		DepDelay:       *in.DepDelay,
		ArrDelay:       *in.ArrDelay,
		SeatComfort:    *in.SeatComfort,
		Food:           *in.Food,
		Entertainment:  *in.Entertainment,
		LegRoom:        *in.LegRoom,
		Cleanliness:    *in.Cleanliness,
		Luggage:        *in.Luggage,
		BoardingPoint:  *in.BoardingPoint,
	}, nil
}
