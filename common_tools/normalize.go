package common_tools

// responseShape is the closed set of scoring-response layouts we recognise.
// Shapes are matched in declaration order; the first match wins.
type responseShape int

const (
	shapeUnrecognized responseShape = iota
	// {"predictions":[{"label":"Satisfied","probabilities":{"Satisfied":0.81,...}}]}
	shapePredictions
	// {"label":"Satisfied","proba":0.81}
	shapeLabelProba
	// {"result":[0]}
	shapeResult
	// [0.81]
	shapeList
)

func (s responseShape) String() string {
	switch s {
	case shapePredictions:
		return "predictions"
	case shapeLabelProba:
		return "label_proba"
	case shapeResult:
		return "result"
	case shapeList:
		return "list"
	default:
		return "unrecognized"
	}
}

func classifyResponse(obj interface{}) responseShape {
	switch v := obj.(type) {
	case map[string]interface{}:
		if preds, ok := v["predictions"]; ok {
			switch p := preds.(type) {
			case []interface{}:
				if len(p) == 0 {
					return shapeUnrecognized
				}
				if first, ok := p[0].(map[string]interface{}); ok {
					_, hasLabel := first["label"]
					_, hasProbs := first["probabilities"].(map[string]interface{})
					if hasLabel && hasProbs {
						return shapePredictions
					}
				}
			case string:
				// A non-empty string indexes to a character, which is never a prediction.
				if p == "" {
					return shapeUnrecognized
				}
			default:
				// A predictions key we cannot index ends classification.
				return shapeUnrecognized
			}
		}
		_, hasLabel := v["label"]
		_, hasProba := v["proba"]
		if hasLabel && hasProba {
			return shapeLabelProba
		}
		if _, ok := v["result"]; ok {
			return shapeResult
		}
	case []interface{}:
		return shapeList
	}
	return shapeUnrecognized
}

// normalizeResponse coerces a decoded scoring response into the canonical
// {label, proba, raw} / {result, raw} / {result} forms. Anything else is
// returned unchanged.
func normalizeResponse(obj interface{}) interface{} {
	switch classifyResponse(obj) {
	case shapePredictions:
		v := obj.(map[string]interface{})
		first := v["predictions"].([]interface{})[0].(map[string]interface{})
		label := first["label"]
		probs := first["probabilities"].(map[string]interface{})
		var proba interface{}
		if key, ok := label.(string); ok {
			proba = probs[key]
		}
		return map[string]interface{}{"label": label, "proba": proba, "raw": obj}
	case shapeResult:
		v := obj.(map[string]interface{})
		return map[string]interface{}{"result": v["result"], "raw": obj}
	case shapeList:
		return map[string]interface{}{"result": obj}
	default:
		return obj
	}
}
