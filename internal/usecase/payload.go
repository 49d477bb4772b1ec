package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/YichunLL/gGPT/internal/domain"
)

// predictionEnvelope is the prediction service's success payload shape. Both
// fields stay raw so validation can report exactly what was received.
type predictionEnvelope struct {
	Predictions      json.RawMessage `json:"predictions"`
	DeepseekAnalysis json.RawMessage `json:"deepseek_analysis"`
}

// errNoPredictions flags payloads without a usable predictions object.
var errNoPredictions = errors.New("usecase: no predictions in payload")

// decodePredictions validates the predictions object and coerces its four
// cell fields. Missing fields default to zero and numeric strings are
// accepted; any other non-numeric value is a hard error.
func decodePredictions(raw json.RawMessage) (domain.CellPrediction, error) {
	if isAbsent(raw) {
		return domain.CellPrediction{}, errNoPredictions
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.CellPrediction{}, errNoPredictions
	}
	if len(fields) == 0 {
		return domain.CellPrediction{}, errNoPredictions
	}

	var pred domain.CellPrediction
	var err error
	if pred.CellLength, err = coerceField(fields, "Length_cell"); err != nil {
		return domain.CellPrediction{}, err
	}
	if pred.CellWidth, err = coerceField(fields, "Width_cell"); err != nil {
		return domain.CellPrediction{}, err
	}
	if pred.CellHeight, err = coerceField(fields, "Height_cell"); err != nil {
		return domain.CellPrediction{}, err
	}
	if pred.PowerDensity, err = coerceField(fields, "Power_density"); err != nil {
		return domain.CellPrediction{}, err
	}
	return pred, nil
}

// coerceField reads one prediction value. JSON null is rejected explicitly
// because unmarshalling null into a number or string is a silent no-op.
func coerceField(fields map[string]json.RawMessage, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, nil
	}
	if isNull(raw) {
		return 0, fmt.Errorf("field %s: value is null", key)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, parseErr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if parseErr != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("field %s: %q is not numeric", key, s)
		}
		return v, nil
	}

	return 0, fmt.Errorf("field %s: %s is not numeric", key, raw)
}

// decodeAnalysis maps the deepseek_analysis payload onto its closed set of
// shapes. Anything unrecognized is invalid rather than an error.
func decodeAnalysis(raw json.RawMessage) domain.AnalysisResult {
	if isAbsent(raw) {
		return domain.AnalysisResult{Kind: domain.AnalysisInvalid}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return domain.AnalysisResult{Kind: domain.AnalysisInvalid}
		}
		return domain.AnalysisResult{Kind: domain.AnalysisText, Text: text}
	}

	var obj struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != nil {
		return domain.AnalysisResult{Kind: domain.AnalysisServiceError, Message: *obj.Message}
	}

	return domain.AnalysisResult{Kind: domain.AnalysisInvalid}
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || isNull(raw)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
