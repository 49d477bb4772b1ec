package usecase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YichunLL/gGPT/internal/domain"
)

func TestDecodePredictions_FullPayload(t *testing.T) {
	raw := json.RawMessage(`{"Length_cell":340.4,"Width_cell":119.6,"Height_cell":118.2,"Power_density":183.456}`)
	pred, err := decodePredictions(raw)
	require.NoError(t, err)
	require.Equal(t, domain.CellPrediction{
		CellLength:   340.4,
		CellWidth:    119.6,
		CellHeight:   118.2,
		PowerDensity: 183.456,
	}, pred)
}

func TestDecodePredictions_NumericStringsCoerce(t *testing.T) {
	raw := json.RawMessage(`{"Length_cell":"340.4","Width_cell":" 119.6 ","Height_cell":"1e2","Power_density":"183"}`)
	pred, err := decodePredictions(raw)
	require.NoError(t, err)
	require.Equal(t, 340.4, pred.CellLength)
	require.Equal(t, 119.6, pred.CellWidth)
	require.Equal(t, 100.0, pred.CellHeight)
	require.Equal(t, 183.0, pred.PowerDensity)
}

func TestDecodePredictions_MissingFieldsDefaultToZero(t *testing.T) {
	pred, err := decodePredictions(json.RawMessage(`{"Length_cell":12}`))
	require.NoError(t, err)
	require.Equal(t, domain.CellPrediction{CellLength: 12}, pred)
}

func TestDecodePredictions_ShapeErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  json.RawMessage
	}{
		{"absent", nil},
		{"null", json.RawMessage(`null`)},
		{"empty object", json.RawMessage(`{}`)},
		{"array", json.RawMessage(`[1,2,3]`)},
		{"string", json.RawMessage(`"predictions"`)},
		{"number", json.RawMessage(`7`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodePredictions(tc.raw)
			require.ErrorIs(t, err, errNoPredictions)
		})
	}
}

func TestDecodePredictions_ValueErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  json.RawMessage
	}{
		{"non-numeric string", json.RawMessage(`{"Length_cell":"abc"}`)},
		{"null value", json.RawMessage(`{"Width_cell":null}`)},
		{"bool value", json.RawMessage(`{"Height_cell":true}`)},
		{"object value", json.RawMessage(`{"Power_density":{"v":1}}`)},
		{"infinite string", json.RawMessage(`{"Length_cell":"inf"}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodePredictions(tc.raw)
			require.Error(t, err)
			require.NotErrorIs(t, err, errNoPredictions)
		})
	}
}

func TestDecodeAnalysis(t *testing.T) {
	cases := []struct {
		name string
		raw  json.RawMessage
		want domain.AnalysisResult
	}{
		{"narrative", json.RawMessage(`"Great pack!"`), domain.AnalysisResult{Kind: domain.AnalysisText, Text: "Great pack!"}},
		{"service error", json.RawMessage(`{"message":"rate limited"}`), domain.AnalysisResult{Kind: domain.AnalysisServiceError, Message: "rate limited"}},
		{"absent", nil, domain.AnalysisResult{Kind: domain.AnalysisInvalid}},
		{"null", json.RawMessage(`null`), domain.AnalysisResult{Kind: domain.AnalysisInvalid}},
		{"empty string", json.RawMessage(`""`), domain.AnalysisResult{Kind: domain.AnalysisInvalid}},
		{"blank string", json.RawMessage(`"   "`), domain.AnalysisResult{Kind: domain.AnalysisInvalid}},
		{"number", json.RawMessage(`42`), domain.AnalysisResult{Kind: domain.AnalysisInvalid}},
		{"array", json.RawMessage(`["a"]`), domain.AnalysisResult{Kind: domain.AnalysisInvalid}},
		{"object without message", json.RawMessage(`{"detail":"x"}`), domain.AnalysisResult{Kind: domain.AnalysisInvalid}},
		{"non-string message", json.RawMessage(`{"message":5}`), domain.AnalysisResult{Kind: domain.AnalysisInvalid}},
		{"null message", json.RawMessage(`{"message":null}`), domain.AnalysisResult{Kind: domain.AnalysisInvalid}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, decodeAnalysis(tc.raw))
		})
	}
}
