package domain

// AnalysisKind discriminates the shapes the prediction service returns in
// its deepseek_analysis field.
type AnalysisKind int

const (
	// AnalysisInvalid covers everything that is not a narrative or a
	// service error: absent, null, numbers, arrays, objects without a
	// string message.
	AnalysisInvalid AnalysisKind = iota
	// AnalysisText is a ready-to-display narrative.
	AnalysisText
	// AnalysisServiceError is an upstream-reported failure with a message.
	AnalysisServiceError
)

// AnalysisResult is the decoded deepseek_analysis value. Kind selects which
// field carries the payload; the union is closed, so unrecognized shapes
// always map to AnalysisInvalid rather than an error.
type AnalysisResult struct {
	Kind    AnalysisKind
	Text    string
	Message string
}
