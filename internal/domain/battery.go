package domain

// PackSpec is a five-field battery-pack specification as entered by the
// user. The JSON tags match the prediction service's request keys.
type PackSpec struct {
	PackLength   float64 `json:"Length_pack"`
	PackWidth    float64 `json:"Width_pack"`
	PackHeight   float64 `json:"Height_pack"`
	Energy       float64 `json:"Energy"`
	TotalVoltage float64 `json:"Total_Voltage"`
}

// CellPrediction holds the four cell quantities returned by the prediction
// service after coercion. Lengths are millimetres, power density is Wh/kg.
type CellPrediction struct {
	CellLength   float64
	CellWidth    float64
	CellHeight   float64
	PowerDensity float64
}
