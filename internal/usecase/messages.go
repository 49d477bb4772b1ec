package usecase

import (
	"fmt"

	"github.com/YichunLL/gGPT/internal/domain"
)

// SystemPrompt seeds every conversation history as its first entry.
const SystemPrompt = "You are GotionGPT, an expert AI assistant specialized in battery pack and cell optimization. " +
	"Explain concepts clearly using plain markdown. Avoid LaTeX formatting (no \\[ \\], \\text{}, \\frac{}). " +
	"Do NOT use markdown headings (#). Use bold labels like **Battery Pack Specs**, and format formulas like `E = P × t`."

// WelcomeMessage greets every new conversation with the expected input
// format and the bilingual support note.
const WelcomeMessage = "🔋 Hi! This is **GotionGPT**, your assistant for battery cell design and optimization.\n\n" +
	"To get started, enter your input like this:\n" +
	"`Length_pack (mm), Width_pack (mm), Height_pack (mm), Energy (kWh), Total Voltage (V)`\n\n" +
	"Example: `1000, 1600, 1500, 60, 400`\n\n" +
	"💬 English and Chinese input are both supported (支持中英文输入)."

// AuthorAnalyst labels messages carrying DeepSeek output.
const AuthorAnalyst = "DeepSeek AI"

const (
	statusAnalyzing = "🤖 GotionGPT is analyzing"
	statusThinking  = "🤖 GotionGPT is thinking"

	// analysisPromptText is the synthetic user turn recorded alongside a
	// rendered analysis so follow-up questions have context.
	analysisPromptText = "Analyze this battery pack and predicted cell specs."

	msgNoPredictions   = "❌ The API did not return predictions."
	msgInvalidAnalysis = "🧠 DeepSeek did not return a valid analysis."
)

func formatStatusFailure(status int, body string) string {
	return fmt.Sprintf("❌ API call failed.\n\n**Status Code:** %d\n```json\n%s\n```", status, body)
}

func formatRequestFailure(err error) string {
	return fmt.Sprintf("❌ API call failed.\n\n**Error:** `%v`", err)
}

func formatDecodeFailure(body []byte, err error) string {
	return fmt.Sprintf("❌ Could not decode JSON.\n```text\n%s\n```\n**Error:** `%v`", body, err)
}

func formatInvalidPredictions(raw []byte, err error) string {
	return fmt.Sprintf("❌ Prediction data was invalid:\n```json\n%s\n```\n**Error:** %v", raw, err)
}

func formatCellPrediction(p domain.CellPrediction) string {
	return fmt.Sprintf(
		"📐 **Predicted Cell Dimensions**\n- Length: %.0f mm\n- Width: %.0f mm\n- Height: %.0f mm\n- Power Density: %.2f Wh/kg",
		p.CellLength, p.CellWidth, p.CellHeight, p.PowerDensity,
	)
}

func formatAnalysisError(message string) string {
	return fmt.Sprintf("❌ DeepSeek Error:\n\n%s", message)
}

func formatChatFailure(err error) string {
	return fmt.Sprintf("❌ DeepSeek follow-up failed:\n```text\n%v```", err)
}

func formatUnexpected(kind string) string {
	return fmt.Sprintf("⚠️ Unexpected error: `%s`\nPlease try again or check your server logs.", kind)
}
