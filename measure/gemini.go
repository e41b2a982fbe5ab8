package measure

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiPrompt = `
Estimate the body measurements of the person in this photo, in inches.
Reply with one JSON object and nothing else, using exactly these keys:
"Arm Length", "Shoulder Width", "Chest", "Waist", "Hip", "Neck",
"Shalwar Length", "Qameez Length" (numbers) and "Recommended Size"
(one of XS, S, M, L, XL, XXL).
`

// GeminiEstimator asks a Gemini vision model for the same JSON object the
// prediction service returns.
type GeminiEstimator struct {
	APIKey string
	Model  string
}

func NewGeminiEstimator(apiKey string) *GeminiEstimator {
	return &GeminiEstimator{APIKey: apiKey, Model: "gemini-1.5-flash"}
}

func (g *GeminiEstimator) Estimate(ctx context.Context, img Image) (Estimate, error) {
	if g.APIKey == "" {
		return Estimate{}, fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrEstimationFailed)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: failed to create Gemini client: %v", ErrEstimationFailed, err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.Model)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(geminiPrompt), genai.ImageData(imageFormat(img.ContentType), img.Data))
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: failed to generate content: %v", ErrEstimationFailed, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Estimate{}, fmt.Errorf("%w: no content generated", ErrEstimationFailed)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return parseEstimate([]byte(stripCodeFence(sb.String())))
}

// imageFormat maps a MIME type to the short format name genai expects.
func imageFormat(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "jpeg"
	}
}

// stripCodeFence removes a ```json fence the model sometimes wraps around its answer.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
