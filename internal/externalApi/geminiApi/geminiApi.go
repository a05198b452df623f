package geminiApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/paper_trade_service/config"
	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/utils"
	"google.golang.org/genai"
)

// GeminiApi asks the Gemini model for portfolio allocation suggestions.
// The model answer is structured JSON, parsed into model.Recommendation.
type GeminiApi struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg *config.Config) *GeminiApi {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.ApiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		slog.Error("failed on genai.NewClient")
		panic(err)
	}
	return &GeminiApi{client: client, model: cfg.Gemini.Model}
}

func (a *GeminiApi) GetRecommendations(ctx context.Context, summary model.PortfolioSummary) ([]model.Recommendation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GeminiApi.GetRecommendations"

	slog.Debug("GetRecommendations start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetRecommendations finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	contents := genai.Text(buildPrompt(summary))
	generateConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, generateConfig)
	if err != nil {
		slog.Error("got error from Models.GenerateContent", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	text, err := extractText(result)
	if err != nil {
		slog.Error("empty gemini response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	var recommendations []model.Recommendation
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &recommendations); err != nil {
		slog.Error("can't parse gemini response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("response", text))
		return nil, err
	}

	return recommendations, nil
}

func buildPrompt(summary model.PortfolioSummary) string {
	var sb strings.Builder

	sb.WriteString("You are a portfolio assistant for a paper trading service.\n")
	sb.WriteString("Suggest up to 5 US stock allocations for this portfolio.\n\n")
	sb.WriteString(fmt.Sprintf("Cash balance: %s\n", summary.CashBalance))
	sb.WriteString(fmt.Sprintf("Total value: %s\n", summary.TotalValue))
	sb.WriteString("Current holdings:\n")

	if len(summary.Holdings) == 0 {
		sb.WriteString("- none\n")
	}
	for _, holding := range summary.Holdings {
		sb.WriteString(fmt.Sprintf("- %s: %s shares, avg cost %s, current price %s\n", holding.Ticker, holding.Quantity, holding.AvgCost, holding.Price))
	}

	sb.WriteString("\nAnswer with a JSON array only, each element: ")
	sb.WriteString(`{"ticker": string, "allocationPct": number, "reasoning": string}. `)
	sb.WriteString("allocationPct is the share of total portfolio value, the sum must not exceed 100.")

	return sb.String()
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content generated")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// stripCodeFence drops a markdown ```json wrapper the model sometimes adds
// despite the JSON response mime type.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
