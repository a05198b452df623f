package paperTradeService

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/utils"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// GetAdviceTargets asks the AI advisor for allocation suggestions and turns
// each allocation percent into a whole-share target quantity at the current
// cached price. Recommendation text is passed through untouched, the service
// does not judge it.
func (s *PaperTradeService) GetAdviceTargets(ctx context.Context, externalID string) ([]model.AdviceTarget, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PaperTradeService.GetAdviceTargets"

	slog.Debug("GetAdviceTargets start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetAdviceTargets finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	summary, err := s.GetPortfolioSummary(ctx, externalID)
	if err != nil {
		return nil, err
	}

	recommendations, err := s.advisor.GetRecommendations(ctx, summary)
	if err != nil {
		slog.Error("got error from advisor.GetRecommendations", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	targets := make([]model.AdviceTarget, 0, len(recommendations))
	for _, recommendation := range recommendations {
		target := model.AdviceTarget{
			Ticker:        recommendation.Ticker,
			AllocationPct: recommendation.AllocationPct,
			Reasoning:     recommendation.Reasoning,
		}

		quote, err := s.quotes.GetQuote(ctx, recommendation.Ticker)
		if err != nil {
			// suggestion stays visible without a resolvable target quantity
			slog.Warn("can't resolve price for recommendation", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", recommendation.Ticker), slog.String("err", err.Error()))
			targets = append(targets, target)
			continue
		}

		target.Price = quote.Price
		if quote.Price.IsPositive() {
			allocated := summary.TotalValue.Mul(recommendation.AllocationPct).Div(hundred)
			target.TargetQuantity = allocated.Div(quote.Price).Floor()
		}

		targets = append(targets, target)
	}

	return targets, nil
}
