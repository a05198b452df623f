package paperTradeService

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/paper_trade_service/internal/converter/dbConverter"
	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/utils"
)

// GeneratePortfolioReport builds an xlsx snapshot of the account (summary,
// transaction history, performance curve), uploads it to cloud storage and
// returns the download link.
func (s *PaperTradeService) GeneratePortfolioReport(ctx context.Context, externalID string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PaperTradeService.GeneratePortfolioReport"

	slog.Debug("GeneratePortfolioReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GeneratePortfolioReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	account, err := s.getAccount(ctx, externalID)
	if err != nil {
		return "", err
	}

	summary, err := s.GetPortfolioSummary(ctx, externalID)
	if err != nil {
		return "", err
	}

	dbTransactions, err := s.repo.GetTransactions(ctx, account.AccountID)
	if err != nil {
		return "", err
	}

	transactions := make([]model.Transaction, 0, len(dbTransactions))
	for _, dbTransaction := range dbTransactions {
		transactions = append(transactions, dbConverter.ConvertTransaction(dbTransaction))
	}

	performance, err := s.GetPerformance(ctx, externalID)
	if err != nil {
		// the report stays useful without the valuation curve
		slog.Warn("can't include performance in report", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		performance = nil
	}

	fileBytes, fileExtension, err := s.reports.Generate(ctx, summary, transactions, performance)
	if err != nil {
		slog.Error("got error from reports.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("portfolio_%d_%s%s", account.AccountID, s.now().Format("20060102_150405"), fileExtension)

	downloadLink, err = s.storage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from storage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return downloadLink, nil
}
