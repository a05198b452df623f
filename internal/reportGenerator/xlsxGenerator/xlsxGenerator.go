package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/utils"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Portfolio"

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders the portfolio snapshot into a single-sheet xlsx: summary
// block, holdings table, transaction history and the performance curve.
func (g *XLSXGenerator) Generate(ctx context.Context, summary model.PortfolioSummary, transactions []model.Transaction, performance []model.PerformancePoint) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if _, err := f.NewSheet(sheetName); err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	rowNum, err := g.fillSummary(f, summary)
	if err != nil {
		return nil, "", err
	}

	rowNum, err = g.fillTransactions(f, transactions, rowNum+2)
	if err != nil {
		return nil, "", err
	}

	if _, err := g.fillPerformance(f, performance, rowNum+2); err != nil {
		return nil, "", err
	}

	// Удаляем лист по умолчанию "Sheet1"
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) sectionHeader(f *excelize.File, fromCell, toCell, title, color string) error {
	if err := f.MergeCell(sheetName, fromCell, toCell); err != nil {
		return err
	}

	f.SetCellValue(sheetName, fromCell, title)

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	return f.SetCellStyle(sheetName, fromCell, fromCell, styleID)
}

func (g *XLSXGenerator) fillSummary(f *excelize.File, summary model.PortfolioSummary) (lastRow int, err error) {
	if err := g.sectionHeader(f, "A1", "F1", "Holdings", "#cfe2f3"); err != nil {
		return 0, err
	}

	_ = f.SetCellStr(sheetName, "A2", "ticker")
	_ = f.SetCellStr(sheetName, "B2", "quantity")
	_ = f.SetCellStr(sheetName, "C2", "avg cost")
	_ = f.SetCellStr(sheetName, "D2", "price")
	_ = f.SetCellStr(sheetName, "E2", "total")
	_ = f.SetCellStr(sheetName, "F2", "p/l")

	for i, holding := range summary.Holdings {
		rowNum := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), holding.Ticker)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), holding.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), holding.AvgCost.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), holding.Price.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), holding.TotalPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), holding.ProfitLoss.InexactFloat64())
	}

	rowNum := len(summary.Holdings) + 4
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "cash balance")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), summary.CashBalance.InexactFloat64())
	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "holdings value")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), summary.HoldingsValue.InexactFloat64())
	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "total value")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), summary.TotalValue.InexactFloat64())
	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "profit/loss")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), summary.ProfitLoss.InexactFloat64())

	return rowNum, nil
}

func (g *XLSXGenerator) fillTransactions(f *excelize.File, transactions []model.Transaction, startRow int) (lastRow int, err error) {
	err = g.sectionHeader(f, fmt.Sprintf("A%d", startRow), fmt.Sprintf("F%d", startRow), "Transactions", "#d9ead3")
	if err != nil {
		return 0, err
	}

	rowNum := startRow + 1
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "kind")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), "ticker")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), "quantity")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", rowNum), "price")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", rowNum), "total")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("F%d", rowNum), "date")

	for _, transaction := range transactions {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), string(transaction.Kind))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), transaction.Ticker)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), transaction.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), transaction.Price.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), transaction.Total.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), transaction.CreatedAt)
	}

	return rowNum, nil
}

func (g *XLSXGenerator) fillPerformance(f *excelize.File, performance []model.PerformancePoint, startRow int) (lastRow int, err error) {
	err = g.sectionHeader(f, fmt.Sprintf("A%d", startRow), fmt.Sprintf("B%d", startRow), "Performance", "#f9cb9c")
	if err != nil {
		return 0, err
	}

	rowNum := startRow + 1
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "date")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), "value")

	for _, point := range performance {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), point.Date)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), point.Value.InexactFloat64())
	}

	return rowNum, nil
}
