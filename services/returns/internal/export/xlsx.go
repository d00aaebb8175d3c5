// Package export renders the admin returns listing as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Returns"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var header = []string{"RMA Code", "Return ID", "Order ID", "Customer", "Status", "Resolution", "Created", "Items", "Units", "Amount"}

type Row struct {
	Return models.Return
	// Amount is the value of the returned units at their purchase price.
	Amount decimal.Decimal
}

func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}

	for i, r := range rows {
		units := 0
		for _, it := range r.Return.Items {
			units += it.Quantity
		}
		amount, _ := r.Amount.Round(2).Float64()

		values := []any{
			r.Return.RMACode,
			r.Return.ID.String(),
			r.Return.OrderID.String(),
			r.Return.UserID.String(),
			string(r.Return.Status),
			string(r.Return.Resolution),
			r.Return.CreatedAt.Format("2006-01-02 15:04:05"),
			len(r.Return.Items),
			units,
			amount,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}
