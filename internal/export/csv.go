package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/money"
	"consigna/backend/internal/payout"
)

// Header is the fixed first row of a sales export.
var Header = []string{"Date", "Brand", "Item", "Customer", "Amount", "Commission", "Payout", "Store"}

// WriteSales writes one row per record in input order. Dates are calendar
// days in loc; amounts are major units with two decimals.
func WriteSales(w io.Writer, records []domain.SaleRecord, loc *time.Location, brandNames map[string]string) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		item := r.ItemName
		if r.SizeLabel != "" {
			item = item + " " + r.SizeLabel
		}
		if r.Quantity > 1 {
			item = item + " x" + strconv.Itoa(r.Quantity)
		}
		row := []string{
			r.CreatedAt.In(loc).Format("2006-01-02"),
			payout.DisplayName(r, brandNames),
			item,
			r.Customer.Name,
			money.Decimal(r.GrossCents),
			money.Decimal(r.CommissionCents),
			money.Decimal(r.PayoutCents),
			r.StoreLabel,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
