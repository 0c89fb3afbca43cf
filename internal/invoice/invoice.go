// Package invoice renders brand payout invoices as HTML. Rendering is a pure
// function of its Input: it performs no I/O and never reads the clock.
package invoice

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/money"
	"consigna/backend/internal/payout"
)

var ErrMissingBrand = errors.New("invoice needs a brand name")

type Seller struct {
	Name    string
	Address string
	Email   string
}

// Input is everything an invoice shows. Records should already be filtered to
// one brand and period; totals are derived from them.
type Input struct {
	Seller        Seller
	BrandName     string
	PeriodLabel   string
	InvoiceDate   string
	InvoiceNumber string
	Records       []domain.SaleRecord
	Currency      money.Formatter
}

// Totals are the figures printed at the foot of an invoice.
type Totals struct {
	Count           int
	GrossCents      int64
	CommissionCents int64
	PayoutCents     int64
	Rate            decimal.Decimal
}

// Summarize totals the records and works out the commission rate to print:
// the shared per-line rate when every line carries the same one, otherwise
// commission over gross rounded to two decimals.
func Summarize(records []domain.SaleRecord) Totals {
	var t Totals
	uniform := true
	for i, r := range records {
		t.Count++
		t.GrossCents += r.GrossCents
		t.CommissionCents += r.CommissionCents
		t.PayoutCents += r.PayoutCents
		if i > 0 && !r.CommissionRatePercent.Equal(records[0].CommissionRatePercent) {
			uniform = false
		}
	}
	switch {
	case len(records) == 0:
		t.Rate = decimal.Zero
	case uniform:
		t.Rate = records[0].CommissionRatePercent
	default:
		t.Rate = payout.EffectiveRate(t.GrossCents, t.CommissionCents)
	}
	return t
}

type row struct {
	Description string
	Customer    string
	UnitPrice   string
	Quantity    int
	Amount      string
}

type view struct {
	Seller        Seller
	BrandName     string
	PeriodLabel   string
	InvoiceDate   string
	InvoiceNumber string
	Rows          []row
	Gross         string
	Commission    string
	Rate          string
	Payout        string
}

func Render(in Input) (string, error) {
	brand := strings.TrimSpace(in.BrandName)
	if brand == "" {
		return "", ErrMissingBrand
	}

	totals := Summarize(in.Records)
	v := view{
		Seller:        in.Seller,
		BrandName:     brand,
		PeriodLabel:   in.PeriodLabel,
		InvoiceDate:   in.InvoiceDate,
		InvoiceNumber: in.InvoiceNumber,
		Rows:          make([]row, 0, len(in.Records)),
		Gross:         in.Currency.Amount(totals.GrossCents),
		Commission:    in.Currency.Amount(totals.CommissionCents),
		Rate:          totals.Rate.StringFixed(2),
		Payout:        in.Currency.Amount(totals.PayoutCents),
	}
	for _, r := range in.Records {
		desc := r.ItemName
		if r.SizeLabel != "" {
			desc = fmt.Sprintf("%s (%s)", r.ItemName, r.SizeLabel)
		}
		v.Rows = append(v.Rows, row{
			Description: desc,
			Customer:    r.Customer.Name,
			UnitPrice:   in.Currency.Amount(r.UnitPriceCents),
			Quantity:    r.Quantity,
			Amount:      in.Currency.Amount(r.GrossCents),
		})
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render invoice: %w", err)
	}
	return buf.String(), nil
}

var page = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Invoice {{.InvoiceNumber}} - {{.BrandName}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #222; max-width: 760px; margin: 0 auto; padding: 24px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { padding: 6px 8px; border-bottom: 1px solid #ddd; text-align: left; }
td.num, th.num { text-align: right; }
.totals td { border: none; }
.muted { color: #666; }
</style>
</head>
<body>
<header>
<h1>{{.Seller.Name}}</h1>
{{if .Seller.Address}}<p class="muted">{{.Seller.Address}}</p>{{end}}
{{if .Seller.Email}}<p class="muted">{{.Seller.Email}}</p>{{end}}
</header>
<section>
<h2>Invoice{{if .InvoiceNumber}} #{{.InvoiceNumber}}{{end}}</h2>
<p>Brand: <strong>{{.BrandName}}</strong></p>
{{if .PeriodLabel}}<p>Period: {{.PeriodLabel}}</p>{{end}}
{{if .InvoiceDate}}<p>Date: {{.InvoiceDate}}</p>{{end}}
</section>
<table>
<thead>
<tr><th>Description</th><th>Customer</th><th class="num">Unit price</th><th class="num">Qty</th><th class="num">Amount</th></tr>
</thead>
<tbody>
{{range .Rows}}<tr><td>{{.Description}}</td><td>{{.Customer}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.Amount}}</td></tr>
{{else}}<tr><td colspan="5" class="muted">No sales in this period.</td></tr>
{{end}}</tbody>
</table>
<table class="totals">
<tr><td>Total sales</td><td class="num">{{.Gross}}</td></tr>
<tr><td>Commission ({{.Rate}}%)</td><td class="num">-{{.Commission}}</td></tr>
<tr><td><strong>Net payout</strong></td><td class="num"><strong>{{.Payout}}</strong></td></tr>
</table>
</body>
</html>
`))
