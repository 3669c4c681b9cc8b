// Package invoice builds per-stakeholder commission statements from frozen
// order-item snapshots and renders them as PDF.
package invoice

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/yash9657/grainhub/internal/dalali"
	"github.com/yash9657/grainhub/internal/models"
)

// Line is one order-item row on the invoice, with the commission the
// stakeholder owes for it.
type Line struct {
	ItemName   string  `json:"item_name"`
	OrderDate  string  `json:"order_date"`
	Price      float64 `json:"price"`
	Weight     float64 `json:"weight"`
	Quantity   uint    `json:"quantity"`
	DalaliType string  `json:"dalali_type"`
	Rate       float64 `json:"rate"`
	Commission float64 `json:"commission"`
}

type Invoice struct {
	Stakeholder     models.Stakeholder `json:"stakeholder"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Lines           []Line             `json:"lines"`
	TotalCommission float64            `json:"total_commission"`
}

// Entry pairs an order-item snapshot with the display fields that live
// outside the snapshot.
type Entry struct {
	OrderItem models.OrderItem
	ItemName  string
	OrderDate time.Time
}

// Build computes one commission line per entry for the stakeholder's side.
// Commission always comes from the snapshot fields, so invoices for old
// orders are unaffected by later item edits.
func Build(sh models.Stakeholder, entries []Entry) (*Invoice, error) {
	party := dalali.Buyer
	if sh.Type == models.StakeholderSeller {
		party = dalali.Seller
	}

	inv := &Invoice{Stakeholder: sh, GeneratedAt: time.Now()}
	for _, e := range entries {
		line := dalali.FromOrderItem(e.OrderItem)
		commission, err := dalali.Commission(line, party)
		if err != nil {
			return nil, fmt.Errorf("order item %d: %w", e.OrderItem.ID, err)
		}

		rate := e.OrderItem.BuyerDalaliRate
		if party == dalali.Seller {
			rate = e.OrderItem.SellerDalaliRate
		}

		inv.Lines = append(inv.Lines, Line{
			ItemName:   e.ItemName,
			OrderDate:  e.OrderDate.Format("02 Jan 2006"),
			Price:      e.OrderItem.Price,
			Weight:     e.OrderItem.Weight,
			Quantity:   e.OrderItem.Quantity,
			DalaliType: e.OrderItem.DalaliType,
			Rate:       rate,
			Commission: commission,
		})
		inv.TotalCommission += commission
	}
	return inv, nil
}

// RenderPDF writes the invoice as a single-page A4 table.
func (inv *Invoice) RenderPDF(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Dalali Invoice")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("%s (%s)", inv.Stakeholder.Name, inv.Stakeholder.Type))
	pdf.Ln(6)
	if inv.Stakeholder.Address != "" {
		pdf.Cell(0, 6, inv.Stakeholder.Address)
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, "Generated: "+inv.GeneratedAt.Format("02 Jan 2006"))
	pdf.Ln(10)

	widths := []float64{50, 28, 22, 18, 18, 18, 26}
	headers := []string{"Item", "Date", "Price", "Weight", "Qty", "Rate", "Dalali"}

	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range inv.Lines {
		cols := []string{
			l.ItemName,
			l.OrderDate,
			fmt.Sprintf("%.2f", l.Price),
			fmt.Sprintf("%.2f", l.Weight),
			fmt.Sprintf("%d", l.Quantity),
			fmt.Sprintf("%.2f%s", l.Rate, rateSuffix(l.DalaliType)),
			fmt.Sprintf("%.2f", l.Commission),
		}
		for i, v := range cols {
			pdf.CellFormat(widths[i], 7, v, "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3]+widths[4]+widths[5], 8, "Total Dalali", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[6], 8, fmt.Sprintf("%.2f", inv.TotalCommission), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	return pdf.Output(w)
}

func rateSuffix(dalaliType string) string {
	if dalaliType == dalali.Percent {
		return "%"
	}
	return "/Q"
}
