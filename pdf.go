package ledgerxgo

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
)

const pdfDateLayout = "2006-01-02"

var _ Notifier = (*PDFReceiptNotifier)(nil)

// PDFReceiptNotifier writes one receipt file per operation into Dir.
type PDFReceiptNotifier struct {
	Dir string
}

func NewPDFReceiptNotifier(dir string) (*PDFReceiptNotifier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &PDFReceiptNotifier{Dir: dir}, nil
}

func (p *PDFReceiptNotifier) Notify(ctx context.Context, rcpt Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(p.Dir, fmt.Sprintf("%s.pdf", rcpt.Operation.ID.String()))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = RenderReceipt(f, rcpt); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func RenderReceipt(w io.Writer, rcpt Receipt) error {
	op := rcpt.Operation
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Operation %s", op.ID.String()), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Operation receipt")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Operation", op.ID.String()},
		{"Type", string(op.Type)},
		{"Amount", op.Amount.StringFixed(amountPlaces)},
		{"Date", op.Date.Format(pdfDateLayout)},
		{"Client", rcpt.Principal.Name},
		{"Account", op.AccountID.String()},
	}
	if op.SourceAccountID != nil {
		rows = append(rows, [2]string{"From account", op.SourceAccountID.String()})
	}
	if rcpt.Counterparty != nil {
		rows = append(rows, [2]string{"To", rcpt.Counterparty.Name})
	}
	for _, r := range rows {
		pdf.CellFormat(45, 8, r[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, r[1], "", 1, "L", false, 0, "")
	}
	return pdf.Output(w)
}

// RenderStatement writes the account's operations as a table. Debits are the
// withdrawals and the transfers leaving the account.
func RenderStatement(w io.Writer, acct *Account, ops []Operation) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Statement %s", acct.ID.String()), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Statement of %s", acct.Name))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Account %s, balance %s", acct.ID.String(), acct.Balance.StringFixed(amountPlaces)))
	pdf.Ln(12)

	widths := []float64{45, 25, 30, 30, 50}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"Operation", "Date", "Type", "Amount", "Counter account"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, op := range ops {
		amount := op.Amount
		counter := ""
		switch {
		case op.Type == OpWithdraw:
			amount = amount.Neg()
		case op.Type == OpTransfer && op.AccountID != acct.ID:
			amount = amount.Neg()
			counter = op.AccountID.String()
		case op.Type == OpTransfer && op.SourceAccountID != nil:
			counter = op.SourceAccountID.String()
		}
		pdf.CellFormat(widths[0], 7, op.ID.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, op.Date.Format(pdfDateLayout), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, string(op.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 7, amount.StringFixed(amountPlaces), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, counter, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}
