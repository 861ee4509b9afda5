// Package report renders a daily summary as a printable PDF.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"posledger/internal/core"
)

const (
	margin    = 10.0
	rowHeight = 7.0
	fontName  = "Helvetica"
	timeFmt   = "2006-01-02 15:04"
)

// Column offsets of the transaction table, relative to the left margin.
var (
	colType   = margin + 5
	colAmount = margin + 40
	colCharge = margin + 75
	colMode   = margin + 110
	colTime   = margin + 150
)

type Renderer struct {
	currency string
	compress bool
}

type Option func(*Renderer)

// WithCurrency sets the prefix used for money values. Core PDF fonts only
// cover Latin-1 so symbols such as ₦ will not render.
func WithCurrency(symbol string) Option {
	return func(r *Renderer) { r.currency = symbol }
}

// WithCompression toggles content stream compression. It is on by default.
func WithCompression(on bool) Option {
	return func(r *Renderer) { r.compress = on }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{currency: core.DefaultCurrencySymbol, compress: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Filename is the download name for a report of day and filter.
func Filename(day time.Time, filter core.TypeFilter) string {
	return fmt.Sprintf("pos_summary_%s_%s.pdf", day.Format(core.DateLayout), filter.String())
}

// page tracks the cursor and page numbering while drawing.
type page struct {
	pdf    *fpdf.Fpdf
	y      float64
	width  float64
	height float64
	n      int
}

func (p *page) footer() {
	p.pdf.SetFont(fontName, "", 10)
	label := "Page " + strconv.Itoa(p.n)
	p.pdf.Text(p.width-margin-p.pdf.GetStringWidth(label), p.height-margin, label)
}

// ensure starts a new page when need millimetres do not fit above the
// bottom margin. The current font is restored afterwards.
func (p *page) ensure(need float64, style string, size float64) {
	if p.y+need <= p.height-margin {
		return
	}
	p.footer()
	p.pdf.AddPage()
	p.n++
	p.y = margin
	p.pdf.SetFont(fontName, style, size)
}

func (p *page) line(x float64, size float64, text string, advance float64) {
	p.ensure(advance, "", size)
	p.pdf.Text(x, p.y, text)
	p.y += advance
}

// Render writes summary as an A4 PDF to w and returns the page count.
func (r *Renderer) Render(w io.Writer, summary core.DailySummary, filter core.TypeFilter) (int, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle("POS Daily Summary", false)
	pdf.AddPage()

	width, height := pdf.GetPageSize()
	p := &page{pdf: pdf, y: 15, width: width, height: height, n: 1}

	pdf.SetFont(fontName, "", 24)
	p.line(margin, 24, "POS Daily Summary", 15)

	pdf.SetFont(fontName, "", 12)
	p.line(margin, 12, "Date: "+summary.SummaryDate.Format(core.DateLayout), 7)
	p.line(margin, 12, "Filter Type: "+filter.Label(), 15)

	pdf.SetFont(fontName, "", 18)
	p.line(margin, 18, "Summary Metrics", 10)

	pdf.SetFont(fontName, "", 12)
	p.line(margin+5, 12, fmt.Sprintf("Total Transactions: %d", summary.TotalTransactions), 7)
	p.line(margin+10, 12, fmt.Sprintf("Deposits: %d", summary.TotalDeposits), 7)
	p.line(margin+10, 12, fmt.Sprintf("Withdrawals: %d", summary.TotalWithdrawals), 10)

	p.line(margin+5, 12, "Total Amount Processed: "+core.FormatMoney(summary.TotalAmountProcessed, r.currency), 7)
	p.line(margin+10, 12, "Total Deposit Amount: "+core.FormatMoney(summary.TotalDepositAmount, r.currency), 7)
	p.line(margin+10, 12, "Total Withdrawal Amount: "+core.FormatMoney(summary.TotalWithdrawalAmount, r.currency), 10)

	p.line(margin+5, 12, "Total Earnings: "+core.FormatMoney(summary.TotalEarnings, r.currency), 7)
	p.line(margin+10, 12, "Earnings From Account: "+core.FormatMoney(summary.EarningsFromAccount, r.currency), 7)
	p.line(margin+10, 12, "Earnings Cash: "+core.FormatMoney(summary.EarningsCash, r.currency), 15)

	pdf.SetFont(fontName, "", 18)
	p.line(margin, 18, "All Filtered Transactions", 10)

	if len(summary.AllFilteredTransactions) == 0 {
		pdf.SetFont(fontName, "", 12)
		p.line(margin+5, 12, "No transactions recorded for this filter yet.", 7)
	} else {
		r.table(p, summary.AllFilteredTransactions)
	}

	p.footer()

	if err := pdf.Output(w); err != nil {
		return 0, fmt.Errorf("render report: %w", err)
	}
	return p.n, nil
}

func (r *Renderer) table(p *page, txs []core.Transaction) {
	pdf := p.pdf

	pdf.SetFont(fontName, "B", 10)
	p.ensure(rowHeight*2, "B", 10)
	pdf.Text(colType, p.y, "Type")
	pdf.Text(colAmount, p.y, "Amount")
	pdf.Text(colCharge, p.y, "Charge")
	pdf.Text(colMode, p.y, "Mode")
	pdf.Text(colTime, p.y, "Time")
	p.y += rowHeight - 2
	pdf.Line(margin, p.y, p.width-margin, p.y)
	p.y += rowHeight

	pdf.SetFont(fontName, "", 10)
	for _, t := range txs {
		p.ensure(rowHeight, "", 10)
		pdf.Text(colType, p.y, t.Type.Label())
		pdf.Text(colAmount, p.y, core.FormatMoney(t.Amount, r.currency))
		pdf.Text(colCharge, p.y, core.FormatMoney(t.Charge, r.currency))
		pdf.Text(colMode, p.y, t.ChargeMode.Label())
		pdf.Text(colTime, p.y, t.Timestamp.Format(timeFmt))
		p.y += rowHeight
	}
}
