// Package receipt renders a sale as a fixed-width text receipt for thermal
// printers and on-screen preview.
package receipt

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go-pos-checkout/internal/model"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Options struct {
	StoreName string
	Tagline   string
	Currency  string
	// Width in characters; 32 fits 58mm paper.
	Width    int
	Location *time.Location
	Language language.Tag
}

func (o Options) withDefaults() Options {
	if o.Width < 24 {
		o.Width = 32
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Language == language.Und {
		o.Language = language.Indonesian
	}
	return o
}

var months = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

const (
	qtyWidth   = 4
	priceWidth = 12
)

// Render lays out tx. Cash received and change appear for cash sales only.
func Render(tx *model.POSTransaction, opts Options) string {
	opts = opts.withDefaults()
	r := &renderer{width: opts.Width, p: message.NewPrinter(opts.Language), currency: opts.Currency}

	r.center(opts.StoreName)
	r.center(opts.Tagline)
	r.center(formatDate(tx.Timestamp.In(opts.Location)))
	r.center("Kasir: " + tx.CashierName)
	r.rule()
	r.item("Produk", "Qty", "Harga")
	r.rule()
	for _, it := range tx.Items {
		r.item(it.Product.Name, fmt.Sprint(it.Quantity), r.money(it.TotalPrice))
	}
	r.rule()
	r.pair("Total", r.money(tx.TotalAmount))
	if cash, ok := tx.Payment().(model.CashPayment); ok && tx.CashReceived != nil {
		r.pair("Tunai", r.money(cash.Received))
		r.pair("Kembali", r.money(cash.Change))
	}
	r.pair("Metode:", methodLabel(tx.PaymentMethod))
	r.rule()
	r.center("Terima kasih!")
	r.center("ID: " + shortID(tx.ID))
	return r.b.String()
}

func methodLabel(m model.PaymentMethod) string {
	if m == model.PaymentCash {
		return "Tunai"
	}
	return "Non-Tunai"
}

func formatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d %02d.%02d", t.Day(), months[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type renderer struct {
	b        strings.Builder
	width    int
	p        *message.Printer
	currency string
}

func (r *renderer) money(amount int64) string {
	return r.currency + r.p.Sprintf("%d", amount)
}

func (r *renderer) center(s string) {
	if s == "" {
		return
	}
	s = truncate(s, r.width)
	pad := (r.width - utf8.RuneCountInString(s)) / 2
	r.b.WriteString(strings.Repeat(" ", pad))
	r.b.WriteString(s)
	r.b.WriteByte('\n')
}

func (r *renderer) rule() {
	r.b.WriteString(strings.Repeat("-", r.width))
	r.b.WriteByte('\n')
}

func (r *renderer) item(name, qty, price string) {
	nameWidth := r.width - qtyWidth - priceWidth
	fmt.Fprintf(&r.b, "%-*s%*s%*s\n", nameWidth, truncate(name, nameWidth-1), qtyWidth, qty, priceWidth, price)
}

func (r *renderer) pair(label, value string) {
	fmt.Fprintf(&r.b, "%-*s%s\n", r.width-utf8.RuneCountInString(value), label, value)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
