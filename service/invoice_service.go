package service

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"crm-quote-print/models"
	"crm-quote-print/utils"
)

// ErrMissingQuote is returned when a print request carries no quote
var ErrMissingQuote = errors.New("quote is required")

// detailSeparator joins description, variant and SKU under an item name
const detailSeparator = " • "

//go:embed templates/invoice.html
var templateFS embed.FS

var invoiceTemplate = template.Must(template.ParseFS(templateFS, "templates/invoice.html"))

// InvoiceService builds standalone, printable HTML invoices from quotes
type InvoiceService struct {
	location *time.Location
}

// NewInvoiceService creates a new InvoiceService.
// Dates are rendered in location; nil means the local time zone.
func NewInvoiceService(location *time.Location) *InvoiceService {
	if location == nil {
		location = time.Local
	}
	return &InvoiceService{
		location: location,
	}
}

// partyLine is one line of the From / Bill To blocks
type partyLine struct {
	Text   template.HTML
	Strong bool
}

// itemRow is one row of the line item table
type itemRow struct {
	Index     int
	Name      template.HTML
	Details   template.HTML
	Quantity  template.HTML
	UnitPrice template.HTML
	LineTotal template.HTML
}

// invoiceView is the data passed to the invoice template.
// Text fields are escaped with utils.EscapeHTML before they get here.
type invoiceView struct {
	DocumentTitle string
	Title         template.HTML
	LogoSrc       any
	QuoteNumber   template.HTML
	IssuedAt      template.HTML
	From          []partyLine
	BillTo        []partyLine
	Items         []itemRow
	Subtotal      template.HTML
	Discount      template.HTML
	Tax           template.HTML
	Total         template.HTML
	Notes         template.HTML
}

// BuildInvoiceHTML renders the invoice document for req.
// Only req.Quote is required; every other field renders conditionally.
func (s *InvoiceService) BuildInvoiceHTML(req models.PrintRequest) (string, error) {
	if req.Quote == nil {
		return "", ErrMissingQuote
	}

	view := s.buildView(req)

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to execute invoice template: %w", err)
	}
	return buf.String(), nil
}

func (s *InvoiceService) buildView(req models.PrintRequest) invoiceView {
	q := req.Quote
	symbol := req.CurrencySymbol
	title := req.DocumentTitle()

	quoteNumber := utils.FormatQuoteID(q.QuoteID)
	if quoteNumber == "" {
		quoteNumber = utils.FormatQuoteID(q.ID)
	}

	var issuedAt string
	if issued := q.IssuedAt(); !issued.IsZero() {
		issuedAt = utils.FormattedDateTime(issued.In(s.location))
	}

	view := invoiceView{
		DocumentTitle: title,
		Title:         escaped(title),
		QuoteNumber:   escaped(quoteNumber),
		IssuedAt:      escaped(issuedAt),
		From:          companyLines(req.CompanyInfo),
		BillTo:        billToLines(q),
		Items:         itemRows(q.Items, symbol),
		Subtotal:      money(q.Subtotal, symbol),
		Discount:      money(q.DiscountAmount, symbol),
		Tax:           money(q.TaxAmount, symbol),
		Total:         money(q.TotalAmount, symbol),
		Notes:         escaped(q.Notes),
	}
	if req.CompanyInfo != nil {
		view.LogoSrc = logoSource(req.CompanyInfo.CompanyLogo)
	}
	return view
}

// logoSource trusts embedded images; any other reference is left to the
// template's URL sanitiser.
func logoSource(raw string) any {
	src := utils.ResolveLogoSrc(raw)
	if src == "" {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(src), "data:image/") {
		return template.URL(src)
	}
	return src
}

func companyLines(company *models.CompanyInfo) []partyLine {
	if company == nil {
		return nil
	}
	var lines []partyLine
	lines = appendLine(lines, company.CompanyName, true)
	lines = appendLine(lines, company.CompanyNumber, false)
	lines = appendLine(lines, company.CEOEmail, false)
	return lines
}

func billToLines(q *models.Quote) []partyLine {
	var lines []partyLine
	if q.Account != nil {
		lines = appendLine(lines, q.Account.Name, true)
	}
	if q.Contact != nil {
		lines = appendLine(lines, q.Contact.FullName(), false)
		lines = appendLine(lines, q.Contact.Email, false)
	}
	return lines
}

func appendLine(lines []partyLine, text string, strong bool) []partyLine {
	text = strings.TrimSpace(text)
	if text == "" {
		return lines
	}
	return append(lines, partyLine{Text: escaped(text), Strong: strong})
}

func itemRows(items []models.LineItem, symbol string) []itemRow {
	rows := make([]itemRow, 0, len(items))
	for i, item := range items {
		rows = append(rows, itemRow{
			Index:     i + 1,
			Name:      escaped(item.Name),
			Details:   itemDetails(item),
			Quantity:  quantity(item),
			UnitPrice: money(item.UnitPrice, symbol),
			LineTotal: money(item.LineTotal, symbol),
		})
	}
	return rows
}

func itemDetails(item models.LineItem) template.HTML {
	parts := make([]string, 0, 3)
	for _, p := range []string{item.Description, item.Variant, item.SKU} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, utils.EscapeHTML(p))
		}
	}
	return template.HTML(strings.Join(parts, detailSeparator))
}

func quantity(item models.LineItem) template.HTML {
	q := strconv.FormatFloat(utils.ToNumber(item.Quantity), 'f', -1, 64)
	if unit := strings.TrimSpace(item.Unit); unit != "" {
		q += " " + unit
	}
	return escaped(q)
}

func money(value models.Number, symbol string) template.HTML {
	return escaped(utils.FormatMoney(value, symbol))
}

// escaped marks text as safe for the template after escaping it
func escaped(text string) template.HTML {
	return template.HTML(utils.EscapeHTML(text))
}
