package models

// DefaultInvoiceTitle is used when a PrintRequest has no title
const DefaultInvoiceTitle = "Invoice"

// PrintRequest is everything needed to print one quote invoice.
// Only Quote is required.
type PrintRequest struct {
	Quote          *Quote       `json:"quote"`
	CompanyInfo    *CompanyInfo `json:"company_info,omitempty"`
	CurrencySymbol string       `json:"currency_symbol,omitempty"`
	Title          string       `json:"title,omitempty"`
}

// DocumentTitle returns the title or DefaultInvoiceTitle
func (r PrintRequest) DocumentTitle() string {
	if r.Title == "" {
		return DefaultInvoiceTitle
	}
	return r.Title
}
