package models

import "strings"

// EntityRef is the slice of an account or contact record that an invoice shows
type EntityRef struct {
	ID        any    `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// FullName joins first and last name, skipping whichever part is missing
func (e *EntityRef) FullName() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{e.FirstName, e.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// LineItem represents one priced entry of a quote
type LineItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant,omitempty"`
	SKU         string `json:"sku,omitempty"`
	Quantity    Number `json:"quantity"`
	Unit        string `json:"unit,omitempty"`
	UnitPrice   Number `json:"unit_price"`
	LineTotal   Number `json:"line_total"`
}

// Quote represents a priced proposal tied to an account and contact.
// Totals are supplied pre-computed and are never reconciled here.
// Example:
//
//	{
//	  "quote_id": "Q26-1-00006",
//	  "account": {"name": "Acme Corp"},
//	  "contact": {"first_name": "Ana", "last_name": "Reyes", "email": "ana@acme.test"},
//	  "items": [{"name": "Router", "quantity": 2, "unit": "pcs", "unit_price": 150, "line_total": 300}],
//	  "subtotal": 300, "discount_amount": 0, "tax_amount": 36, "total_amount": 336,
//	  "created_at": "2026-01-04T10:30:00Z"
//	}
type Quote struct {
	ID             any        `json:"id,omitempty"`
	QuoteID        any        `json:"quote_id,omitempty"`
	Account        *EntityRef `json:"account,omitempty"`
	Contact        *EntityRef `json:"contact,omitempty"`
	Items          []LineItem `json:"items"`
	Subtotal       Number     `json:"subtotal"`
	DiscountAmount Number     `json:"discount_amount"`
	TaxAmount      Number     `json:"tax_amount"`
	TotalAmount    Number     `json:"total_amount"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      Timestamp  `json:"created_at"`
	UpdatedAt      Timestamp  `json:"updated_at"`
}

// IssuedAt prefers the creation time and falls back to the last update.
// The zero time means neither is known.
func (q *Quote) IssuedAt() Timestamp {
	if !q.CreatedAt.IsZero() {
		return q.CreatedAt
	}
	return q.UpdatedAt
}
