package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"crm-quote-print/db"
	"crm-quote-print/models"
)

// ErrQuoteNotFound is returned when no quote matches the requested identifier
var ErrQuoteNotFound = errors.New("quote not found")

// QuoteRepository reads quotes with their account, contact and line items.
// It never writes.
type QuoteRepository struct {
	conn   *sql.DB
	logger *zap.Logger
}

// NewQuoteRepository creates a new QuoteRepository. A nil conn uses db.DB.
func NewQuoteRepository(conn *sql.DB, logger *zap.Logger) *QuoteRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteRepository{conn: conn, logger: logger}
}

// Ensure QuoteRepository implements QuoteRepositoryInterface
var _ QuoteRepositoryInterface = (*QuoteRepository)(nil)

const queryQuote = `
	SELECT q.id, q.quote_id,
		a.id, COALESCE(a.name, ''),
		c.id, COALESCE(c.first_name, ''), COALESCE(c.last_name, ''), COALESCE(c.email, ''),
		COALESCE(q.subtotal, 0)::float8, COALESCE(q.discount_amount, 0)::float8,
		COALESCE(q.tax_amount, 0)::float8, COALESCE(q.total_amount, 0)::float8,
		COALESCE(q.notes, ''), q.created_at, q.updated_at
	FROM quotes q
	LEFT JOIN accounts a ON a.id = q.account_id
	LEFT JOIN contacts c ON c.id = q.contact_id
	WHERE q.quote_id = $1
`

const queryQuoteItems = `
	SELECT COALESCE(name, ''), COALESCE(description, ''), COALESCE(variant, ''), COALESCE(sku, ''),
		COALESCE(quantity, 0)::float8, COALESCE(unit, ''),
		COALESCE(unit_price, 0)::float8, COALESCE(line_total, 0)::float8
	FROM quote_items
	WHERE quote_id = $1
	ORDER BY position, id
`

// GetByQuoteID loads the quote whose display identifier is quoteID
func (r *QuoteRepository) GetByQuoteID(ctx context.Context, quoteID string) (*models.Quote, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return nil, fmt.Errorf("quote id is required")
	}

	conn := r.conn
	if conn == nil {
		conn = db.DB
	}
	if conn == nil {
		return nil, fmt.Errorf("database is not initialized")
	}

	var (
		id                             int64
		displayID                      string
		accountID, contactID           sql.NullInt64
		accountName                    string
		firstName, lastName, email     string
		subtotal, discount, tax, total float64
		notes                          string
		createdAt, updatedAt           sql.NullTime
	)
	err := conn.QueryRowContext(ctx, queryQuote, quoteID).Scan(
		&id, &displayID,
		&accountID, &accountName,
		&contactID, &firstName, &lastName, &email,
		&subtotal, &discount, &tax, &total,
		&notes, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrQuoteNotFound, quoteID)
		}
		r.logger.Error("failed to fetch quote", zap.String("quote_id", quoteID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}

	quote := &models.Quote{
		ID:             id,
		QuoteID:        displayID,
		Subtotal:       models.Number(subtotal),
		DiscountAmount: models.Number(discount),
		TaxAmount:      models.Number(tax),
		TotalAmount:    models.Number(total),
		Notes:          notes,
	}
	if accountID.Valid {
		quote.Account = &models.EntityRef{ID: accountID.Int64, Name: accountName}
	}
	if contactID.Valid {
		quote.Contact = &models.EntityRef{ID: contactID.Int64, FirstName: firstName, LastName: lastName, Email: email}
	}
	if createdAt.Valid {
		quote.CreatedAt = models.NewTimestamp(createdAt.Time)
	}
	if updatedAt.Valid {
		quote.UpdatedAt = models.NewTimestamp(updatedAt.Time)
	}

	items, err := r.getItems(ctx, conn, id)
	if err != nil {
		return nil, err
	}
	quote.Items = items

	r.logger.Debug("quote loaded", zap.String("quote_id", quoteID), zap.Int("items", len(items)))
	return quote, nil
}

func (r *QuoteRepository) getItems(ctx context.Context, conn *sql.DB, quoteID int64) ([]models.LineItem, error) {
	rows, err := conn.QueryContext(ctx, queryQuoteItems, quoteID)
	if err != nil {
		r.logger.Error("failed to fetch quote items", zap.Int64("id", quoteID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch quote items: %w", err)
	}
	defer rows.Close()

	items := make([]models.LineItem, 0)
	for rows.Next() {
		var (
			item                           models.LineItem
			quantity, unitPrice, lineTotal float64
		)
		if err := rows.Scan(
			&item.Name, &item.Description, &item.Variant, &item.SKU,
			&quantity, &item.Unit, &unitPrice, &lineTotal,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}
		item.Quantity = models.Number(quantity)
		item.UnitPrice = models.Number(unitPrice)
		item.LineTotal = models.Number(lineTotal)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quote items: %w", err)
	}
	return items, nil
}
