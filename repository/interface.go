package repository

import (
	"context"

	"crm-quote-print/models"
)

// QuoteRepositoryInterface defines the contract for quote repository operations
type QuoteRepositoryInterface interface {
	GetByQuoteID(ctx context.Context, quoteID string) (*models.Quote, error)
}
