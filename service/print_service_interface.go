package service

import (
	"context"

	"crm-quote-print/models"
	"crm-quote-print/printer"
)

// PrintServiceInterface defines the contract for invoice rendering and printing
type PrintServiceInterface interface {
	RenderQuoteInvoice(ctx context.Context, req models.PrintRequest) (string, error)
	PrintQuoteInvoice(ctx context.Context, req models.PrintRequest) (printer.Result, error)
}

var _ PrintServiceInterface = (*PrintService)(nil)
