package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"crm-quote-print/models"
	"crm-quote-print/printer"
	"crm-quote-print/utils"
)

// InvoicePrinter delivers a rendered document to the print facility
type InvoicePrinter interface {
	Print(ctx context.Context, job printer.Job) (printer.Result, error)
}

// LogoEmbedder resolves a company logo reference into an embeddable source
type LogoEmbedder interface {
	EmbedLogo(ctx context.Context, raw string) (string, error)
}

// PrintService renders quote invoices and prints them
type PrintService struct {
	invoices *InvoiceService
	logos    LogoEmbedder
	printer  InvoicePrinter
	logger   *zap.Logger
}

// NewPrintService creates a new PrintService. logos and printer may be nil;
// without a printer only rendering is available.
func NewPrintService(invoices *InvoiceService, logos LogoEmbedder, invoicePrinter InvoicePrinter, logger *zap.Logger) *PrintService {
	if invoices == nil {
		invoices = NewInvoiceService(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrintService{
		invoices: invoices,
		logos:    logos,
		printer:  invoicePrinter,
		logger:   logger,
	}
}

// RenderQuoteInvoice returns the invoice document for req
func (s *PrintService) RenderQuoteInvoice(ctx context.Context, req models.PrintRequest) (string, error) {
	if req.Quote == nil {
		return "", ErrMissingQuote
	}
	return s.invoices.BuildInvoiceHTML(s.embedLogo(ctx, req))
}

// PrintQuoteInvoice renders the invoice for req and prints it.
// ErrMissingQuote is returned before anything is rendered or printed.
func (s *PrintService) PrintQuoteInvoice(ctx context.Context, req models.PrintRequest) (printer.Result, error) {
	if req.Quote == nil {
		return printer.Result{Outcome: printer.OutcomeFailed}, ErrMissingQuote
	}
	if s.printer == nil {
		return printer.Result{Outcome: printer.OutcomeFailed}, fmt.Errorf("printer is not configured")
	}

	html, err := s.RenderQuoteInvoice(ctx, req)
	if err != nil {
		return printer.Result{Outcome: printer.OutcomeFailed}, err
	}

	job := printer.Job{Name: JobName(req), HTML: html}
	s.logger.Debug("printing quote invoice", zap.String("job", job.Name), zap.Int("html_bytes", len(html)))
	return s.printer.Print(ctx, job)
}

// JobName names a print job after the document title and quote number
func JobName(req models.PrintRequest) string {
	name := req.DocumentTitle()
	if req.Quote == nil {
		return name
	}
	number := utils.FormatQuoteID(req.Quote.QuoteID)
	if number == "" {
		number = utils.FormatQuoteID(req.Quote.ID)
	}
	if number != "" {
		name += "-" + number
	}
	return name
}

// embedLogo returns req with the company logo embedded. The caller's
// CompanyInfo is never modified; on failure the logo reference is kept as given.
func (s *PrintService) embedLogo(ctx context.Context, req models.PrintRequest) models.PrintRequest {
	if s.logos == nil || req.CompanyInfo == nil || req.CompanyInfo.CompanyLogo == "" {
		return req
	}

	logo, err := s.logos.EmbedLogo(ctx, req.CompanyInfo.CompanyLogo)
	if err != nil {
		s.logger.Warn("failed to embed company logo", zap.String("logo", req.CompanyInfo.CompanyLogo), zap.Error(err))
		return req
	}

	company := *req.CompanyInfo
	company.CompanyLogo = logo
	req.CompanyInfo = &company
	return req
}
