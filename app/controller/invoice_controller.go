package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"crm-quote-print/models"
	"crm-quote-print/printer"
	"crm-quote-print/repository"
	"crm-quote-print/service"
)

// Defaults fill in request fields the command line leaves empty
type Defaults struct {
	Company        *models.CompanyInfo
	CurrencySymbol string
	Title          string
}

// InvoiceController handles the render and print commands
type InvoiceController struct {
	printService service.PrintServiceInterface
	quotes       repository.QuoteRepositoryInterface
	defaults     Defaults
	stdin        io.Reader
	stdout       io.Writer
	logger       *zap.Logger
}

// NewInvoiceController creates a new InvoiceController.
// quotes may be nil when no database is configured.
func NewInvoiceController(
	printService service.PrintServiceInterface,
	quotes repository.QuoteRepositoryInterface,
	defaults Defaults,
	stdin io.Reader,
	stdout io.Writer,
	logger *zap.Logger,
) *InvoiceController {
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceController{
		printService: printService,
		quotes:       quotes,
		defaults:     defaults,
		stdin:        stdin,
		stdout:       stdout,
		logger:       logger,
	}
}

// requestFlags are shared by render and print
type requestFlags struct {
	quoteFile   string
	quoteID     string
	companyFile string
	currency    string
	title       string
}

func (f *requestFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.quoteFile, "quote", "", "quote JSON file, or - for stdin")
	fs.StringVar(&f.quoteID, "quote-id", "", "load the quote with this id from the database")
	fs.StringVar(&f.companyFile, "company", "", "company info JSON file (defaults to configured company)")
	fs.StringVar(&f.currency, "currency", "", "currency symbol")
	fs.StringVar(&f.title, "title", "", "document title")
}

// Render handles: render [-quote file | -quote-id id] [-out file]
func (c *InvoiceController) Render(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var rf requestFlags
	rf.register(fs)
	out := fs.String("out", "", "write the HTML to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := c.buildRequest(ctx, rf)
	if err != nil {
		return err
	}

	html, err := c.printService.RenderQuoteInvoice(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to render invoice: %w", err)
	}

	if *out == "" {
		_, err = io.WriteString(c.stdout, html)
		return err
	}
	if err := os.WriteFile(*out, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *out, err)
	}
	c.logger.Info("invoice rendered", zap.String("path", *out), zap.Int("bytes", len(html)))
	return nil
}

// Print handles: print [-quote file | -quote-id id]
func (c *InvoiceController) Print(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var rf requestFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := c.buildRequest(ctx, rf)
	if err != nil {
		return err
	}

	result, err := c.printService.PrintQuoteInvoice(ctx, req)
	if err != nil {
		if errors.Is(err, printer.ErrPopupBlocked) {
			return fmt.Errorf("print window was blocked and no other print method is available: %w", err)
		}
		return fmt.Errorf("failed to print invoice: %w", err)
	}

	summary := fmt.Sprintf("%s: %s", service.JobName(req), result.Outcome)
	if result.AssetsTimedOut {
		summary += " (assets still loading)"
	}
	_, err = fmt.Fprintln(c.stdout, summary)
	return err
}

func (c *InvoiceController) buildRequest(ctx context.Context, rf requestFlags) (models.PrintRequest, error) {
	var (
		req         models.PrintRequest
		symbolGiven bool
	)

	switch {
	case rf.quoteFile != "" && rf.quoteID != "":
		return req, fmt.Errorf("use either -quote or -quote-id, not both")
	case rf.quoteFile != "":
		loaded, given, err := c.readRequest(rf.quoteFile)
		if err != nil {
			return req, err
		}
		req, symbolGiven = loaded, given
	case rf.quoteID != "":
		if c.quotes == nil {
			return req, fmt.Errorf("-quote-id needs a database: set DATABASE_URL")
		}
		quote, err := c.quotes.GetByQuoteID(ctx, rf.quoteID)
		if err != nil {
			return req, err
		}
		req.Quote = quote
	default:
		return req, fmt.Errorf("a quote is required: pass -quote or -quote-id")
	}

	if rf.companyFile != "" {
		company, err := c.readCompany(rf.companyFile)
		if err != nil {
			return req, err
		}
		req.CompanyInfo = company
	}
	if req.CompanyInfo == nil && c.defaults.Company != nil {
		company := *c.defaults.Company
		req.CompanyInfo = &company
	}

	// An explicit empty symbol in the request file is kept
	switch {
	case rf.currency != "":
		req.CurrencySymbol = rf.currency
	case !symbolGiven:
		req.CurrencySymbol = c.defaults.CurrencySymbol
	}
	if rf.title != "" {
		req.Title = rf.title
	}
	if req.Title == "" {
		req.Title = c.defaults.Title
	}
	return req, nil
}

// readRequest accepts either a full print request or a bare quote. It
// reports whether the file set currency_symbol, even to "".
func (c *InvoiceController) readRequest(path string) (models.PrintRequest, bool, error) {
	var req models.PrintRequest

	data, err := c.readInput(path)
	if err != nil {
		return req, false, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return req, false, fmt.Errorf("invalid quote JSON in %s: %w", path, err)
	}

	if _, ok := fields["quote"]; ok {
		if err := json.Unmarshal(data, &req); err != nil {
			return req, false, fmt.Errorf("invalid print request in %s: %w", path, err)
		}
		_, symbolGiven := fields["currency_symbol"]
		return req, symbolGiven, nil
	}

	var quote models.Quote
	if err := json.Unmarshal(data, &quote); err != nil {
		return req, false, fmt.Errorf("invalid quote in %s: %w", path, err)
	}
	req.Quote = &quote
	return req, false, nil
}

func (c *InvoiceController) readCompany(path string) (*models.CompanyInfo, error) {
	data, err := c.readInput(path)
	if err != nil {
		return nil, err
	}
	var company models.CompanyInfo
	if err := json.Unmarshal(data, &company); err != nil {
		return nil, fmt.Errorf("invalid company JSON in %s: %w", path, err)
	}
	return &company, nil
}

func (c *InvoiceController) readInput(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return bytes.TrimSpace(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
