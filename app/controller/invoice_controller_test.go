package controller

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-quote-print/models"
	"crm-quote-print/printer"
	"crm-quote-print/repository"
)

type fakePrintService struct {
	rendered []models.PrintRequest
	printed  []models.PrintRequest
	html     string
	result   printer.Result
	err      error
}

func (f *fakePrintService) RenderQuoteInvoice(ctx context.Context, req models.PrintRequest) (string, error) {
	f.rendered = append(f.rendered, req)
	return f.html, f.err
}

func (f *fakePrintService) PrintQuoteInvoice(ctx context.Context, req models.PrintRequest) (printer.Result, error) {
	f.printed = append(f.printed, req)
	return f.result, f.err
}

type fakeQuotes struct {
	quotes map[string]*models.Quote
	asked  []string
}

func (f *fakeQuotes) GetByQuoteID(ctx context.Context, quoteID string) (*models.Quote, error) {
	f.asked = append(f.asked, quoteID)
	if q, ok := f.quotes[quoteID]; ok {
		return q, nil
	}
	return nil, repository.ErrQuoteNotFound
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestController(svc *fakePrintService, quotes repository.QuoteRepositoryInterface, stdin string) (*InvoiceController, *bytes.Buffer) {
	out := &bytes.Buffer{}
	c := NewInvoiceController(svc, quotes, Defaults{
		Company:        &models.CompanyInfo{CompanyName: "Default Co"},
		CurrencySymbol: "$",
		Title:          "Invoice",
	}, strings.NewReader(stdin), out, nil)
	return c, out
}

const bareQuote = `{"quote_id": "Q26-1-00006", "items": [], "total_amount": 336}`

func TestRender_BareQuoteToStdout(t *testing.T) {
	svc := &fakePrintService{html: "<html>invoice</html>"}
	c, out := newTestController(svc, nil, "")

	err := c.Render(context.Background(), []string{"-quote", writeFile(t, "q.json", bareQuote)})
	require.NoError(t, err)

	assert.Equal(t, "<html>invoice</html>", out.String())
	require.Len(t, svc.rendered, 1)
	req := svc.rendered[0]
	require.NotNil(t, req.Quote)
	assert.Equal(t, "Q26-1-00006", req.Quote.QuoteID)
	assert.Equal(t, "Default Co", req.CompanyInfo.CompanyName)
	assert.Equal(t, "$", req.CurrencySymbol)
	assert.Equal(t, "Invoice", req.Title)
}

func TestRender_EnvelopeFromStdinAndOutFile(t *testing.T) {
	svc := &fakePrintService{html: "<html>x</html>"}
	envelope := `{"quote": ` + bareQuote + `, "company_info": {"company_name": "Acme"}, "currency_symbol": "₱", "title": "Quotation"}`
	c, out := newTestController(svc, nil, envelope)

	dest := filepath.Join(t.TempDir(), "invoice.html")
	err := c.Render(context.Background(), []string{"-quote", "-", "-out", dest})
	require.NoError(t, err)

	assert.Empty(t, out.String())
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "<html>x</html>", string(data))

	req := svc.rendered[0]
	assert.Equal(t, "Acme", req.CompanyInfo.CompanyName)
	assert.Equal(t, "₱", req.CurrencySymbol)
	assert.Equal(t, "Quotation", req.Title)
}

func TestRender_FlagsOverrideFile(t *testing.T) {
	svc := &fakePrintService{}
	c, _ := newTestController(svc, nil, "")

	company := writeFile(t, "company.json", `{"company_name": "Flag Co", "company_logo": "drive:abc"}`)
	err := c.Render(context.Background(), []string{
		"-quote", writeFile(t, "q.json", bareQuote),
		"-company", company,
		"-currency", "€",
		"-title", "Pro Forma",
	})
	require.NoError(t, err)

	req := svc.rendered[0]
	assert.Equal(t, "Flag Co", req.CompanyInfo.CompanyName)
	assert.Equal(t, "drive:abc", req.CompanyInfo.CompanyLogo)
	assert.Equal(t, "€", req.CurrencySymbol)
	assert.Equal(t, "Pro Forma", req.Title)
}

func TestRender_CurrencySymbolPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		args     []string
		expected string
	}{
		{"bare quote takes default", bareQuote, nil, "$"},
		{"envelope without key takes default", `{"quote": ` + bareQuote + `}`, nil, "$"},
		{"explicit empty symbol is kept", `{"quote": ` + bareQuote + `, "currency_symbol": ""}`, nil, ""},
		{"explicit symbol is kept", `{"quote": ` + bareQuote + `, "currency_symbol": "₱"}`, nil, "₱"},
		{"flag wins over file", `{"quote": ` + bareQuote + `, "currency_symbol": ""}`, []string{"-currency", "€"}, "€"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakePrintService{}
			c, _ := newTestController(svc, nil, "")

			args := append([]string{"-quote", writeFile(t, "q.json", tt.file)}, tt.args...)
			require.NoError(t, c.Render(context.Background(), args))
			require.Len(t, svc.rendered, 1)
			assert.Equal(t, tt.expected, svc.rendered[0].CurrencySymbol)
		})
	}
}

func TestRender_DefaultCompanyIsCopied(t *testing.T) {
	svc := &fakePrintService{}
	c, _ := newTestController(svc, nil, "")

	require.NoError(t, c.Render(context.Background(), []string{"-quote", writeFile(t, "q.json", bareQuote)}))
	svc.rendered[0].CompanyInfo.CompanyName = "mutated"

	assert.Equal(t, "Default Co", c.defaults.Company.CompanyName)
}

func TestRender_QuoteFromRepository(t *testing.T) {
	svc := &fakePrintService{}
	quotes := &fakeQuotes{quotes: map[string]*models.Quote{
		"Q26-1-00006": {QuoteID: "Q26-1-00006"},
	}}
	c, _ := newTestController(svc, quotes, "")

	require.NoError(t, c.Render(context.Background(), []string{"-quote-id", "Q26-1-00006"}))
	assert.Equal(t, []string{"Q26-1-00006"}, quotes.asked)
	assert.Equal(t, "Q26-1-00006", svc.rendered[0].Quote.QuoteID)

	err := c.Render(context.Background(), []string{"-quote-id", "missing"})
	assert.ErrorIs(t, err, repository.ErrQuoteNotFound)
}

func TestRender_RequestErrors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
		want string
	}{
		{
			name: "no quote",
			args: func(t *testing.T) []string { return nil },
			want: "a quote is required",
		},
		{
			name: "both sources",
			args: func(t *testing.T) []string {
				return []string{"-quote", writeFile(t, "q.json", bareQuote), "-quote-id", "Q1"}
			},
			want: "not both",
		},
		{
			name: "no database",
			args: func(t *testing.T) []string { return []string{"-quote-id", "Q1"} },
			want: "needs a database",
		},
		{
			name: "missing file",
			args: func(t *testing.T) []string { return []string{"-quote", filepath.Join(t.TempDir(), "none.json")} },
			want: "failed to read",
		},
		{
			name: "invalid json",
			args: func(t *testing.T) []string { return []string{"-quote", writeFile(t, "q.json", "{nope")} },
			want: "invalid quote JSON",
		},
		{
			name: "invalid company",
			args: func(t *testing.T) []string {
				return []string{"-quote", writeFile(t, "q.json", bareQuote), "-company", writeFile(t, "c.json", "[]")}
			},
			want: "invalid company JSON",
		},
		{
			name: "unknown flag",
			args: func(t *testing.T) []string { return []string{"-bogus"} },
			want: "flag provided but not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakePrintService{}
			c, _ := newTestController(svc, nil, "")

			err := c.Render(context.Background(), tt.args(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, svc.rendered)
		})
	}
}

func TestRender_ServiceError(t *testing.T) {
	svc := &fakePrintService{err: errors.New("template broke")}
	c, out := newTestController(svc, nil, "")

	err := c.Render(context.Background(), []string{"-quote", writeFile(t, "q.json", bareQuote)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to render invoice")
	assert.Empty(t, out.String())
}

func TestPrint_WritesSummary(t *testing.T) {
	tests := []struct {
		name   string
		result printer.Result
		want   string
	}{
		{"frame", printer.Result{Outcome: printer.OutcomeSucceeded}, "Invoice-Q26-00006: succeeded\n"},
		{"window", printer.Result{Outcome: printer.OutcomeFellBackToWindow}, "Invoice-Q26-00006: fell_back_to_window\n"},
		{"slow assets", printer.Result{Outcome: printer.OutcomeSucceeded, AssetsTimedOut: true}, "Invoice-Q26-00006: succeeded (assets still loading)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakePrintService{result: tt.result}
			c, out := newTestController(svc, nil, "")

			err := c.Print(context.Background(), []string{"-quote", writeFile(t, "q.json", bareQuote)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
			require.Len(t, svc.printed, 1)
		})
	}
}

func TestPrint_PopupBlocked(t *testing.T) {
	svc := &fakePrintService{err: printer.ErrPopupBlocked}
	c, out := newTestController(svc, nil, "")

	err := c.Print(context.Background(), []string{"-quote", writeFile(t, "q.json", bareQuote)})
	require.Error(t, err)
	assert.ErrorIs(t, err, printer.ErrPopupBlocked)
	assert.Contains(t, err.Error(), "blocked")
	assert.Empty(t, out.String())
}

func TestPrint_OtherError(t *testing.T) {
	svc := &fakePrintService{err: printer.ErrPrintInvocationFailed}
	c, _ := newTestController(svc, nil, "")

	err := c.Print(context.Background(), []string{"-quote", writeFile(t, "q.json", bareQuote)})
	assert.ErrorIs(t, err, printer.ErrPrintInvocationFailed)
	assert.Contains(t, err.Error(), "failed to print invoice")
}
