package printer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const integrationCleanupTimeout = 15 * time.Second

// startChromePipeline launches a real browser, or skips when none is installed
func startChromePipeline(t *testing.T) (*ChromeHost, *DirSink, *Pipeline) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping chrome integration test in short mode")
	}
	if detectChromePath("") == "" {
		t.Skip("chrome is not installed")
	}

	sink, err := NewDirSink(t.TempDir(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	host, err := NewChromeHost(ctx, &ChromeConfig{NoSandbox: true, Timeout: 30 * time.Second}, sink)
	require.NoError(t, err)
	t.Cleanup(func() { host.Close() })

	pipeline := NewPipeline(host, &PipelineConfig{CleanupTimeout: integrationCleanupTimeout})
	return host, sink, pipeline
}

func invoiceDocument(rows int) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Invoice Q26-00006</title>
<style>body { font-family: sans-serif; } td { padding: 8px; border-bottom: 1px solid #ddd; }</style>
</head><body><h1>Invoice</h1><table><tbody>`)
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&b, "<tr><td>%d</td><td>Router</td><td>2 pcs</td><td>₱300.00</td></tr>", i)
	}
	b.WriteString(`</tbody></table><p>Total ₱336.00</p></body></html>`)
	return b.String()
}

func printFrameCount(t *testing.T, host *ChromeHost) int {
	t.Helper()
	var count int
	err := host.run(context.Background(), host.browserCtx,
		chromedp.Evaluate(`document.querySelectorAll('iframe[data-print-frame]').length`, &count))
	require.NoError(t, err)
	return count
}

func requirePDF(t *testing.T, sink *DirSink, job Job) {
	t.Helper()
	data, err := os.ReadFile(sink.PathFor(job))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"), "output is not a PDF")
}

func TestChromePipeline_PrintsFromFrame(t *testing.T) {
	host, sink, pipeline := startChromePipeline(t)
	job := Job{Name: "Invoice-Q26-00006", HTML: invoiceDocument(1)}

	start := time.Now()
	result, err := pipeline.Print(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.NoError(t, result.FrameErr)
	// afterprint came back through the binding before the fallback timer
	assert.Less(t, time.Since(start), integrationCleanupTimeout)

	requirePDF(t, sink, job)
	assert.Equal(t, 0, printFrameCount(t, host))
}

func TestChromePipeline_TallDocumentFallsBackToWindow(t *testing.T) {
	host, sink, pipeline := startChromePipeline(t)
	job := Job{Name: "Invoice-Q26-00007", HTML: invoiceDocument(120)}

	result, err := pipeline.Print(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFellBackToWindow, result.Outcome)
	assert.True(t, errors.Is(result.FrameErr, ErrPrintInvocationFailed), "frame error: %v", result.FrameErr)

	requirePDF(t, sink, job)
	assert.Equal(t, 0, printFrameCount(t, host))
}

func TestChromePipeline_ClosedHostFailsFast(t *testing.T) {
	host, _, pipeline := startChromePipeline(t)
	require.NoError(t, host.Close())

	result, err := pipeline.Print(context.Background(), Job{Name: "late", HTML: invoiceDocument(1)})
	assert.ErrorIs(t, err, ErrPopupBlocked)
	assert.Equal(t, OutcomeFailed, result.Outcome)
}
