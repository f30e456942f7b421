package printer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultChromeTimeout = 30 * time.Second
	afterPrintBinding    = "__invoiceAfterPrint"
	// A4 in inches
	paperWidth  = 8.27
	paperHeight = 11.69
	frameMargin = 0.4

	cssPxPerInch = 96
)

// ErrHostClosed is returned once the browser has been shut down
var ErrHostClosed = errors.New("chrome host is closed")

// hostDocument is loaded into the host tab. Its print stylesheet shows only
// the frame currently being printed.
const hostDocument = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8" />
<title>print host</title>
<style>
  html, body { margin: 0; padding: 0; background: #ffffff; }
  @media print {
    body > * { display: none !important; }
    body > iframe[data-printing] {
      display: block !important;
      visibility: visible !important;
      position: static !important;
      width: 100% !important;
      border: 0 !important;
    }
  }
</style>
</head>
<body></body>
</html>`

const createFrameJS = `function(id) {
  const frame = document.createElement('iframe');
  frame.id = id;
  frame.setAttribute('data-print-frame', '');
  frame.setAttribute('aria-hidden', 'true');
  frame.setAttribute('tabindex', '-1');
  frame.style.cssText = 'position:fixed;right:0;bottom:0;width:0;height:0;border:0;visibility:hidden;pointer-events:none;';
  document.body.appendChild(frame);
  return true;
}`

const frameReadyJS = `function(id) {
  const frame = document.getElementById(id);
  return !!(frame && frame.contentWindow && frame.contentDocument);
}`

const writeFrameJS = `function(id, html) {
  const frame = document.getElementById(id);
  if (!frame || !frame.contentDocument) {
    throw new Error('print frame is gone');
  }
  const doc = frame.contentDocument;
  doc.open();
  doc.write(html);
  doc.close();
  frame.contentWindow.addEventListener('afterprint', function() {
    window.` + afterPrintBinding + `(id);
  }, { once: true });
  return true;
}`

const listenAfterPrintJS = `function(id) {
  window.addEventListener('afterprint', function() {
    window.` + afterPrintBinding + `(id);
  }, { once: true });
  return true;
}`

// waitAssetsJS resolves when fonts are ready and every image has loaded
// or failed. The expression argument selects the document.
const waitAssetsJS = `function(doc) {
  if (!doc) {
    return false;
  }
  const images = Array.from(doc.images || []).map(function(img) {
    if (img.complete) {
      return Promise.resolve();
    }
    return new Promise(function(resolve) {
      img.addEventListener('load', resolve, { once: true });
      img.addEventListener('error', resolve, { once: true });
    });
  });
  const fonts = doc.fonts && doc.fonts.ready
    ? doc.fonts.ready.then(function() {}, function() {})
    : Promise.resolve();
  return Promise.all([fonts].concat(images)).then(function() { return true; });
}`

// prepareFramePrintJS lays the frame out at the printable page width and
// marks it for printing. Chrome never splits an iframe across pages, so a
// document taller than one page is refused and restored.
const prepareFramePrintJS = `function(id, width, maxHeight) {
  const frame = document.getElementById(id);
  if (!frame || !frame.contentWindow || !frame.contentDocument) {
    throw new Error('print frame is gone');
  }
  frame.style.width = width + 'px';
  const height = frame.contentDocument.documentElement.scrollHeight;
  if (height > maxHeight) {
    frame.style.width = '0';
    throw new Error('document is ' + height + 'px tall, a frame prints at most ' + maxHeight + 'px');
  }
  frame.style.height = height + 'px';
  frame.setAttribute('data-printing', '');
  frame.contentWindow.focus();
  return true;
}`

const finishFramePrintJS = `function(id) {
  const frame = document.getElementById(id);
  if (!frame) {
    return false;
  }
  frame.removeAttribute('data-printing');
  frame.style.width = '0';
  frame.style.height = '0';
  frame.contentWindow.dispatchEvent(new Event('afterprint'));
  return true;
}`

const cancelFramePrintJS = `function(id) {
  const frame = document.getElementById(id);
  if (frame) {
    frame.removeAttribute('data-printing');
    frame.style.width = '0';
    frame.style.height = '0';
  }
  return true;
}`

const finishWindowPrintJS = `function() {
  window.dispatchEvent(new Event('afterprint'));
  return true;
}`

const removeFrameJS = `function(id) {
  const frame = document.getElementById(id);
  if (frame) {
    frame.remove();
  }
  return true;
}`

// ChromeConfig contains configuration for the Chrome print host
type ChromeConfig struct {
	// ExecPath of the Chrome/Chromium binary. Empty means detect.
	ExecPath string
	// RemoteURL of a running Chrome DevTools endpoint (optional)
	// If set, no browser is launched
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// Timeout for a single browser operation
	Timeout time.Duration
	Logger  *zap.Logger
}

// ChromeHost is a Host backed by a headless Chrome instance.
//
// Frames are iframes in a single host tab; windows are new tabs. Printing
// renders the frame or tab to PDF and hands it to the Sink.
type ChromeHost struct {
	config *ChromeConfig
	logger *zap.Logger
	sink   Sink

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// printMu serializes frame prints, which share the host tab
	printMu sync.Mutex

	nextID  atomic.Int64
	mu      sync.Mutex
	waiters map[string]chan struct{}
	closed  bool
}

// NewChromeHost starts (or connects to) Chrome and prepares the host tab
func NewChromeHost(ctx context.Context, config *ChromeConfig, sink Sink) (*ChromeHost, error) {
	if sink == nil {
		return nil, fmt.Errorf("print sink is required")
	}
	if config == nil {
		config = &ChromeConfig{}
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultChromeTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &ChromeHost{
		config:  config,
		logger:  logger,
		sink:    sink,
		waiters: make(map[string]chan struct{}),
	}

	var allocCtx context.Context
	if config.RemoteURL != "" {
		allocCtx, h.allocCancel = chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), config.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("font-render-hinting", "none"),
		)
		if execPath := detectChromePath(config.ExecPath); execPath != "" {
			opts = append(opts, chromedp.ExecPath(execPath))
		}
		if config.NoSandbox {
			opts = append(opts, chromedp.NoSandbox)
		}
		allocCtx, h.allocCancel = chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	}

	h.browserCtx, h.browserCancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	chromedp.ListenTarget(h.browserCtx, h.onTargetEvent)

	// First Run allocates the browser with the lifetime of browserCtx
	if err := chromedp.Run(h.browserCtx); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	err := h.run(ctx, h.browserCtx,
		runtime.AddBinding(afterPrintBinding),
		chromedp.Navigate("about:blank"),
		setDocumentContent(hostDocument),
	)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to prepare print host: %w", err)
	}

	logger.Info("chrome print host ready", zap.Bool("remote", config.RemoteURL != ""))
	return h, nil
}

// CreateFrame inserts a hidden iframe into the host tab
func (h *ChromeHost) CreateFrame(ctx context.Context, job Job) (Frame, error) {
	if h.isClosed() {
		return nil, ErrHostClosed
	}

	id := h.newID("print-frame")
	if err := h.eval(ctx, h.browserCtx, createFrameJS, id); err != nil {
		return nil, err
	}

	h.logger.Debug("print frame created", zap.String("job", job.Name), zap.String("frame", id))
	return &chromeFrame{
		host: h,
		id:   id,
		doc: &chromeDocument{
			host:       h,
			tabCtx:     h.browserCtx,
			id:         id,
			job:        job,
			isFrame:    true,
			afterPrint: h.register(id),
		},
	}, nil
}

// OpenWindow opens a new tab for job
func (h *ChromeHost) OpenWindow(ctx context.Context, job Job) (Window, error) {
	if h.isClosed() {
		return nil, ErrHostClosed
	}

	id := h.newID("print-window")
	tabCtx, tabCancel := chromedp.NewContext(h.browserCtx)
	chromedp.ListenTarget(tabCtx, h.onTargetEvent)

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open print window: %w", err)
	}
	if err := h.run(ctx, tabCtx, runtime.AddBinding(afterPrintBinding), chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open print window: %w", err)
	}

	h.logger.Debug("print window opened", zap.String("job", job.Name), zap.String("window", id))
	return &chromeWindow{
		chromeDocument: &chromeDocument{
			host:       h,
			tabCtx:     tabCtx,
			id:         id,
			job:        job,
			afterPrint: h.register(id),
		},
		cancel: tabCancel,
	}, nil
}

// Close shuts the browser down. Safe to call more than once.
func (h *ChromeHost) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	if h.browserCancel != nil {
		h.browserCancel()
	}
	if h.allocCancel != nil {
		h.allocCancel()
	}
	return nil
}

func (h *ChromeHost) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *ChromeHost) newID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, h.nextID.Add(1))
}

// register returns the channel closed when id reports afterprint
func (h *ChromeHost) register(id string) chan struct{} {
	ch := make(chan struct{})
	h.mu.Lock()
	h.waiters[id] = ch
	h.mu.Unlock()
	return ch
}

func (h *ChromeHost) unregister(id string) {
	h.mu.Lock()
	delete(h.waiters, id)
	h.mu.Unlock()
}

// notify closes the waiter for id. Unknown ids are ignored.
func (h *ChromeHost) notify(id string) {
	h.mu.Lock()
	ch, ok := h.waiters[id]
	if ok {
		delete(h.waiters, id)
	}
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (h *ChromeHost) onTargetEvent(ev interface{}) {
	if e, ok := ev.(*runtime.EventBindingCalled); ok && e.Name == afterPrintBinding {
		h.notify(e.Payload)
	}
}

// run executes actions on tabCtx, bounded by the configured timeout and
// cancelled together with ctx.
func (h *ChromeHost) run(ctx context.Context, tabCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(tabCtx, h.config.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// eval calls a JS function with JSON-encoded args and requires a truthy result
func (h *ChromeHost) eval(ctx context.Context, tabCtx context.Context, fn string, args ...any) error {
	expr, err := jsCall(fn, args...)
	if err != nil {
		return err
	}
	var ok bool
	if err := h.run(ctx, tabCtx, chromedp.Evaluate(expr, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("script returned false")
	}
	return nil
}

func (h *ChromeHost) printToPDF(ctx context.Context, tabCtx context.Context, preferCSSPageSize bool) ([]byte, error) {
	var pdf []byte
	err := h.run(ctx, tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		params := page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(paperWidth).
			WithPaperHeight(paperHeight)
		if preferCSSPageSize {
			params = params.WithPreferCSSPageSize(true)
		} else {
			params = params.
				WithMarginTop(frameMargin).
				WithMarginBottom(frameMargin).
				WithMarginLeft(frameMargin).
				WithMarginRight(frameMargin)
		}
		data, _, err := params.Do(ctx)
		if err != nil {
			return err
		}
		pdf = data
		return nil
	}))
	if err != nil {
		return nil, err
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("generated PDF is empty")
	}
	return pdf, nil
}

// chromeFrame is an iframe in the host tab
type chromeFrame struct {
	host *ChromeHost
	id   string
	doc  *chromeDocument
}

func (f *chromeFrame) Document(ctx context.Context) (Document, error) {
	var ready bool
	expr, err := jsCall(frameReadyJS, f.id)
	if err != nil {
		return nil, err
	}
	if err := f.host.run(ctx, f.host.browserCtx, chromedp.Evaluate(expr, &ready)); err != nil {
		return nil, err
	}
	if !ready {
		return nil, fmt.Errorf("frame %s has no accessible document", f.id)
	}
	return f.doc, nil
}

func (f *chromeFrame) Remove(ctx context.Context) error {
	f.host.unregister(f.id)
	if f.host.isClosed() {
		return nil
	}
	return f.host.eval(ctx, f.host.browserCtx, removeFrameJS, f.id)
}

// chromeDocument is the document of a frame or of a window tab
type chromeDocument struct {
	host       *ChromeHost
	tabCtx     context.Context
	id         string
	job        Job
	isFrame    bool
	afterPrint chan struct{}
}

func (d *chromeDocument) Write(ctx context.Context, html string) error {
	if d.isFrame {
		return d.host.eval(ctx, d.tabCtx, writeFrameJS, d.id, html)
	}
	if err := d.host.run(ctx, d.tabCtx, setDocumentContent(html)); err != nil {
		return err
	}
	return d.host.eval(ctx, d.tabCtx, listenAfterPrintJS, d.id)
}

func (d *chromeDocument) WaitAssets(ctx context.Context) error {
	docExpr := "document"
	if d.isFrame {
		idJSON, err := json.Marshal(d.id)
		if err != nil {
			return err
		}
		docExpr = "document.getElementById(" + string(idJSON) + ").contentDocument"
	}
	expr := "(" + waitAssetsJS + ")(" + docExpr + ")"

	// No per-operation timeout here; the pipeline bounds the wait
	runCtx, cancel := context.WithCancel(d.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var settled bool
	err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &settled, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if !settled {
		return fmt.Errorf("document %s is not available", d.id)
	}
	return nil
}

func (d *chromeDocument) AfterPrint() <-chan struct{} {
	return d.afterPrint
}

func (d *chromeDocument) Print(ctx context.Context) error {
	if d.host.isClosed() {
		return ErrHostClosed
	}

	var (
		pdf []byte
		err error
	)
	if d.isFrame {
		pdf, err = d.printFrame(ctx)
	} else {
		pdf, err = d.printWindow(ctx)
	}
	if err != nil {
		return err
	}

	if err := d.host.sink.Deliver(ctx, d.job, pdf); err != nil {
		return err
	}

	// Printing is complete once the sink has the output
	var finishErr error
	if d.isFrame {
		finishErr = d.host.eval(ctx, d.tabCtx, finishFramePrintJS, d.id)
	} else {
		finishErr = d.host.eval(ctx, d.tabCtx, finishWindowPrintJS)
	}
	if err := finishErr; err != nil {
		d.host.logger.Debug("afterprint dispatch failed", zap.String("document", d.id), zap.Error(err))
	}
	return nil
}

func (d *chromeDocument) printFrame(ctx context.Context) ([]byte, error) {
	d.host.printMu.Lock()
	defer d.host.printMu.Unlock()

	width, height := framePrintableArea()
	if err := d.host.eval(ctx, d.tabCtx, prepareFramePrintJS, d.id, width, height); err != nil {
		return nil, err
	}
	pdf, err := d.host.printToPDF(ctx, d.tabCtx, false)
	if err != nil {
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.host.config.Timeout)
		defer cancel()
		_ = d.host.eval(restoreCtx, d.tabCtx, cancelFramePrintJS, d.id)
		return nil, err
	}
	return pdf, nil
}

func (d *chromeDocument) printWindow(ctx context.Context) ([]byte, error) {
	if err := d.host.run(ctx, d.tabCtx, chromedp.Evaluate(`window.focus()`, nil)); err != nil {
		return nil, err
	}
	return d.host.printToPDF(ctx, d.tabCtx, true)
}

// framePrintableArea is the A4 content box in CSS pixels, whole pixels only
func framePrintableArea() (width, height int) {
	w := (paperWidth - 2*frameMargin) * cssPxPerInch
	h := (paperHeight - 2*frameMargin) * cssPxPerInch
	return int(w), int(h)
}

// chromeWindow is a separate tab
type chromeWindow struct {
	*chromeDocument
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (w *chromeWindow) Close(_ context.Context) error {
	w.closeOnce.Do(func() {
		w.host.unregister(w.id)
		w.cancel()
	})
	return nil
}

// setDocumentContent replaces the main frame document of the current tab
func setDocumentContent(html string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		frameTree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
	})
}

// jsCall builds an expression that calls the function literal fn with args
func jsCall(fn string, args ...any) (string, error) {
	encoded := make([]string, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("failed to encode script argument: %w", err)
		}
		encoded[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(encoded, ", ") + ")", nil
}

// detectChromePath detects the path to Chrome/Chromium executable
// Checks the configured path, then CHROME_PATH, then common installation paths
func detectChromePath(configured string) string {
	candidates := []string{configured, os.Getenv("CHROME_PATH")}
	candidates = append(candidates,
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var (
	_ Host     = (*ChromeHost)(nil)
	_ Frame    = (*chromeFrame)(nil)
	_ Window   = (*chromeWindow)(nil)
	_ Document = (*chromeDocument)(nil)
)
