package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"crm-quote-print/app/controller"
	"crm-quote-print/app/router"
	"crm-quote-print/config"
	"crm-quote-print/db"
	"crm-quote-print/printer"
	"crm-quote-print/repository"
	"crm-quote-print/service"
)

// Options selects which parts of the application are started
type Options struct {
	// StartBrowser launches the print host; render-only commands leave it off
	StartBrowser bool
}

// App holds the wired application
type App struct {
	Controllers *router.Controllers

	host   *printer.ChromeHost
	dbOpen bool
	logger *zap.Logger
}

// Initialize initializes the application
func Initialize(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{logger: log}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// Initialize database connection when configured
	var quotes repository.QuoteRepositoryInterface
	if dsn := cfg.Database.DSN(); dsn != "" {
		if err := db.InitDB(ctx, dsn); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.dbOpen = true
		quotes = repository.NewQuoteRepository(db.DB, log)
	}

	// Drive-hosted logos are optional
	var drive service.DriveServiceInterface
	if cfg.Google.Credentials != "" {
		driveService, err := service.NewDriveService(ctx, cfg.Google.Credentials)
		if err != nil {
			log.Warn("drive logos disabled", zap.Error(err))
		} else {
			drive = driveService
		}
	}

	logos := service.NewLogoService(drive, cfg.Logo.MaxDimension, log)
	invoices := service.NewInvoiceService(loc)

	var invoicePrinter service.InvoicePrinter
	if opts.StartBrowser {
		sink, err := printer.NewDirSink(cfg.Print.OutputDir, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		host, err := printer.NewChromeHost(ctx, &printer.ChromeConfig{
			ExecPath:  cfg.Chrome.Path,
			RemoteURL: cfg.Chrome.RemoteURL,
			NoSandbox: cfg.Chrome.NoSandbox,
			Timeout:   cfg.Chrome.Timeout,
			Logger:    log,
		}, sink)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to start print host: %w", err)
		}
		a.host = host
		invoicePrinter = printer.NewPipeline(host, &printer.PipelineConfig{
			AssetTimeout:   cfg.Print.AssetTimeout,
			CleanupTimeout: cfg.Print.CleanupTimeout,
			Clock:          clockwork.NewRealClock(),
			Logger:         log,
		})
	}

	printService := service.NewPrintService(invoices, logos, invoicePrinter, log)

	// Create controllers
	a.Controllers = &router.Controllers{
		Invoice: controller.NewInvoiceController(printService, quotes, controller.Defaults{
			Company:        cfg.CompanyInfo(),
			CurrencySymbol: cfg.Print.CurrencySymbol,
			Title:          cfg.Print.Title,
		}, os.Stdin, os.Stdout, log),
	}

	return a, nil
}

// Close stops the print host and closes the database
func (a *App) Close() {
	if a.host != nil {
		if err := a.host.Close(); err != nil {
			a.logger.Warn("failed to close print host", zap.Error(err))
		}
		a.host = nil
	}
	if a.dbOpen {
		if err := db.CloseDB(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
		a.dbOpen = false
	}
}
