package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"crm-quote-print/app"
	"crm-quote-print/app/router"
	"crm-quote-print/config"
	"crm-quote-print/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Load .env file in development (ignores error if file doesn't exist)
	// In production, variables should be set directly
	envLoaded := false
	if os.Getenv("ENV") != "production" {
		// Use Overload to ensure .env values override system environment variables
		envLoaded = godotenv.Overload(".env") == nil
	}

	fs := flag.NewFlagSet("crm-quote-print", flag.ContinueOnError)
	configFile := fs.String("config", "", "path to a TOML config file (default ./config.toml if present)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: crm-quote-print [-config file] <command> [flags]")
		router.Usage(fs.Output())
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	if envLoaded {
		log.Debug("loaded environment from .env")
	}

	route, ok := router.Lookup(fs.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize application
	application, err := app.Initialize(ctx, cfg, log, app.Options{StartBrowser: route.NeedsPrinter})
	if err != nil {
		log.Error("failed to initialize", zap.Error(err))
		return 1
	}
	defer application.Close()

	if err := router.Dispatch(ctx, application.Controllers, fs.Args()); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("interrupted", zap.String("command", route.Name))
			return 130
		}
		log.Error("command failed", zap.String("command", route.Name), zap.Error(err))
		return 1
	}
	return 0
}
