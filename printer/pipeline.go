package printer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	// DefaultAssetTimeout bounds how long printing waits for images and fonts
	DefaultAssetTimeout = 2500 * time.Millisecond
	// DefaultCleanupTimeout bounds how long a frame or window outlives its
	// print when no "print finished" notification arrives
	DefaultCleanupTimeout = 4 * time.Second

	releaseTimeout = 5 * time.Second
)

// Outcome describes how a print job was delivered
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeSucceeded
	OutcomeFellBackToWindow
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFellBackToWindow:
		return "fell_back_to_window"
	default:
		return "failed"
	}
}

// Result is the outcome of Pipeline.Print
type Result struct {
	Outcome Outcome
	// FrameErr is the frame failure that caused a fallback to a window
	FrameErr error
	// AssetsTimedOut is set when printing started before assets settled
	AssetsTimedOut bool
}

// PipelineConfig contains configuration for the print pipeline
type PipelineConfig struct {
	AssetTimeout   time.Duration
	CleanupTimeout time.Duration
	// Clock drives both timers; tests pass a fake clock
	Clock  clockwork.Clock
	Logger *zap.Logger
}

// Pipeline prints documents through a hidden frame, falling back to a
// new window when the frame cannot be used.
type Pipeline struct {
	host           Host
	assetTimeout   time.Duration
	cleanupTimeout time.Duration
	clock          clockwork.Clock
	logger         *zap.Logger
}

// NewPipeline creates a new Pipeline on top of host
func NewPipeline(host Host, config *PipelineConfig) *Pipeline {
	if config == nil {
		config = &PipelineConfig{}
	}

	p := &Pipeline{
		host:           host,
		assetTimeout:   config.AssetTimeout,
		cleanupTimeout: config.CleanupTimeout,
		clock:          config.Clock,
		logger:         config.Logger,
	}
	if p.assetTimeout <= 0 {
		p.assetTimeout = DefaultAssetTimeout
	}
	if p.cleanupTimeout <= 0 {
		p.cleanupTimeout = DefaultCleanupTimeout
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Print delivers job to the platform print facility.
//
// The job is first printed from a hidden frame. If the frame cannot be
// created, its document cannot be reached or printing it fails, the frame
// is removed and the same HTML is printed from a new window. Print returns
// after the frame or window has been released.
//
// Only total failure is returned as an error: a *PrintError with
// ErrCodePopupBlocked or ErrCodeInvocationFailed, or the context error.
func (p *Pipeline) Print(ctx context.Context, job Job) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}

	log := p.logger.With(zap.String("job", job.Name))
	start := p.clock.Now()

	timedOut, frameErr := p.printInFrame(ctx, log, job)
	if frameErr == nil {
		log.Info("print job delivered",
			zap.Stringer("outcome", OutcomeSucceeded),
			zap.Bool("assets_timed_out", timedOut),
			zap.Duration("duration", p.clock.Since(start)))
		return Result{Outcome: OutcomeSucceeded, AssetsTimedOut: timedOut}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{Outcome: OutcomeFailed, FrameErr: frameErr}, err
	}

	log.Warn("frame print failed, falling back to window", zap.Error(frameErr))

	result := Result{FrameErr: frameErr}
	timedOut, err := p.printInWindow(ctx, log, job)
	if err != nil {
		result.Outcome = OutcomeFailed
		log.Error("print job failed", zap.Error(err))
		return result, err
	}

	result.Outcome = OutcomeFellBackToWindow
	result.AssetsTimedOut = timedOut
	log.Info("print job delivered",
		zap.Stringer("outcome", result.Outcome),
		zap.Bool("assets_timed_out", timedOut),
		zap.Duration("duration", p.clock.Since(start)))
	return result, nil
}

func (p *Pipeline) printInFrame(ctx context.Context, log *zap.Logger, job Job) (bool, error) {
	frame, err := p.host.CreateFrame(ctx, job)
	if err != nil {
		return false, NewPrintError(ErrCodeFrameUnavailable, "failed to create print frame", err)
	}
	release := p.releaser(ctx, log, "frame", frame.Remove)

	doc, err := frame.Document(ctx)
	if err != nil {
		release()
		return false, NewPrintError(ErrCodeFrameUnavailable, "print frame document is not accessible", err)
	}
	if err := doc.Write(ctx, job.HTML); err != nil {
		release()
		return false, NewPrintError(ErrCodeFrameUnavailable, "failed to write print frame", err)
	}

	timedOut := p.awaitAssets(ctx, log, doc)
	if err := ctx.Err(); err != nil {
		release()
		return timedOut, err
	}

	if err := doc.Print(ctx); err != nil {
		release()
		return timedOut, NewPrintError(ErrCodeInvocationFailed, "frame print failed", err)
	}

	p.awaitCleanup(ctx, doc, release)
	return timedOut, nil
}

func (p *Pipeline) printInWindow(ctx context.Context, log *zap.Logger, job Job) (bool, error) {
	win, err := p.host.OpenWindow(ctx, job)
	if err != nil || win == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, NewPrintError(ErrCodePopupBlocked, "print window could not be opened", err)
	}
	release := p.releaser(ctx, log, "window", win.Close)

	if err := win.Write(ctx, job.HTML); err != nil {
		release()
		return false, NewPrintError(ErrCodeInvocationFailed, "failed to write print window", err)
	}

	timedOut := p.awaitAssets(ctx, log, win)
	if err := ctx.Err(); err != nil {
		release()
		return timedOut, err
	}

	if err := win.Print(ctx); err != nil {
		release()
		return timedOut, NewPrintError(ErrCodeInvocationFailed, "window print failed", err)
	}

	p.awaitCleanup(ctx, win, release)
	return timedOut, nil
}

// awaitAssets races doc.WaitAssets against the asset timer.
// It reports whether the timer won. Asset errors are not failures.
func (p *Pipeline) awaitAssets(ctx context.Context, log *zap.Logger, doc Document) bool {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- doc.WaitAssets(waitCtx)
	}()

	timer := p.clock.NewTimer(p.assetTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			log.Debug("asset wait ended with error", zap.Error(err))
		}
		return false
	case <-timer.Chan():
		log.Info("assets not ready before timeout, printing anyway",
			zap.Duration("timeout", p.assetTimeout))
		return true
	case <-ctx.Done():
		return false
	}
}

// awaitCleanup releases the print context when printing finishes or the
// cleanup timer fires, whichever comes first.
func (p *Pipeline) awaitCleanup(ctx context.Context, doc Document, release func()) {
	timer := p.clock.NewTimer(p.cleanupTimeout)
	defer timer.Stop()

	select {
	case <-doc.AfterPrint():
	case <-timer.Chan():
	case <-ctx.Done():
	}
	release()
}

// releaser wraps fn so that it runs at most once. It runs with a context
// detached from ctx cancellation so a cancelled job still cleans up.
func (p *Pipeline) releaser(ctx context.Context, log *zap.Logger, what string, fn func(context.Context) error) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			if err := fn(releaseCtx); err != nil {
				log.Warn("failed to release print "+what, zap.Error(err))
			}
		})
	}
}
