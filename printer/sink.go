package printer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const defaultJobFileName = "print-job"

// Sink receives the printed output of a job
type Sink interface {
	Deliver(ctx context.Context, job Job, pdf []byte) error
}

// DirSink writes printed jobs as PDF files into a spool directory
type DirSink struct {
	dir    string
	logger *zap.Logger
}

// NewDirSink creates a new DirSink, creating dir if needed
func NewDirSink(dir string, logger *zap.Logger) (*DirSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("print output directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create print output directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirSink{dir: dir, logger: logger}, nil
}

// Deliver writes pdf to <dir>/<job name>.pdf
func (s *DirSink) Deliver(ctx context.Context, job Job, pdf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(pdf) == 0 {
		return fmt.Errorf("printed output for %q is empty", job.Name)
	}

	path := s.PathFor(job)
	if err := os.WriteFile(path, pdf, 0644); err != nil {
		return fmt.Errorf("failed to write printed output: %w", err)
	}

	s.logger.Info("printed output written",
		zap.String("job", job.Name),
		zap.String("path", path),
		zap.Int("bytes", len(pdf)))
	return nil
}

// PathFor returns the file Deliver writes for job
func (s *DirSink) PathFor(job Job) string {
	return filepath.Join(s.dir, sanitizeFileName(job.Name)+".pdf")
}

// sanitizeFileName keeps letters, digits, dot, dash and underscore
func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return defaultJobFileName
	}
	return out
}
