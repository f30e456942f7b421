package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const driveLogoPrefix = "drive:"

// LogoService turns a configured company logo reference into something the
// invoice document can embed without further network access.
type LogoService struct {
	driveService DriveServiceInterface
	maxDimension int
	logger       *zap.Logger
}

// NewLogoService creates a new LogoService. driveService may be nil when
// Drive credentials are not configured; drive: references then fail.
func NewLogoService(driveService DriveServiceInterface, maxDimension int, logger *zap.Logger) *LogoService {
	if maxDimension <= 0 {
		maxDimension = defaultLogoMaxDimension
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogoService{
		driveService: driveService,
		maxDimension: maxDimension,
		logger:       logger,
	}
}

// EmbedLogo resolves raw into an image source:
//   - "" stays empty
//   - data: URIs and http(s) URLs are returned unchanged
//   - drive:<fileID> is downloaded from Google Drive
//   - file:// URLs and existing local paths are read from disk
//
// Downloaded and local images are resized and returned as a data URI.
func (s *LogoService) EmbedLogo(ctx context.Context, raw string) (string, error) {
	ref := strings.TrimSpace(raw)
	if ref == "" {
		return "", nil
	}

	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "data:"),
		strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"):
		return ref, nil

	case strings.HasPrefix(lower, driveLogoPrefix):
		if s.driveService == nil {
			return "", fmt.Errorf("logo %q: drive service is not configured", ref)
		}
		fileID := strings.TrimSpace(ref[len(driveLogoPrefix):])
		data, err := s.driveService.DownloadImage(ctx, fileID)
		if err != nil {
			return "", fmt.Errorf("logo %q: %w", ref, err)
		}
		return s.toDataURI(data, "")

	case strings.HasPrefix(lower, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("logo %q: %w", ref, err)
		}
		return s.readFile(u.Path)
	}

	if _, err := os.Stat(ref); err == nil {
		return s.readFile(ref)
	}
	return ref, nil
}

func (s *LogoService) readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read logo file: %w", err)
	}
	return s.toDataURI(data, filepath.Ext(path))
}

func (s *LogoService) toDataURI(data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("logo image is empty")
	}

	if isSVG(data, ext) {
		return dataURI("image/svg+xml", data), nil
	}

	optimized, mimeType, err := OptimizeImage(data, s.maxDimension)
	if err != nil {
		return "", err
	}

	s.logger.Debug("logo embedded",
		zap.String("mime_type", mimeType),
		zap.Int("input_bytes", len(data)),
		zap.Int("output_bytes", len(optimized)),
	)
	return dataURI(mimeType, optimized), nil
}

func isSVG(data []byte, ext string) bool {
	if strings.EqualFold(ext, ".svg") {
		return true
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if !strings.HasPrefix(http.DetectContentType(head), "text/") {
		return false
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

func dataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
