package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// maxLogoBytes caps how much of a Drive file is read into memory
const maxLogoBytes = 10 << 20

// DriveService handles Google Drive API operations
type DriveService struct {
	client *drive.Service
}

// NewDriveService creates a new DriveService instance.
// credentials is either the path to a Service Account JSON file or the JSON itself.
func NewDriveService(ctx context.Context, credentials string) (*DriveService, error) {
	credentials = strings.TrimSpace(credentials)
	if credentials == "" {
		return nil, fmt.Errorf("drive credentials are not configured")
	}

	opts := []option.ClientOption{option.WithScopes(drive.DriveReadonlyScope)}
	if strings.HasPrefix(credentials, "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
	} else {
		if _, err := os.Stat(credentials); err != nil {
			return nil, fmt.Errorf("drive credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentialsFile(credentials))
	}

	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveService{
		client: driveService,
	}, nil
}

// DownloadImage downloads the raw bytes of a Drive file
func (ds *DriveService) DownloadImage(ctx context.Context, fileID string) ([]byte, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, fmt.Errorf("drive file id is empty")
	}

	resp, err := ds.client.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("drive file %s not found: %w", fileID, err)
		}
		return nil, fmt.Errorf("failed to download drive file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read drive file %s: %w", fileID, err)
	}
	if len(data) > maxLogoBytes {
		return nil, fmt.Errorf("drive file %s exceeds %d bytes", fileID, maxLogoBytes)
	}
	return data, nil
}

var _ DriveServiceInterface = (*DriveService)(nil)
