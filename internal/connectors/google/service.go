package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// NewDriveService creates a Drive API service using the provided
// TokenSource.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource) (*drive.Service, error) {
	return drive.NewService(ctx, option.WithTokenSource(ts))
}

// NewDriveServiceFromCredentialsFile creates a read-only Drive API
// service from a service account key file.
func NewDriveServiceFromCredentialsFile(ctx context.Context, path string) (*drive.Service, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(path),
		option.WithScopes(drive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}
