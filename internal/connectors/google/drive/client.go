// Package drive implements the remote listing and fetch client against
// the Google Drive API, with request pacing, transient retry and a
// short-lived listing cache.
package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/drivesync-cli/internal/connectors/google"
	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driven"
	"github.com/custodia-labs/drivesync-cli/internal/limiter"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files. Docs and Slides flatten to
// plain text; Sheets export as CSV so the tabular structure survives.
var exportFormats = map[string]string{
	MimeTypeGoogleDoc:    "text/plain",
	MimeTypeGoogleSheet:  "text/csv",
	MimeTypeGoogleSlides: "text/plain",
}

const (
	pageSize   = 100
	listFields = "nextPageToken, files(id, name, mimeType, webViewLink, modifiedTime, size, parents)"

	// subfolderConcurrency caps parallel subfolder listings; pacing is
	// still applied per call, so this bounds memory, not rate.
	subfolderConcurrency = 4
)

// Client lists and downloads Drive files. It satisfies the remote
// client port.
type Client struct {
	svc        *drive.Service
	pacer      *limiter.Pacer
	cache      *listingCache
	maxRetries int
	log        zerolog.Logger
}

var _ driven.RemoteClient = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithCacheTTL sets the listing cache lifetime. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache = newListingCache(ttl) }
}

// WithMaxRetries sets the number of attempts per API call.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.maxRetries = n
		}
	}
}

// NewClient wraps a Drive service with pacing, retry and caching.
func NewClient(svc *drive.Service, pacer *limiter.Pacer, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		svc:        svc,
		pacer:      pacer,
		cache:      newListingCache(2 * time.Minute),
		maxRetries: 3,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListFiles returns the non-folder files under folderID, optionally
// filtered to those modified after the given time and optionally
// descending into subfolders. Identical listings within the cache TTL
// are served from memory without touching the API.
func (c *Client) ListFiles(ctx context.Context, folderID string, modifiedAfter time.Time, recursive bool) ([]domain.RemoteFile, error) {
	key := cacheKey(folderID, modifiedAfter, recursive)
	if cached, ok := c.cache.get(key); ok {
		c.log.Debug().Str("folder", folderID).Int("files", len(cached)).Msg("listing served from cache")
		return cached, nil
	}

	files, folders, err := c.listFolder(ctx, folderID, modifiedAfter)
	if err != nil {
		return nil, err
	}

	if recursive && len(folders) > 0 {
		sub, err := c.listSubfolders(ctx, folders, modifiedAfter)
		if err != nil {
			return nil, err
		}
		files = append(files, sub...)
	}

	c.cache.put(key, files)
	return files, nil
}

// listSubfolders descends breadth-first into the given folders,
// listing each level's folders in parallel.
func (c *Client) listSubfolders(ctx context.Context, folders []string, modifiedAfter time.Time) ([]domain.RemoteFile, error) {
	var (
		mu    sync.Mutex
		files []domain.RemoteFile
	)

	frontier := folders
	for len(frontier) > 0 {
		var (
			nextMu sync.Mutex
			next   []string
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(subfolderConcurrency)
		for _, id := range frontier {
			g.Go(func() error {
				fs, sub, err := c.listFolder(gctx, id, modifiedAfter)
				if err != nil {
					return err
				}
				mu.Lock()
				files = append(files, fs...)
				mu.Unlock()
				nextMu.Lock()
				next = append(next, sub...)
				nextMu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		frontier = next
	}

	return files, nil
}

// listFolder lists one folder's direct children, returning files and
// the IDs of child folders.
func (c *Client) listFolder(ctx context.Context, folderID string, modifiedAfter time.Time) ([]domain.RemoteFile, []string, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	if !modifiedAfter.IsZero() {
		query += fmt.Sprintf(" and modifiedTime > '%s'", modifiedAfter.UTC().Format(time.RFC3339))
	}

	var (
		files   []domain.RemoteFile
		folders []string
	)

	pageToken := ""
	for {
		var page *drive.FileList
		err := c.doCall(ctx, func() error {
			var apiErr error
			page, apiErr = c.svc.Files.List().
				Q(query).
				PageSize(pageSize).
				Fields(listFields).
				SupportsAllDrives(true).
				IncludeItemsFromAllDrives(true).
				PageToken(pageToken).
				Context(ctx).
				Do()
			return apiErr
		})
		if err != nil {
			return nil, nil, fmt.Errorf("list folder %s: %w", folderID, google.WrapError(err))
		}

		for _, f := range page.Files {
			if f.MimeType == MimeTypeFolder {
				folders = append(folders, f.Id)
				continue
			}
			files = append(files, domain.RemoteFile{
				ID:           f.Id,
				Name:         f.Name,
				MIMEType:     f.MimeType,
				ModifiedTime: f.ModifiedTime,
				Size:         f.Size,
				WebViewLink:  f.WebViewLink,
				ParentID:     folderID,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return files, folders, nil
}

// Download fetches a file's content. Google Workspace files are
// exported to their text representation; everything else is downloaded
// as-is. The returned MIME type is the effective one: the export format
// for converted files, the original otherwise.
func (c *Client) Download(ctx context.Context, file domain.RemoteFile) ([]byte, string, error) {
	exportMime, isNative := exportFormats[file.MIMEType]

	var data []byte
	err := c.doCall(ctx, func() error {
		var (
			resp   *http.Response
			apiErr error
		)
		if isNative {
			resp, apiErr = c.svc.Files.Export(file.ID, exportMime).Context(ctx).Download()
		} else {
			resp, apiErr = c.svc.Files.Get(file.ID).SupportsAllDrives(true).Context(ctx).Download()
		}
		if apiErr != nil {
			return apiErr
		}
		defer resp.Body.Close()

		var readErr error
		data, readErr = io.ReadAll(resp.Body)
		return readErr
	})
	if err != nil {
		return nil, "", fmt.Errorf("download file %s: %w", file.ID, google.WrapError(err))
	}

	mime := file.MIMEType
	if isNative {
		mime = exportMime
	}
	return data, mime, nil
}

// doCall runs one API call through the pacer, retrying transient
// failures with exponential backoff. A 429 additionally feeds its
// Retry-After into the pacer so unrelated calls back off too.
func (c *Client) doCall(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !google.IsTransient(lastErr) {
			return lastErr
		}

		if google.IsRateLimited(lastErr) {
			c.pacer.RecordRateLimitError(google.RetryAfterSeconds(lastErr))
		}

		if attempt < c.maxRetries-1 {
			backoff := time.Second << attempt
			c.log.Warn().Err(lastErr).Dur("backoff", backoff).Int("attempt", attempt+1).Msg("transient drive error, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
