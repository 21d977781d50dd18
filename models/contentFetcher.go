package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ContentClient retrieves the binary payload attached to a message.
type ContentClient interface {
	GetContent(ctx context.Context, contentID string) (*http.Response, error)
}

var imageMimePattern = regexp.MustCompile(`^image/(\w+)`)

// ContentFetcher downloads message content into the processing directory.
type ContentFetcher struct {
	Logger        *slog.Logger
	client        ContentClient
	processingDir string
	timeout       time.Duration
}

/*
NewContentFetcher creates a fetcher writing into processingDir.

Parameters:
- client: Content API used for the download.
- processingDir: Existing directory receiving the files.
- timeout: Deadline for the whole download; zero disables it.

Returns:
- *ContentFetcher.
*/
func NewContentFetcher(logger *slog.Logger, client ContentClient, processingDir string, timeout time.Duration) *ContentFetcher {
	return &ContentFetcher{
		Logger:        logger,
		client:        client,
		processingDir: processingDir,
		timeout:       timeout,
	}
}

// FileExtension maps a declared content type to a file extension:
// image/<subtype> gives <subtype>, anything else gives "dat".
func FileExtension(mimeType string) string {
	match := imageMimePattern.FindStringSubmatch(mimeType)
	if match == nil {
		return "dat"
	}
	return match[1]
}

// validContentID accepts ids usable as a file name inside the processing dir.
func validContentID(contentID string) bool {
	return contentID != "" &&
		filepath.Base(contentID) == contentID &&
		!strings.Contains(contentID, "..") &&
		!strings.ContainsAny(contentID, `/\`)
}

/*
Fetch downloads the content for contentID to <processingDir>/<contentID>.<ext>.
An existing file with the same name is overwritten.

Returns:
- FetchedContent: Path written and declared MIME type.
- error: ErrContentFetch for an id that is not a bare file name, on transport
  failure, timeout or a non-200 status.
*/
func (cf *ContentFetcher) Fetch(ctx context.Context, contentID string) (FetchedContent, error) {
	const function = "Fetch"

	if !validContentID(contentID) {
		cf.Logger.Warn("Rejected content id", "function", function, "content_id", contentID)
		return FetchedContent{}, newPipelineError(ErrorCodeContentFetch, contentID, fmt.Errorf("invalid content id %q", contentID))
	}

	if cf.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cf.timeout)
		defer cancel()
	}

	resp, err := cf.client.GetContent(ctx, contentID)
	if err != nil {
		cf.Logger.Error("Content request failed", "function", function, "content_id", contentID, "error", err)
		return FetchedContent{}, newPipelineError(ErrorCodeContentFetch, contentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		cf.Logger.Error("Unexpected content status", "function", function, "content_id", contentID, "status", resp.StatusCode)
		return FetchedContent{}, newPipelineError(ErrorCodeContentFetch, contentID, fmt.Errorf("content API returned status %d", resp.StatusCode))
	}

	mimeType := resp.Header.Get("Content-Type")
	path := filepath.Join(cf.processingDir, contentID+"."+FileExtension(mimeType))

	file, err := os.Create(path)
	if err != nil {
		return FetchedContent{}, newPipelineError(ErrorCodeContentFetch, contentID, err)
	}

	written, err := io.Copy(file, resp.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("download timed out: %w", err)
		}
		cf.Logger.Error("Failed to store content", "function", function, "content_id", contentID, "error", err)
		return FetchedContent{}, newPipelineError(ErrorCodeContentFetch, contentID, err)
	}

	cf.Logger.Info("Content fetched", "function", function, "content_id", contentID, "path", path, "bytes", written, "mime_type", mimeType)
	return FetchedContent{Path: path, MimeType: mimeType}, nil
}
