// Package google implements the file store over Google Drive. Receipt
// scans live in one Drive folder; the import workflow lists and reads
// them with the read-only scope.
package google

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"

	"talous/internal/filestore"
)

// Store reads receipt documents from Drive.
type Store struct {
	svc *gdrive.Service
}

var _ filestore.Store = (*Store)(nil)

// New creates a store using an authenticated HTTP client (see
// internal/googleauth).
func New(ctx context.Context, httpClient *http.Client) (*Store, error) {
	svc, err := gdrive.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Store{svc: svc}, nil
}

func (s *Store) ListFiles(ctx context.Context, folderID string) ([]filestore.File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	var out []filestore.File
	pageToken := ""
	for {
		call := s.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, modifiedTime)").
			OrderBy("name").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}
		for _, f := range resp.Files {
			modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
			out = append(out, filestore.File{
				ID:         f.Id,
				Name:       f.Name,
				MimeType:   f.MimeType,
				ModifiedAt: modified,
			})
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}

func (s *Store) ReadFileBytes(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := s.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}
