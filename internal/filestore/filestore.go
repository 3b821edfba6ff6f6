// Package filestore defines the port for the document source holding
// scanned receipts.
package filestore

import (
	"context"
	"errors"
	"time"
)

var ErrFileNotFound = errors.New("file not found")

// File describes one stored document.
type File struct {
	ID         string
	Name       string
	MimeType   string
	ModifiedAt time.Time
}

// Store lists and reads receipt documents from one folder.
type Store interface {
	ListFiles(ctx context.Context, folderID string) ([]File, error)
	ReadFileBytes(ctx context.Context, fileID string) ([]byte, error)
}
