// Package memory provides an in-process file store used by tests and
// local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"talous/internal/filestore"
)

type entry struct {
	file filestore.File
	data []byte
}

// Store keeps files grouped by folder in memory.
type Store struct {
	mu      sync.Mutex
	folders map[string]map[string]entry
}

var _ filestore.Store = (*Store)(nil)

func New() *Store {
	return &Store{folders: make(map[string]map[string]entry)}
}

// Put adds or replaces a file in a folder.
func (s *Store) Put(folderID string, file filestore.File, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.folders[folderID] == nil {
		s.folders[folderID] = make(map[string]entry)
	}
	s.folders[folderID][file.ID] = entry{file: file, data: append([]byte(nil), data...)}
}

func (s *Store) ListFiles(_ context.Context, folderID string) ([]filestore.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []filestore.File
	for _, e := range s.folders[folderID] {
		out = append(out, e.file)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ReadFileBytes(_ context.Context, fileID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, folder := range s.folders {
		if e, ok := folder[fileID]; ok {
			return append([]byte(nil), e.data...), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", filestore.ErrFileNotFound, fileID)
}
