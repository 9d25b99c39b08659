package quota

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"echodao-backend/internal/model"
)

// FileStore keeps the whole history in one JSON document that is rewritten
// on every append. Suited for a single process.
type FileStore struct {
	path string

	mu      sync.Mutex
	records map[string][]recordDoc
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, records: make(map[string][]recordDoc)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, errors.New("failed to read the quota file: " + err.Error())
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, errors.New("quota file is corrupted: " + err.Error())
	}
	return s, nil
}

func (s *FileStore) Records(_ context.Context, user string) ([]model.CreationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.records[user]
	records := make([]model.CreationRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

func (s *FileStore) Append(_ context.Context, user string, record model.CreationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.records[user]
	s.records[user] = append(previous, toDoc(record))

	if err := s.flush(); err != nil {
		s.records[user] = previous
		return err
	}
	return nil
}

// flush replaces the file atomically so a crash leaves either the old or the new document.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.New("failed to create the quota file: " + err.Error())
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.New("failed to write the quota file: " + err.Error())
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}
