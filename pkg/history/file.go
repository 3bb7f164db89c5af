package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/autoheal/pkg/types"
)

// FileName is the history file inside the history directory
const FileName = "history.jsonl"

// FileStore implements Store as newline-delimited JSON. The file is
// opened for every write so that external rotation is picked up.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store in dir. The directory must
// exist; the file is created on the first write.
func NewFileStore(dir string) (*FileStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access history directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("history path is not a directory: %s", dir)
	}
	return &FileStore{path: filepath.Join(dir, FileName)}, nil
}

// Append writes rec as a single JSON line
func (s *FileStore) Append(rec types.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return f.Close()
}

// Records reads the history file line by line. A missing file is an empty
// history; a malformed line is an error.
func (s *FileStore) Records() ([]types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	var records []types.Record
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec types.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode history line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	return records, nil
}

// Close is a no-op; the file is only held open during a call
func (s *FileStore) Close() error {
	return nil
}
