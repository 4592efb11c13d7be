// Package journal persists the conversation history as append-only JSON
// lines in a local file. One record per message, two per completed turn.
// Suitable for a single assistant instance; a multi-tenant deployment would
// replace this with a database-backed implementation.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Role identifies the author of a journal record.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Record is a single conversation message written to the file store.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
}

// FileStore persists conversation records as JSON lines in a local file.
// Thread-safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStore creates a FileStore that writes to the given path.
// The file is created on first append if it does not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// AppendTurn appends the user transcript and the assistant reply as two
// consecutive records.
func (fs *FileStore) AppendTurn(transcript, reply string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ts := fs.now().UTC()
	return fs.write(
		Record{Timestamp: ts, Role: RoleUser, Text: transcript},
		Record{Timestamp: ts, Role: RoleAssistant, Text: reply},
	)
}

// write appends records to the file. Caller holds fs.mu.
func (fs *FileStore) write(records ...Record) error {
	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open file: %w", err)
	}
	defer f.Close()

	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("journal: marshal: %w", err)
		}
		data = append(data, '\n')
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("journal: write: %w", err)
		}
	}
	return nil
}

// Recent returns the last n records in file order. A missing file yields an
// empty slice. Malformed lines are skipped.
func (fs *FileStore) Recent(n int) ([]Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: open file: %w", err)
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("journal: read file: %w", err)
	}

	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}
