package feedback

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Log is the append-only feedback journal: one JSON object per line in
// feedback.jsonl under the data directory. Concurrent appenders rely on
// O_APPEND; no lock is taken.
type Log struct {
	path string
}

// NewLog creates a Log writing to feedback.jsonl in dataDir.
func NewLog(dataDir string) *Log {
	return &Log{path: filepath.Join(dataDir, "feedback.jsonl")}
}

// Append writes rec as a single JSON line at the end of the journal.
func (l *Log) Append(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling feedback record: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening feedback log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing feedback record: %w", err)
	}
	return nil
}

// All returns every record in the journal in append order. Malformed lines
// are skipped; a missing file yields an empty slice.
func (l *Log) All() ([]Record, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening feedback log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading feedback log: %w", err)
	}
	return records, nil
}

// Recent returns the last n records, newest first.
func (l *Log) Recent(n int) ([]Record, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}

	var recent []Record
	for i := len(all) - 1; i >= 0 && len(recent) < n; i-- {
		recent = append(recent, all[i])
	}
	return recent, nil
}
