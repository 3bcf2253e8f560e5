package validator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// AuditLog is an append-only newline-delimited JSON record of every
// validation call. It is the pipeline's sole observability mechanism,
// so writes happen on every outcome, approved or not.
type AuditLog struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLog opens (or creates) the audit log under logDir.
func NewAuditLog(logDir string) (*AuditLog, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	path := filepath.Join(logDir, "signal_validation_log.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &AuditLog{file: file}, nil
}

// Append writes one record as a JSON line and syncs it to disk.
func (a *AuditLog) Append(record interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	if _, err := a.file.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return a.file.Sync()
}

// Close closes the underlying file.
func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}
