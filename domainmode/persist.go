package domainmode

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metabench/hubcrawl/models"
)

// Load reads the domain-mode snapshot from path, if present. A missing
// file is not an error — a fresh crawl starts with no domain memory.
func Load(path string) ([]models.DomainMode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("domainmode: load %s: %w", path, err)
	}
	var entries []models.DomainMode
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("domainmode: decode %s: %w", path, err)
	}
	return entries, nil
}

// Save writes m's snapshot to path atomically: it writes to a temp file
// in the same directory, then renames over the destination, so a crash
// mid-write never leaves a truncated or partially-written state file.
func Save(path string, m *Manager) error {
	entries := m.Snapshot()
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("domainmode: encode: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".domainmode-*.tmp")
	if err != nil {
		return fmt.Errorf("domainmode: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("domainmode: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("domainmode: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("domainmode: rename into place: %w", err)
	}
	return nil
}
