// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package failures

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// FileStorage keeps the count as decimal text, one number per file. The
// default path lives under /tmp so a reboot clears it.
type FileStorage struct {
	path string
}

// NewFileStorage creates a new FileStorage.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load reads the count. A missing or unreadable file counts as zero.
func (s *FileStorage) Load() (int, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read failure file: %w", err)
	}

	count, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		slog.Warn("Ignoring malformed failure file", "path", s.path, "err", err)
		return 0, nil
	}
	return count, nil
}

// Save writes the count and syncs it to disk.
func (s *FileStorage) Save(count int) error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open failure file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(count)); err != nil {
		return fmt.Errorf("failed to write failure file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync failure file to disk: %w", err)
	}
	return nil
}

func (s *FileStorage) Close() error { return nil }
