// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package failures

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// mmapSize holds one little-endian uint64.
const mmapSize = 8

// MmapStorage keeps the count in a memory-mapped file, so every update is
// a store plus a flush instead of a rewrite.
type MmapStorage struct {
	path string

	mu   sync.Mutex
	file *os.File
	data mmap.MMap
}

// NewMmapStorage creates a new MmapStorage. The file is mapped on first use.
func NewMmapStorage(path string) *MmapStorage {
	return &MmapStorage{path: path}
}

func (ms *MmapStorage) open() error {
	if ms.data != nil {
		return nil
	}

	// Open file, creating if necessary
	f, err := os.OpenFile(ms.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open mmap file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if fi.Size() != mmapSize {
		if err := f.Truncate(mmapSize); err != nil {
			f.Close()
			return fmt.Errorf("failed to resize mmap file: %w", err)
		}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return fmt.Errorf("mmap failed: %w", err)
	}
	ms.file = f
	ms.data = data
	return nil
}

func (ms *MmapStorage) Load() (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.open(); err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint64(ms.data)), nil
}

// Save stores the count and flushes the mapping to disk.
func (ms *MmapStorage) Save(count int) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.open(); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(ms.data, uint64(count))
	return ms.data.Flush()
}

// Close unmaps and closes the file.
func (ms *MmapStorage) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var err error
	if ms.data != nil {
		if e := ms.data.Unmap(); e != nil {
			err = e
		}
		ms.data = nil
	}
	if ms.file != nil {
		if e := ms.file.Close(); e != nil {
			err = e
		}
		ms.file = nil
	}
	return err
}
