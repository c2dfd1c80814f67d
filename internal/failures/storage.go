// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package failures keeps a persistent count of failed polling cycles and
// restarts the host when the inverter link stays down for too long.
package failures

import "fmt"

// Storage persists the failure counter across process restarts.
type Storage interface {
	// Load returns the stored count. A store that has never been written
	// reports 0.
	Load() (int, error)

	// Save replaces the stored count.
	Save(count int) error

	Close() error
}

// NewStorage returns the storage backend named by kind.
func NewStorage(kind, path string) (Storage, error) {
	switch kind {
	case "memory":
		return NewMemoryStorage(), nil
	case "file":
		return NewFileStorage(path), nil
	case "mmap":
		return NewMmapStorage(path), nil
	default:
		return nil, fmt.Errorf("unknown failure storage %q", kind)
	}
}
