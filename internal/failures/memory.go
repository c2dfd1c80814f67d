// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package failures

import "sync"

// MemoryStorage is a non-persistent counter.
type MemoryStorage struct {
	mu    sync.Mutex
	count int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (ms *MemoryStorage) Load() (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.count, nil
}

func (ms *MemoryStorage) Save(count int) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.count = count
	return nil
}

func (ms *MemoryStorage) Close() error { return nil }
