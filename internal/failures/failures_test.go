// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package failures

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func storages(t *testing.T) map[string]Storage {
	dir := t.TempDir()
	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"file":   NewFileStorage(filepath.Join(dir, "motech_log.txt")),
		"mmap":   NewMmapStorage(filepath.Join(dir, "motech_log.bin")),
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			n, err := s.Load()
			if err != nil || n != 0 {
				t.Fatalf("fresh Load() = %d, %v", n, err)
			}
			for _, want := range []int{1, 301, 0} {
				if err := s.Save(want); err != nil {
					t.Fatal(err)
				}
				if got, err := s.Load(); err != nil || got != want {
					t.Errorf("Load() = %d, %v, want %d", got, err, want)
				}
			}
		})
	}
}

func TestStorage_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	open := map[string]func() Storage{
		"file": func() Storage { return NewFileStorage(filepath.Join(dir, "count.txt")) },
		"mmap": func() Storage { return NewMmapStorage(filepath.Join(dir, "count.bin")) },
	}
	for name, mk := range open {
		t.Run(name, func(t *testing.T) {
			s := mk()
			if err := s.Save(42); err != nil {
				t.Fatal(err)
			}
			s.Close()

			s = mk()
			defer s.Close()
			if got, err := s.Load(); err != nil || got != 42 {
				t.Errorf("Load() after reopen = %d, %v", got, err)
			}
		})
	}
}

func TestFileStorage_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motech_log.txt")
	s := NewFileStorage(path)
	if err := s.Save(17); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "17" {
		t.Errorf("file content = %q, want %q", data, "17")
	}

	if err := os.WriteFile(path, []byte("garbage\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Load(); err != nil || got != 0 {
		t.Errorf("Load() of malformed file = %d, %v", got, err)
	}
	if err := os.WriteFile(path, []byte(" 9\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Load(); got != 9 {
		t.Errorf("Load() = %d, want 9", got)
	}
}

func TestNewStorage(t *testing.T) {
	for _, kind := range []string{"memory", "file", "mmap"} {
		if _, err := NewStorage(kind, filepath.Join(t.TempDir(), "x")); err != nil {
			t.Errorf("NewStorage(%q) error = %v", kind, err)
		}
	}
	if _, err := NewStorage("sql", ""); err == nil {
		t.Error("expected error for unknown storage")
	}
}

func TestTracker(t *testing.T) {
	at := func(hour int) func() time.Time {
		return func() time.Time { return time.Date(2026, 6, 1, hour, 0, 0, 0, time.Local) }
	}

	tests := []struct {
		name      string
		stored    int
		hour      int
		want      Action
		wantCount int
	}{
		{"below limit", 3, 12, Counted, 4},
		{"at limit", 300, 12, Counted, 301},
		{"over limit in window", 301, 12, Rebooted, 301},
		{"over limit at start hour", 301, 8, Held, 301},
		{"over limit at stop hour", 301, 16, Held, 301},
		{"over limit at night", 301, 2, Held, 301},
		{"below limit at night", 0, 23, Counted, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewMemoryStorage()
			storage.Save(tt.stored)
			reboots := 0

			tr := NewTracker(storage, 300, 8, 16)
			tr.Now = at(tt.hour)
			tr.Rebooter = RebooterFunc(func() error { reboots++; return nil })

			got, err := tr.RecordFailure()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("RecordFailure() = %v, want %v", got, tt.want)
			}
			if n, _ := storage.Load(); n != tt.wantCount {
				t.Errorf("count = %d, want %d", n, tt.wantCount)
			}
			if (reboots == 1) != (tt.want == Rebooted) {
				t.Errorf("reboots = %d", reboots)
			}
		})
	}
}

func TestTracker_SuccessResets(t *testing.T) {
	storage := NewMemoryStorage()
	storage.Save(250)
	tr := NewTracker(storage, 300, 8, 16)
	if err := tr.RecordSuccess(); err != nil {
		t.Fatal(err)
	}
	if n, _ := storage.Load(); n != 0 {
		t.Errorf("count = %d after success", n)
	}
}

func TestTracker_RebootError(t *testing.T) {
	storage := NewMemoryStorage()
	storage.Save(5)
	tr := NewTracker(storage, 1, 0, 24)
	tr.Now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.Local) }
	boom := errors.New("permission denied")
	tr.Rebooter = RebooterFunc(func() error { return boom })

	action, err := tr.RecordFailure()
	if action != Rebooted || !errors.Is(err, boom) {
		t.Errorf("RecordFailure() = %v, %v", action, err)
	}
}

func BenchmarkFileStorage_Save(b *testing.B) {
	s := NewFileStorage(filepath.Join(b.TempDir(), "bench_file.txt"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Save(i)
	}
}

// BenchmarkMmapStorage_Save benchmarks a store plus msync.
func BenchmarkMmapStorage_Save(b *testing.B) {
	s := NewMmapStorage(filepath.Join(b.TempDir(), "bench_mmap.bin"))
	if _, err := s.Load(); err != nil {
		b.Fatalf("Failed to load mmap storage: %v", err)
	}
	defer s.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Save(i)
	}
}
