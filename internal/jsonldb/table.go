// Package jsonldb implements a small append-oriented document store.
//
// Each table is a JSONL file: one JSON document per line, fully loaded into
// memory at startup. Appends are O(1) file appends; updates and deletes
// rewrite the file. This trades write amplification for a trivially
// recoverable on-disk format, which is the right trade for the table sizes
// this server deals with.
package jsonldb

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/maruel/ksid"
)

// Row is implemented by types stored in a Table.
type Row[T any] interface {
	// Clone returns a deep copy so callers never alias in-memory state.
	Clone() T
	// GetID returns the row's unique identifier.
	GetID() ksid.ID
	// Validate checks structural invariants before persisting.
	Validate() error
}

var (
	// ErrNotFound is returned when no row has the requested ID.
	ErrNotFound = errors.New("row not found")
	// ErrDuplicateID is returned when appending a row whose ID already exists.
	ErrDuplicateID = errors.New("duplicate row id")
)

// Table handles storage and in-memory caching for a single JSONL table.
type Table[T Row[T]] struct {
	path string

	mu        sync.RWMutex
	rows      []T
	byID      map[ksid.ID]int
	listeners []listener[T]
}

// listener receives row lifecycle notifications, used by indexes.
type listener[T any] interface {
	onAppend(row T)
	onUpdate(prev, curr T)
	onDelete(row T)
}

// NewTable creates a Table backed by path and loads all existing rows.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	t := &Table[T]{path: path, byID: map[ksid.ID]int{}}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = []T{}
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}

	t.rows = rows
	t.byID = make(map[ksid.ID]int, len(rows))
	for i, row := range rows {
		t.byID[row.GetID()] = i
	}
	return nil
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Get returns a clone of the row with the given ID, or the zero value if absent.
func (t *Table[T]) Get(id ksid.ID) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i, ok := t.byID[id]; ok {
		return t.rows[i].Clone()
	}
	var zero T
	return zero
}

// All returns an iterator over clones of all rows in insertion order.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// Append adds a new row to the table and persists it.
func (t *Table[T]) Append(row T) error {
	if err := row.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	id := row.GetID()
	if _, ok := t.byID[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	stored := row.Clone()
	t.rows = append(t.rows, stored)
	t.byID[id] = len(t.rows) - 1
	for _, l := range t.listeners {
		l.onAppend(stored)
	}
	return nil
}

// Update replaces the row with the same ID and persists the table.
// Returns a clone of the previous row.
func (t *Table[T]) Update(row T) (T, error) {
	var zero T
	if err := row.Validate(); err != nil {
		return zero, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.byID[row.GetID()]
	if !ok {
		return zero, ErrNotFound
	}
	prev := t.rows[i]
	stored := row.Clone()
	t.rows[i] = stored
	if err := t.flush(); err != nil {
		t.rows[i] = prev
		return zero, err
	}
	for _, l := range t.listeners {
		l.onUpdate(prev, stored)
	}
	return prev.Clone(), nil
}

// Delete removes the row with the given ID and persists the table.
// Returns a clone of the deleted row.
func (t *Table[T]) Delete(id ksid.ID) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.byID[id]
	if !ok {
		return zero, ErrNotFound
	}
	removed := t.rows[i]
	rows := make([]T, 0, len(t.rows)-1)
	rows = append(rows, t.rows[:i]...)
	rows = append(rows, t.rows[i+1:]...)
	prevRows := t.rows
	t.rows = rows
	if err := t.flush(); err != nil {
		t.rows = prevRows
		return zero, err
	}
	delete(t.byID, id)
	for j := i; j < len(t.rows); j++ {
		t.byID[t.rows[j].GetID()] = j
	}
	for _, l := range t.listeners {
		l.onDelete(removed)
	}
	return removed.Clone(), nil
}

// flush rewrites the whole table file. Caller must hold the write lock.
func (t *Table[T]) flush() error {
	tmp := t.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, row := range t.rows {
		data, err := json.Marshal(row)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write row: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}

func (t *Table[T]) addListener(l listener[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}
