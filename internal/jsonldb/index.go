package jsonldb

import (
	"iter"
	"sync"
)

// UniqueIndex maintains a one-to-one mapping from a key to a row.
// Keys must be unique across the table; a later row with a duplicate key
// silently replaces the earlier mapping.
type UniqueIndex[K comparable, T Row[T]] struct {
	keyFunc func(T) K

	mu   sync.RWMutex
	byKey map[K]T
}

// NewUniqueIndex builds an index over the table's current rows and keeps it
// in sync with future mutations.
func NewUniqueIndex[K comparable, T Row[T]](table *Table[T], keyFunc func(T) K) *UniqueIndex[K, T] {
	idx := &UniqueIndex[K, T]{keyFunc: keyFunc, byKey: map[K]T{}}
	for row := range table.All() {
		idx.byKey[keyFunc(row)] = row
	}
	table.addListener(idx)
	return idx
}

// Get returns the row for the key, or the zero value if absent.
// The caller must Clone before exposing the row.
func (idx *UniqueIndex[K, T]) Get(key K) T {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.byKey[key]
}

func (idx *UniqueIndex[K, T]) onAppend(row T) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byKey[idx.keyFunc(row)] = row
}

func (idx *UniqueIndex[K, T]) onUpdate(prev, curr T) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.byKey, idx.keyFunc(prev))
	idx.byKey[idx.keyFunc(curr)] = curr
}

func (idx *UniqueIndex[K, T]) onDelete(row T) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.byKey, idx.keyFunc(row))
}

// Index maintains a one-to-many mapping from a key to rows, preserving
// insertion order within a key.
type Index[K comparable, T Row[T]] struct {
	keyFunc func(T) K

	mu    sync.RWMutex
	byKey map[K][]T
}

// NewIndex builds a non-unique index over the table's current rows and keeps
// it in sync with future mutations.
func NewIndex[K comparable, T Row[T]](table *Table[T], keyFunc func(T) K) *Index[K, T] {
	idx := &Index[K, T]{keyFunc: keyFunc, byKey: map[K][]T{}}
	for row := range table.All() {
		k := keyFunc(row)
		idx.byKey[k] = append(idx.byKey[k], row)
	}
	table.addListener(idx)
	return idx
}

// Iter iterates over clones of all rows with the given key.
func (idx *Index[K, T]) Iter(key K) iter.Seq[T] {
	return func(yield func(T) bool) {
		idx.mu.RLock()
		rows := make([]T, len(idx.byKey[key]))
		for i, row := range idx.byKey[key] {
			rows[i] = row.Clone()
		}
		idx.mu.RUnlock()
		for _, row := range rows {
			if !yield(row) {
				return
			}
		}
	}
}

// Count returns the number of rows with the given key.
func (idx *Index[K, T]) Count(key K) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byKey[key])
}

func (idx *Index[K, T]) onAppend(row T) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	k := idx.keyFunc(row)
	idx.byKey[k] = append(idx.byKey[k], row)
}

func (idx *Index[K, T]) onUpdate(prev, curr T) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(prev)
	k := idx.keyFunc(curr)
	idx.byKey[k] = append(idx.byKey[k], curr)
}

func (idx *Index[K, T]) onDelete(row T) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(row)
}

func (idx *Index[K, T]) removeLocked(row T) {
	k := idx.keyFunc(row)
	id := row.GetID()
	rows := idx.byKey[k]
	for i, r := range rows {
		if r.GetID() == id {
			idx.byKey[k] = append(rows[:i:i], rows[i+1:]...)
			break
		}
	}
	if len(idx.byKey[k]) == 0 {
		delete(idx.byKey, k)
	}
}
