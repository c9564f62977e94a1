// Package index implements the entry store: a multimap from name to
// declaration entries plus a reverse file index for fast reindexing.
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"rbls/internal/entry"
)

// Store holds every indexed entry. Mutations are per-file and atomic:
// a reader either sees all of a file's entries or none of them. Insertion
// order within a name is preserved, so later redeclarations sit after
// earlier ones and single-valued consumers can apply last-wins.
type Store struct {
	mu sync.RWMutex

	// entries maps a name to its declarations in insertion order.
	// Namespaces and constants are keyed by fully qualified name,
	// members and variables by short name.
	entries map[string][]*entry.Entry

	// files maps a file identifier to the entries it contributed.
	files map[string][]*entry.Entry

	// generation changes on every mutation. Linearizations and other
	// derived results are only valid for the generation they were
	// computed against.
	generation string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries:    make(map[string][]*entry.Entry),
		files:      make(map[string][]*entry.Entry),
		generation: uuid.NewString(),
	}
}

// ReplaceFile atomically swaps a file's contribution: all entries the
// file previously declared are removed, then the new set is inserted.
// Reindexing an unchanged file is idempotent.
func (s *Store) ReplaceFile(fileID string, entries []*entry.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteFileLocked(fileID)
	for _, e := range entries {
		s.insertLocked(e)
	}
	s.generation = uuid.NewString()
}

// DeleteFile removes every entry the file contributed. Entries from
// other files are untouched.
func (s *Store) DeleteFile(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteFileLocked(fileID)
	s.generation = uuid.NewString()
}

func (s *Store) insertLocked(e *entry.Entry) {
	s.entries[e.Name] = append(s.entries[e.Name], e)
	s.files[e.FileID] = append(s.files[e.FileID], e)
}

// deleteFileLocked is O(entries in file): it walks the reverse index
// instead of scanning the whole store.
func (s *Store) deleteFileLocked(fileID string) {
	owned := s.files[fileID]
	if len(owned) == 0 {
		return
	}
	for _, e := range owned {
		list := s.entries[e.Name]
		kept := list[:0]
		for _, cand := range list {
			if cand != e {
				kept = append(kept, cand)
			}
		}
		if len(kept) == 0 {
			delete(s.entries, e.Name)
		} else {
			s.entries[e.Name] = kept
		}
	}
	delete(s.files, fileID)
}

// EntriesFor returns the entries recorded under a name, in insertion
// order. The returned slice is a copy.
func (s *Store) EntriesFor(name string) []*entry.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.entries[name]
	if len(list) == 0 {
		return nil
	}
	out := make([]*entry.Entry, len(list))
	copy(out, list)
	return out
}

// EntriesForFile returns the entries a file contributed.
func (s *Store) EntriesForFile(fileID string) []*entry.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.files[fileID]
	if len(list) == 0 {
		return nil
	}
	out := make([]*entry.Entry, len(list))
	copy(out, list)
	return out
}

// PrefixSearch returns all entries whose key starts with the prefix,
// sorted by key.
func (s *Store) PrefixSearch(prefix string) []*entry.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for name := range s.entries {
		if strings.HasPrefix(name, prefix) {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	var out []*entry.Entry
	for _, k := range keys {
		out = append(out, s.entries[k]...)
	}
	return out
}

// Names returns every key in the store in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for name := range s.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Files returns every file identifier with entries, unsorted.
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for f := range s.files {
		out = append(out, f)
	}
	return out
}

// Len returns the total number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, list := range s.entries {
		n += len(list)
	}
	return n
}

// FileCount returns the number of files with entries.
func (s *Store) FileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Generation identifies the current index state. It changes on every
// mutation; derived results (linearizations, search snapshots) must not
// outlive the generation they were computed for.
func (s *Store) Generation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}
