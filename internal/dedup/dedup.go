// Package dedup remembers which uploaded documents a session has already
// processed, keyed by content hash.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Store is a caller-owned set of content hashes. It is safe for concurrent
// use.
type Store struct {
	mu   sync.Mutex
	seen map[string]string // hash -> first name seen
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{seen: make(map[string]string)}
}

// Seen reports whether hash was marked, and under which name.
func (s *Store) Seen(hash string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.seen[hash]
	return name, ok
}

// Mark records hash under name. It returns false, with the name recorded
// first, when the hash was already present.
func (s *Store) Mark(hash, name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.seen[hash]; ok {
		return prev, false
	}
	s.seen[hash] = name
	return name, true
}

// Forget removes a single hash so the document can be processed again.
func (s *Store) Forget(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, hash)
}

// Len returns the number of remembered hashes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Reset forgets everything.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]string)
}
