// Package badmsg remembers confirmed spam messages by hash
//
// When an admin confirms a message as spam its hash goes into the set, an
// exact repost of the same text in any chat is then bannable without
// consulting any classifier.
package badmsg

import (
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"strings"
	"sync"

	"doorman/internal/platform/logger"
)

// DefaultCap bounds the in-memory set, oldest hashes are dropped first
const DefaultCap = 10000

// Set is a bounded, concurrency safe set of message hashes
type Set struct {
	log logger.Logger

	mu    sync.Mutex
	seen  map[[sha256.Size]byte]struct{}
	order [][sha256.Size]byte
	cap   int

	path string
}

// New builds an empty set, maxSize <= 0 uses DefaultCap
func New(log logger.Logger, maxSize int) *Set {
	if maxSize <= 0 {
		maxSize = DefaultCap
	}
	return &Set{
		log:  log,
		seen: make(map[[sha256.Size]byte]struct{}),
		cap:  maxSize,
	}
}

// Load reads persisted hashes from path and keeps appending there
// a missing file is fine, read errors only log
func Load(log logger.Logger, path string, maxSize int) *Set {
	s := New(log, maxSize)
	s.path = path

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("bad message file unreadable")
		}
		return s
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sc.Text()))
		if err != nil || len(raw) != sha256.Size {
			continue
		}
		var h [sha256.Size]byte
		copy(h[:], raw)
		s.add(h)
	}
	if err := sc.Err(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("bad message file scan failed")
	}
	return s
}

// seam for tests exercising persistence failures
var openAppend = func(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// Known reports whether message was previously marked as bad
func (s *Set) Known(message string) bool {
	h := hash(message)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[h]
	return ok
}

// Mark stores message as known bad, blank messages are ignored
// persistence failures never break the caller
func (s *Set) Mark(message string) {
	if strings.TrimSpace(message) == "" {
		return
	}
	h := hash(message)

	s.mu.Lock()
	added := s.add(h)
	s.mu.Unlock()
	if !added || s.path == "" {
		return
	}

	f, err := openAppend(s.path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("bad message append failed")
		return
	}
	defer f.Close()
	if _, err := f.WriteString(base64.StdEncoding.EncodeToString(h[:]) + "\n"); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("bad message append failed")
	}
}

// Len reports how many hashes are held
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// add inserts under an already held lock (or during single-threaded Load)
func (s *Set) add(h [sha256.Size]byte) bool {
	if _, ok := s.seen[h]; ok {
		return false
	}
	if len(s.order) >= s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.seen, oldest)
	}
	s.seen[h] = struct{}{}
	s.order = append(s.order, h)
	return true
}

func hash(message string) [sha256.Size]byte {
	return sha256.Sum256([]byte(message))
}
