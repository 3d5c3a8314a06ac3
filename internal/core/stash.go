package core

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrFileNotFound is returned for unknown or expired stash ids.
var ErrFileNotFound = errors.New("parsed file not found or expired")

// Stash defaults.
const (
	DefaultFileTTL       = 30 * time.Minute
	DefaultStashMaxFiles = 100
	DefaultStashMaxBytes = 256 << 20
)

// StashedFile is a parsed upload waiting for its mapping to be confirmed.
type StashedFile struct {
	ID       string
	FileName string
	Headers  []string
	Rows     []RawRow
	Mapping  FieldMapping // detected at parse time
	Bytes    int64        // decoded size, counted against the byte budget
	StoredAt time.Time
}

// FileStash keeps parsed files in memory between the parse and process
// steps, so the browser never has to send the rows back.
//
// Each file is removed by a timer when its TTL passes. The stash also holds
// at most maxFiles files and maxBytes decoded bytes; Put evicts the oldest
// files to stay within both.
type FileStash struct {
	ttl      time.Duration
	maxFiles int
	maxBytes int64

	mu     sync.RWMutex
	files  map[string]*StashedFile
	timers map[string]*time.Timer
	order  []string // ids, oldest first
	bytes  int64
}

// StashOption configures a FileStash.
type StashOption func(*FileStash)

// WithStashLimits bounds the stash. Non-positive values keep the defaults.
func WithStashLimits(maxFiles int, maxBytes int64) StashOption {
	return func(s *FileStash) {
		if maxFiles > 0 {
			s.maxFiles = maxFiles
		}
		if maxBytes > 0 {
			s.maxBytes = maxBytes
		}
	}
}

func NewFileStash(ttl time.Duration, opts ...StashOption) *FileStash {
	if ttl <= 0 {
		ttl = DefaultFileTTL
	}
	s := &FileStash{
		ttl:      ttl,
		maxFiles: DefaultStashMaxFiles,
		maxBytes: DefaultStashMaxBytes,
		files:    make(map[string]*StashedFile),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a parsed file under a new id and schedules its removal. Older
// files are evicted when the new one would exceed a limit. A file larger
// than the whole byte budget is still kept, alone.
func (s *FileStash) Put(fileName string, parsed *ParsedFile) *StashedFile {
	f := &StashedFile{
		ID:       uuid.NewString(),
		FileName: fileName,
		Headers:  parsed.Headers,
		Rows:     parsed.Rows,
		Mapping:  DetectMapping(parsed.Headers),
		Bytes:    parsed.Bytes,
		StoredAt: time.Now(),
	}

	s.mu.Lock()
	for len(s.order) > 0 && (len(s.order)+1 > s.maxFiles || s.bytes+f.Bytes > s.maxBytes) {
		s.removeLocked(s.order[0])
	}
	s.files[f.ID] = f
	s.order = append(s.order, f.ID)
	s.bytes += f.Bytes
	s.timers[f.ID] = time.AfterFunc(s.ttl, func() { s.Remove(f.ID) })
	s.mu.Unlock()

	return f
}

// Get returns a stashed file or ErrFileNotFound.
func (s *FileStash) Get(id string) (*StashedFile, error) {
	s.mu.RLock()
	f, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrFileNotFound
	}
	return f, nil
}

// Remove drops a file and cancels its expiry timer.
func (s *FileStash) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *FileStash) removeLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	f, ok := s.files[id]
	if !ok {
		return
	}
	delete(s.files, id)
	s.bytes -= f.Bytes
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of stashed files.
func (s *FileStash) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Size returns the decoded bytes currently held.
func (s *FileStash) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}
