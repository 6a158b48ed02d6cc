// Package session keeps a JSONL history of bump sessions: one file per
// session, a meta line followed by one record per outcome or cycle.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record kinds.
const (
	KindOutcome = "outcome"
	KindCycle   = "cycle"
	KindFatal   = "fatal"
)

// Record is one line of session history after the meta line.
type Record struct {
	Kind      string `json:"kind"`
	Time      string `json:"time"`
	Cycle     int    `json:"cycle,omitempty"`
	Listing   string `json:"listing,omitempty"`
	Status    string `json:"status,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Total     int    `json:"total,omitempty"`
	Succeeded int    `json:"succeeded,omitempty"`
	Failed    int    `json:"failed,omitempty"`
	NextRun   string `json:"next_run,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SessionMeta is stored as the first line of the JSONL file
type SessionMeta struct {
	ID              string  `json:"id"`
	Identity        string  `json:"identity"`
	Target          string  `json:"target"`
	IntervalMinutes float64 `json:"interval_minutes"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// Session is the history of one bump session.
type Session struct {
	Meta    SessionMeta
	Records []Record
	mu      sync.RWMutex
}

// Append adds a record (append-only, never delete)
func (s *Session) Append(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	if r.Time == "" {
		r.Time = now
	}
	s.Records = append(s.Records, r)
	s.Meta.UpdatedAt = now
}

// AllRecords returns a copy of every record.
func (s *Session) AllRecords() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Record, len(s.Records))
	copy(result, s.Records)
	return result
}

// Totals counts successful and failed outcomes across the session.
func (s *Session) Totals() (succeeded, failed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.Records {
		if r.Kind != KindOutcome {
			continue
		}
		if r.Status == "success" {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// Manager handles session persistence
type Manager struct {
	dataDir string
	cache   map[string]*Session
	mu      sync.RWMutex
}

// NewManager creates a Manager rooted at dataDir
func NewManager(dataDir string) *Manager {
	return &Manager{
		dataDir: dataDir,
		cache:   make(map[string]*Session),
	}
}

// idToFilename replaces unsafe characters for use as a filename
func idToFilename(id string) string {
	r := strings.NewReplacer(":", "_", "/", "_", "\\", "_")
	return r.Replace(id) + ".jsonl"
}

// Create starts a new session with a fresh ID. Fields of meta other than
// the ID and timestamps are kept.
func (m *Manager) Create(meta SessionMeta) *Session {
	now := time.Now().UTC().Format(time.RFC3339)
	meta.ID = uuid.NewString()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	s := &Session{Meta: meta, Records: []Record{}}

	m.mu.Lock()
	m.cache[meta.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns a cached or stored session, or nil if there is none.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.cache[id]; ok {
		return s
	}
	s := m.load(filepath.Join(m.dataDir, idToFilename(id)))
	if s != nil {
		m.cache[id] = s
	}
	return s
}

// Save persists session to a JSONL file
func (m *Manager) Save(s *Session) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create history dir: %w", err)
	}

	path := filepath.Join(m.dataDir, idToFilename(s.Meta.ID))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create history file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	if err := enc.Encode(s.Meta); err != nil {
		return fmt.Errorf("failed to write session meta: %w", err)
	}
	for _, r := range s.Records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// List returns the meta of every stored session, newest first.
func (m *Manager) List() ([]SessionMeta, error) {
	entries, err := os.ReadDir(m.dataDir)
	if os.IsNotExist(err) {
		return []SessionMeta{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history dir: %w", err)
	}

	metas := []SessionMeta{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		if s := m.load(filepath.Join(m.dataDir, e.Name())); s != nil {
			metas = append(metas, s.Meta)
		}
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].CreatedAt > metas[j].CreatedAt })
	return metas, nil
}

// load reads a session from disk; returns nil if the file is missing or
// has no valid meta line
func (m *Manager) load(path string) *Session {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	// First line is SessionMeta
	if !scanner.Scan() {
		return nil
	}
	var meta SessionMeta
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil || meta.ID == "" {
		return nil
	}

	records := []Record{}
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	return &Session{Meta: meta, Records: records}
}
