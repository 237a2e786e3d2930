// Package dailycache stores one JSON file per logical key, valid only for the
// calendar day it was written on.
package dailycache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

const dateLayout = "2006-01-02"

// Store is a file-backed daily cache. Load fails open and Save never returns
// an error: the cache is an optimization only.
type Store struct {
	Dir string
	Now func() time.Time
}

// New creates a store under dir.
func New(dir string) *Store {
	return &Store{Dir: dir, Now: time.Now}
}

type entry struct {
	Date string          `json:"date"`
	Data json.RawMessage `json:"data"`
}

// Path returns the file backing key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.Dir, "cache_"+key+".json")
}

func (s *Store) today() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().Format(dateLayout)
}

// Load decodes the entry for key into dst. It reports false when the file is
// missing, unreadable, corrupt, or from another day.
func (s *Store) Load(key string, dst any) bool {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Cache read %s: %v", key, err)
		}
		return false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		log.Printf("Cache %s is corrupt: %v", key, err)
		return false
	}
	if e.Date != s.today() || len(e.Data) == 0 {
		return false
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		log.Printf("Cache %s payload: %v", key, err)
		return false
	}
	return true
}

// Save overwrites the entry for key with payload stamped with today's date.
// Errors are logged.
func (s *Store) Save(key string, payload any) {
	if err := s.save(key, payload); err != nil {
		log.Printf("Cache write %s: %v", key, err)
	}
}

func (s *Store) save(key string, payload any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Date string `json:"date"`
		Data any    `json:"data"`
	}{s.today(), payload}); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, "cache_"+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("renaming: %w", err)
	}
	return nil
}

// Date returns the captured date of key's entry, regardless of staleness.
func (s *Store) Date(key string) (string, bool) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return "", false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", false
	}
	return e.Date, e.Date != ""
}
