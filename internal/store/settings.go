package store

import (
	"database/sql"
	"fmt"
	"sync"
)

// Settings is the durable boolean key/value area. Every key is read once at
// construction; reads are then served from memory and writes are
// write-through, so a read never races a disk access.
type Settings struct {
	db *sql.DB

	mu     sync.RWMutex
	values map[string]bool
}

// NewSettings loads all persisted keys and returns the store.
func NewSettings(db *sql.DB) (*Settings, error) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]bool)
	for rows.Next() {
		var key string
		var value int
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		values[key] = value != 0
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	return &Settings{db: db, values: values}, nil
}

// Get returns the stored value; absent keys read as false.
func (s *Settings) Get(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// Set writes the value durably before updating the in-memory copy.
func (s *Settings) Set(key string, value bool) error {
	stored := 0
	if value {
		stored = 1
	}
	_, err := s.db.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, stored,
	)
	if err != nil {
		return fmt.Errorf("persisting setting %s: %w", key, err)
	}

	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}
