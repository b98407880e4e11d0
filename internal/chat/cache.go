package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Cache persists recent channel history so a restart shows messages
// before the first relay responds.
type Cache struct {
	path string
}

// NewCache returns a cache backed by a JSON file at path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Load returns the cached history. A missing file is not an error.
func (c *Cache) Load() ([]Message, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading message cache: %w", err)
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parsing message cache: %w", err)
	}
	return msgs, nil
}

// Save writes the most recent MaxMessages entries. Optimistic entries are
// skipped; only relay-confirmed history survives a restart.
func (c *Cache) Save(msgs []Message) error {
	confirmed := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.Optimistic {
			confirmed = append(confirmed, m)
		}
	}
	if len(confirmed) > MaxMessages {
		confirmed = confirmed[len(confirmed)-MaxMessages:]
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	data, err := json.MarshalIndent(confirmed, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding message cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing message cache: %w", err)
	}
	return nil
}
