package intake

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Cursor persists the highest acknowledged chat update identifier so a
// later run never reprocesses old messages.
type Cursor struct {
	path string
}

// NewCursor binds a cursor to its backing file.
func NewCursor(path string) *Cursor {
	return &Cursor{path: path}
}

// Load returns the stored update identifier, or 0 when no cursor exists yet.
func (c *Cursor) Load() (int64, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cursor %s: %w", c.path, err)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor %s: %w", c.path, err)
	}
	return value, nil
}

// Store writes the update identifier atomically via a sibling temp file.
func (c *Cursor) Store(updateID int64) error {
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(updateID, 10)), 0o644); err != nil {
		return fmt.Errorf("write cursor %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("commit cursor %s: %w", c.path, err)
	}
	return nil
}
