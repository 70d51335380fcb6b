// Package persist keeps per-channel custom responses on disk.
package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

type channel struct {
	Commands map[string]string `yaml:"commands"`
}

// Store maps channel -> command name -> response body. It is safe for
// concurrent use; every mutation is written through to the file.
type Store struct {
	mu       sync.RWMutex
	path     string
	channels map[string]*channel
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{
		path:     path,
		channels: make(map[string]*channel),
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s.channels); err != nil {
		return nil, fmt.Errorf("invalid responses file %s: %w", path, err)
	}
	if s.channels == nil {
		s.channels = make(map[string]*channel)
	}
	return s, nil
}

// Path is the backing file
func (s *Store) Path() string { return s.path }

// Get returns the body stored for name in channel
func (s *Store) Get(ch, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.channels[ch]
	if !ok || c == nil {
		return "", false
	}
	body, ok := c.Commands[name]
	return body, ok
}

// Names returns the command names of channel, sorted
func (s *Store) Names(ch string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.channels[ch]
	if !ok || c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Commands))
	for name := range c.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set stores body for name in channel and saves. The store is left
// unchanged when saving fails.
func (s *Store) Set(ch, name, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.channels[ch]
	if !ok || c == nil {
		c = &channel{}
		s.channels[ch] = c
	}
	if c.Commands == nil {
		c.Commands = make(map[string]string)
	}
	prev, existed := c.Commands[name]
	c.Commands[name] = body

	if err := s.save(); err != nil {
		if existed {
			c.Commands[name] = prev
		} else {
			delete(c.Commands, name)
			if len(c.Commands) == 0 {
				delete(s.channels, ch)
			}
		}
		return err
	}
	return nil
}

// Remove deletes name from channel and saves. It reports whether name
// existed. The store is left unchanged when saving fails.
func (s *Store) Remove(ch, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.channels[ch]
	if !ok || c == nil {
		return false, nil
	}
	prev, ok := c.Commands[name]
	if !ok {
		return false, nil
	}
	delete(c.Commands, name)
	if len(c.Commands) == 0 {
		delete(s.channels, ch)
	}

	if err := s.save(); err != nil {
		c.Commands[name] = prev
		s.channels[ch] = c
		return false, err
	}
	return true, nil
}

// save must be called with mu held
func (s *Store) save() error {
	data, err := yaml.Marshal(s.channels)
	if err != nil {
		return fmt.Errorf("failed to marshal responses: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
