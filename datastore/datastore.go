// Package datastore implements a file-backed key/value store used for bot
// state and permission data. Data lives in memory and is flushed to a single
// YAML or JSON file (chosen by extension) with atomic writes, checksum
// change detection, and rotating backups.
package datastore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds configuration options for the DataStore.
type Config struct {
	FilePath         string
	AutoSaveInterval time.Duration
	BackupCount      int // number of backup files to keep
	Logger           zerolog.Logger
}

// DefaultConfig returns a default configuration.
func DefaultConfig(filePath string) *Config {
	return &Config{
		FilePath:         filePath,
		AutoSaveInterval: 10 * time.Second,
		BackupCount:      3,
		Logger:           zerolog.New(os.Stderr).With().Timestamp().Str("component", "datastore").Logger(),
	}
}

type codec struct {
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
	empty     string
}

func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return codec{marshal: yaml.Marshal, unmarshal: yaml.Unmarshal, empty: "{}\n"}
	default:
		return codec{
			marshal: func(v any) ([]byte, error) {
				return json.MarshalIndent(v, "", "  ")
			},
			unmarshal: json.Unmarshal,
			empty:     "{}",
		}
	}
}

// DataStore is a mutex-guarded in-memory map persisted to a single file.
// Mutations that must be atomic relative to each other (read-modify-write
// sequences) go through Transaction.
type DataStore struct {
	mu           sync.RWMutex
	data         map[string]any
	file         string
	codec        codec
	config       *Config
	lastChecksum string

	txMu sync.Mutex // serializes Transaction calls

	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// New creates a DataStore with default configuration.
func New(filePath string) (*DataStore, error) {
	return NewWithConfig(DefaultConfig(filePath))
}

// NewWithConfig creates a DataStore with custom configuration.
func NewWithConfig(config *Config) (*DataStore, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.FilePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	store := &DataStore{
		data:   make(map[string]any),
		file:   config.FilePath,
		codec:  codecFor(config.FilePath),
		config: config,
		done:   make(chan struct{}),
	}

	if _, err := os.Stat(config.FilePath); os.IsNotExist(err) {
		if err := store.writeFileAtomic([]byte(store.codec.empty)); err != nil {
			return nil, fmt.Errorf("failed to create empty data file: %w", err)
		}
	} else if err == nil {
		if err := store.loadFromFile(); err != nil {
			return nil, fmt.Errorf("failed to load data from file: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to check file existence: %w", err)
	}

	if config.AutoSaveInterval > 0 {
		store.wg.Add(1)
		go store.autoSave()
	}

	return store, nil
}

// Set stores a key/value pair.
func (ds *DataStore) Set(key string, value any) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.data[key] = value
}

// Get retrieves a value by key.
func (ds *DataStore) Get(key string) (any, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	value, exists := ds.data[key]
	return value, exists
}

// Delete removes a key/value pair.
func (ds *DataStore) Delete(key string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.data, key)
}

// Keys returns all keys, sorted.
func (ds *DataStore) Keys() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	keys := make([]string, 0, len(ds.data))
	for k := range ds.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Transaction runs fn while holding the store's exclusive mutation scope, so
// a read-modify-write sequence cannot interleave with another mutator, then
// flushes to disk. The scope is released on every exit path, including a
// panic inside fn.
func (ds *DataStore) Transaction(fn func() error) error {
	ds.txMu.Lock()
	defer ds.txMu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	return ds.saveToFile()
}

// SaveToFile forces an immediate save to disk.
func (ds *DataStore) SaveToFile() error {
	return ds.saveToFile()
}

// Close stops the autosave routine and performs a final save. Safe to call
// more than once.
func (ds *DataStore) Close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.closed = true
	ds.mu.Unlock()

	close(ds.done)
	ds.wg.Wait()
	return ds.saveToFile()
}

func (ds *DataStore) saveToFile() error {
	ds.mu.RLock()
	data, err := ds.codec.marshal(ds.data)
	ds.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	checksum := checksumOf(data)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	// Skip the write entirely if nothing changed since the last save.
	if checksum == ds.lastChecksum {
		return nil
	}

	if ds.config.BackupCount > 0 {
		if err := ds.createBackup(); err != nil {
			ds.config.Logger.Warn().Err(err).Msg("failed to create backup")
		}
	}

	if err := ds.writeFileAtomic(data); err != nil {
		return err
	}
	ds.lastChecksum = checksum
	return nil
}

func (ds *DataStore) loadFromFile() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	data, err := os.ReadFile(ds.file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	temp := make(map[string]any)
	if err := ds.codec.unmarshal(data, &temp); err != nil {
		return fmt.Errorf("malformed data file: %w", err)
	}

	ds.data = temp
	ds.lastChecksum = checksumOf(data)
	return nil
}

// writeFileAtomic writes via a temp file, fsync, and rename.
func (ds *DataStore) writeFileAtomic(data []byte) error {
	tmpFile := ds.file + ".tmp"

	f, err := os.OpenFile(tmpFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpFile, ds.file); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// createBackup copies the current file to a timestamped backup. Caller holds
// ds.mu.
func (ds *DataStore) createBackup() error {
	if _, err := os.Stat(ds.file); os.IsNotExist(err) {
		return nil
	}

	timestamp := time.Now().Format("20060102_150405")
	backupFile := fmt.Sprintf("%s.backup.%s", ds.file, timestamp)

	src, err := os.Open(ds.file)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(backupFile)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}

	ds.cleanupOldBackups()
	return nil
}

func (ds *DataStore) cleanupOldBackups() {
	matches, err := filepath.Glob(ds.file + ".backup.*")
	if err != nil {
		return
	}
	if len(matches) <= ds.config.BackupCount {
		return
	}

	// Timestamped names sort chronologically.
	sort.Strings(matches)
	for _, path := range matches[:len(matches)-ds.config.BackupCount] {
		os.Remove(path)
	}
}

func (ds *DataStore) autoSave() {
	defer ds.wg.Done()

	ticker := time.NewTicker(ds.config.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ds.done:
			return
		case <-ticker.C:
			if err := ds.saveToFile(); err != nil {
				ds.config.Logger.Error().Err(err).Msg("auto-save failed")
			}
		}
	}
}

func checksumOf(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
