package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const (
	indexFile = "cache.index"

	// smaller clips are stored as is
	compressThreshold = 1024
)

// DiskCache is the L2 cache. Clips are stored one per file, zstd
// compressed, with a gob encoded index that survives restarts.
type DiskCache struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

// diskEntry is persisted in the index, so its fields are exported.
type diskEntry struct {
	Key          string
	File         string // relative to dir
	Size         int64  // on disk
	OriginalSize int64
	Compressed   bool
	AddedAt      time.Time
	LastAccess   time.Time
}

// NewDiskCache opens or creates a disk cache in dir. A compression level of
// 0 stores clips uncompressed.
func NewDiskCache(dir string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// Always able to read entries written with compression on.
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	dc.decoder = decoder

	if err := dc.loadIndex(); err != nil {
		log.Warn("Discarding unreadable cache index", "dir", dir, "err", err)
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.size += e.Size
	}
	return dc, nil
}

// Get reads and decompresses a clip. Missing or corrupt files are dropped
// from the index and reported as a miss.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(dc.dir, entry.File))
	if err == nil && entry.Compressed {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		log.Debug("Dropping unreadable cache entry", "file", entry.File, "err", err)
		dc.remove(key)
		dc.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = entry.LastAccess
	return data, true
}

// Put writes a clip, evicting least recently used entries to make room.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data, compressed := value, false
	if dc.encoder != nil && len(value) > compressThreshold {
		if c := dc.encoder.EncodeAll(value, nil); len(c) < len(value) {
			data, compressed = c, true
		}
	}

	n := int64(len(data))
	if n > dc.capacity {
		return ErrItemTooLarge
	}
	if _, ok := dc.index[key]; ok {
		dc.remove(key)
	}
	for dc.size+n > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	name := fileName(key)
	if err := writeFileAtomic(filepath.Join(dc.dir, name), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		Key:          key,
		File:         name,
		Size:         n,
		OriginalSize: int64(len(value)),
		Compressed:   compressed,
		AddedAt:      now,
		LastAccess:   now,
	}
	dc.size += n
	return nil
}

// Delete removes an entry from the disk cache.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if _, ok := dc.index[key]; ok {
		dc.remove(key)
	}
	return nil
}

// Clear removes every entry and persists the empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key := range dc.index {
		dc.remove(key)
	}
	return dc.saveIndex()
}

// Size returns the on-disk size in bytes.
func (dc *DiskCache) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size
}

// Stats returns cache statistics.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	stats := dc.stats
	stats.Size = dc.size
	stats.ItemCount = int64(len(dc.index))
	stats.updateHitRate()
	return stats
}

// RemoveOlderThan removes entries added before cutoff.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, entry := range dc.index {
		if entry.AddedAt.Before(cutoff) {
			dc.remove(key)
			removed++
		}
	}
	return removed
}

// Close persists the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.encoder != nil {
		_ = dc.encoder.Close()
	}
	dc.decoder.Close()
	return dc.saveIndex()
}

// remove deletes an entry and its file (must be called with lock held).
func (dc *DiskCache) remove(key string) {
	entry := dc.index[key]
	if err := os.Remove(filepath.Join(dc.dir, entry.File)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Debug("Could not remove cache file", "file", entry.File, "err", err)
	}
	dc.size -= entry.Size
	delete(dc.index, key)
}

// evictOldest removes the least recently accessed entry (must be called
// with lock held).
func (dc *DiskCache) evictOldest() {
	entries := make([]*diskEntry, 0, len(dc.index))
	for _, e := range dc.index {
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.Before(entries[j].LastAccess)
	})
	dc.remove(entries[0].Key)
	dc.stats.Evictions++
	dc.stats.LastEvict = time.Now()
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck
	return gob.NewDecoder(f).Decode(&dc.index)
}

func (dc *DiskCache) saveIndex() error {
	f, err := os.CreateTemp(dc.dir, indexFile+".*")
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(dc.index); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), filepath.Join(dc.dir, indexFile))
}

func fileName(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:16]) + ".cache"
}

// writeFileAtomic writes to a temp file and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
