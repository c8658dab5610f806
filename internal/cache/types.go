package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheClosed is returned by Put after Close
	ErrCacheClosed = errors.New("cache is closed")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory is the in-process LRU (L1)
	LevelMemory Level = iota

	// LevelDisk is the compressed on-disk store (L2)
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds cache performance metrics
type Stats struct {
	Capacity  int64 // bytes
	Size      int64 // bytes
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64

	LastAccess time.Time
	LastEvict  time.Time
}

func (s *Stats) updateHitRate() {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
}

// Config holds configuration for a Manager.
type Config struct {
	// MemoryCapacity bounds the L1 cache in bytes.
	MemoryCapacity int64

	// DiskPath is the L2 directory. Empty disables the disk cache.
	DiskPath string

	// DiskCapacity bounds the L2 cache in bytes, measured after compression.
	DiskCapacity int64

	// CompressionLevel is the zstd level, 0 disables compression.
	CompressionLevel int

	// TTL expires entries by age. Zero keeps them until evicted.
	TTL time.Duration

	// CleanupInterval is how often expired entries are removed.
	CleanupInterval time.Duration
}

// DefaultConfig returns the default cache configuration without a disk path.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   64 * 1024 * 1024,
		DiskCapacity:     512 * 1024 * 1024,
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Cache is implemented by each cache level.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error
	Size() int64
	Stats() Stats
}

// GenerateKey derives a cache key for a clip. Every part that changes the
// produced audio must be included.
func GenerateKey(provider, voice, format, text string) string {
	data := strings.Join([]string{provider, voice, format, text}, "|")
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
