package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Manager layers the memory cache over the disk cache. Disk hits are
// promoted to memory; writes reach memory at once and disk in the
// background.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache // nil when disabled

	config Config

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup
	writes      sync.WaitGroup

	mu     sync.Mutex
	closed bool
	stats  ManagerStats
}

// ManagerStats aggregates hits across levels.
type ManagerStats struct {
	Hits        int64
	Misses      int64
	MemoryHits  int64
	DiskHits    int64
	Promotions  int64
	CleanupRuns int64
	LastCleanup time.Time

	Memory Stats
	Disk   Stats
}

// NewManager creates a cache manager. A blank DiskPath keeps everything in
// memory.
func NewManager(config Config) (*Manager, error) {
	if config.MemoryCapacity <= 0 {
		return nil, errors.New("memory capacity must be positive")
	}

	m := &Manager{
		memory:      NewMemoryCache(config.MemoryCapacity),
		config:      config,
		cleanupStop: make(chan struct{}),
	}

	if config.DiskPath != "" {
		disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		m.disk = disk
		log.Debug("Audio cache ready",
			"dir", config.DiskPath,
			"size", humanize.Bytes(uint64(disk.Size())),
			"capacity", humanize.Bytes(uint64(config.DiskCapacity)))
	}

	if config.CleanupInterval > 0 && config.TTL > 0 {
		m.startCleanupRoutine()
	}
	return m, nil
}

// Get checks memory, then disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.mu.Lock()
		m.stats.Hits++
		m.stats.MemoryHits++
		m.mu.Unlock()
		return data, true
	}

	if m.disk != nil {
		if data, ok := m.disk.Get(key); ok {
			m.mu.Lock()
			m.stats.Hits++
			m.stats.DiskHits++
			m.stats.Promotions++
			m.mu.Unlock()
			// best effort
			_ = m.memory.Put(key, data)
			return data, true
		}
	}

	m.mu.Lock()
	m.stats.Misses++
	m.mu.Unlock()
	return nil, false
}

// Put stores value in memory and schedules the disk write.
func (m *Manager) Put(key string, value []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrCacheClosed
	}
	if m.disk != nil {
		m.writes.Add(1)
	}
	m.mu.Unlock()

	if err := m.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", err)
	}

	if m.disk != nil {
		go func() {
			defer m.writes.Done()
			if err := m.disk.Put(key, value); err != nil {
				log.Warn("Could not write audio to disk cache", "size", humanize.Bytes(uint64(len(value))), "err", err)
			}
		}()
	}
	return nil
}

// Delete removes key from every level.
func (m *Manager) Delete(key string) error {
	errMem := m.memory.Delete(key)
	var errDisk error
	if m.disk != nil {
		errDisk = m.disk.Delete(key)
	}
	return errors.Join(errMem, errDisk)
}

// Clear empties every level.
func (m *Manager) Clear() error {
	m.Flush()
	errMem := m.memory.Clear()
	var errDisk error
	if m.disk != nil {
		errDisk = m.disk.Clear()
	}
	return errors.Join(errMem, errDisk)
}

// Flush waits for pending disk writes.
func (m *Manager) Flush() {
	m.writes.Wait()
}

// Stats returns aggregated statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	stats := m.stats
	m.mu.Unlock()

	stats.Memory = m.memory.Stats()
	if m.disk != nil {
		stats.Disk = m.disk.Stats()
	}
	return stats
}

// Close stops the cleanup routine, waits for disk writes and saves the
// disk index.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.cleanupStop)
	m.cleanupWg.Wait()
	m.Flush()

	if m.disk != nil {
		if err := m.disk.Close(); err != nil {
			return fmt.Errorf("failed to close disk cache: %w", err)
		}
	}
	return nil
}

func (m *Manager) startCleanupRoutine() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	m.cleanupWg.Add(1)

	go func() {
		defer m.cleanupWg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.cleanup()
			case <-m.cleanupStop:
				return
			}
		}
	}()
}

// cleanup expires entries older than the TTL.
func (m *Manager) cleanup() {
	m.mu.Lock()
	m.stats.CleanupRuns++
	m.stats.LastCleanup = time.Now()
	m.mu.Unlock()

	pruned := m.memory.Prune(m.config.TTL)
	if m.disk != nil {
		pruned += m.disk.RemoveOlderThan(time.Now().Add(-m.config.TTL))
	}
	if pruned > 0 {
		log.Debug("Expired cached audio", "entries", pruned)
	}
}
