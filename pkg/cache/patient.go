// Package cache implements the patient demographics cache: a TTL+LRU
// store keyed by patient ID, kept current by ADT A01/A04/A08 and merged
// by ADT A40.
package cache

import (
	"sync"
	"time"

	"mercator-hq/jupiter/pkg/mwl"
)

// PatientInfo is the cached demographic snapshot for one patient ID.
type PatientInfo struct {
	Name      mwl.PatientName
	BirthDate time.Time
	Sex       string
}

type entry struct {
	info           PatientInfo
	expiresAt      time.Time
	createdAt      time.Time
	lastAccessedAt time.Time
	accessCount    int64
}

// PatientCache is a thread-safe cache mapping patient ID to demographics,
// with TTL and LRU eviction once it reaches capacity.
type PatientCache struct {
	entries map[string]*entry

	ttl        time.Duration
	maxEntries int

	mu sync.RWMutex

	stopCh          chan struct{}
	cleanupInterval time.Duration
}

// NewPatientCache creates a cache with the given TTL (0 = no expiry) and
// max entry count (0 = unlimited). Cleanup runs at ttl/2, floored at 10s.
func NewPatientCache(ttl time.Duration, maxEntries int) *PatientCache {
	cleanupInterval := time.Minute
	if ttl > 0 {
		cleanupInterval = ttl / 2
		if cleanupInterval < 10*time.Second {
			cleanupInterval = 10 * time.Second
		}
	}

	c := &PatientCache{
		entries:         make(map[string]*entry),
		ttl:             ttl,
		maxEntries:      maxEntries,
		stopCh:          make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}

	if ttl > 0 {
		go c.cleanupExpired()
	}

	return c
}

// Get returns the cached demographics for patientID, or (zero, false) if
// absent or expired.
func (c *PatientCache) Get(patientID string) (PatientInfo, bool) {
	c.mu.RLock()
	e, ok := c.entries[patientID]
	if !ok {
		c.mu.RUnlock()
		return PatientInfo{}, false
	}
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		c.mu.RUnlock()
		return PatientInfo{}, false
	}
	info := e.info
	c.mu.RUnlock()

	c.mu.Lock()
	if e, ok := c.entries[patientID]; ok {
		e.lastAccessedAt = time.Now()
		e.accessCount++
	}
	c.mu.Unlock()

	return info, true
}

// Put inserts or overwrites the demographics for patientID (A01/A04/A08).
func (c *PatientCache) Put(patientID string, info PatientInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[patientID]; !exists {
			c.evictLRU()
		}
	}

	now := time.Now()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}

	c.entries[patientID] = &entry{
		info:           info,
		expiresAt:      expiresAt,
		createdAt:      now,
		lastAccessedAt: now,
		accessCount:    1,
	}
}

// Merge rewrites the cache entry keyed at fromPatientID to live under
// toPatientID (ADT A40), preferring the surviving record's demographics
// when both already exist.
func (c *PatientCache) Merge(fromPatientID, toPatientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, srcOK := c.entries[fromPatientID]
	if !srcOK {
		return
	}
	delete(c.entries, fromPatientID)

	if _, dstOK := c.entries[toPatientID]; dstOK {
		return
	}
	c.entries[toPatientID] = src
}

// Delete removes patientID from the cache.
func (c *PatientCache) Delete(patientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, patientID)
}

// Size returns the current entry count.
func (c *PatientCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the background cleanup goroutine. The cache must not be
// used afterward.
func (c *PatientCache) Close() {
	close(c.stopCh)
}

func (c *PatientCache) evictLRU() {
	if len(c.entries) == 0 {
		return
	}
	var oldestKey string
	var oldestTime time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccessedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *PatientCache) cleanupExpired() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *PatientCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl == 0 {
		return
	}
	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
