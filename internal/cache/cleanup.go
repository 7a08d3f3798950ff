package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Stats reports the outcome of a cleanup pass.
type Stats struct {
	RemovedCount int
	FreedBytes   int64
}

// Policy decides whether an individual entry is stale.
type Policy struct {
	MaxCacheSizeMB         int
	MaxAgeDays             int
	MaxIdleDays            int
	RemoveVersionMismatch  bool
}

// DefaultPolicy mirrors the upstream tool's defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxCacheSizeMB:        500,
		MaxAgeDays:            90,
		MaxIdleDays:           30,
		RemoveVersionMismatch: true,
	}
}

// IsStale reports whether entry should be removed under this policy.
func (p Policy) IsStale(entry *Entry, currentVersion string) bool {
	if p.RemoveVersionMismatch && entry.Version != currentVersion {
		return true
	}
	if entry.AgeDays() > int64(p.MaxAgeDays) {
		return true
	}
	if entry.IdleDays() > int64(p.MaxIdleDays) {
		return true
	}
	return false
}

// TriggerKind distinguishes the sum-type variants of Trigger.
type TriggerKind int

const (
	TriggerPeriodic TriggerKind = iota
	TriggerOnSizeLimit
	TriggerCombined
	TriggerManual
)

// Trigger decides when cleanup should run automatically. Only the fields
// relevant to Kind are read.
type Trigger struct {
	Kind            TriggerKind
	PeriodicDays    int  // Periodic, or Combined when CombinedHasPeriodic
	ThresholdMB     int  // OnSizeLimit
	CombinedHasPeriodic bool
	CombinedPeriodicDays int
	CombinedHasSizeLimit bool
	CombinedSizeLimitMB  int
}

// DefaultTrigger mirrors the upstream tool's default: combined periodic (7
// days) and size-limit (500MB) triggers.
func DefaultTrigger() Trigger {
	return Trigger{
		Kind:                 TriggerCombined,
		CombinedHasPeriodic:  true,
		CombinedPeriodicDays: 7,
		CombinedHasSizeLimit: true,
		CombinedSizeLimitMB:  500,
	}
}

type cleanupState struct {
	LastCleanupTimestamp time.Time `json:"last_cleanup_timestamp"`
	LastCleanupType       string   `json:"last_cleanup_type"`
}

func defaultCleanupState() cleanupState {
	return cleanupState{
		LastCleanupTimestamp: time.Unix(0, 0).UTC(),
		LastCleanupType:      "none",
	}
}

// Manager runs stale-entry and LRU-by-size cleanup sweeps over a cache
// directory, persisting when it last ran so periodic triggers can be
// evaluated cheaply without walking the tree.
type Manager struct {
	dir       string
	policy    Policy
	trigger   Trigger
	stateFile string
}

// NewManager returns a Manager with the default policy and trigger.
func NewManager(dir string) *Manager {
	return NewManagerWithConfig(dir, DefaultPolicy(), DefaultTrigger())
}

// NewManagerWithConfig returns a Manager with an explicit policy and trigger.
func NewManagerWithConfig(dir string, policy Policy, trigger Trigger) *Manager {
	return &Manager{
		dir:       dir,
		policy:    policy,
		trigger:   trigger,
		stateFile: filepath.Join(dir, "cleanup_state.json"),
	}
}

// ShouldRunPeriodicCleanup reports whether enough days have elapsed since
// the last periodic (or combined-periodic) cleanup to run one now.
func (m *Manager) ShouldRunPeriodicCleanup() (bool, error) {
	switch m.trigger.Kind {
	case TriggerManual, TriggerOnSizeLimit:
		return false, nil
	case TriggerPeriodic:
		state, err := m.loadState()
		if err != nil {
			return false, err
		}
		return elapsedDays(state.LastCleanupTimestamp) >= int64(m.trigger.PeriodicDays), nil
	case TriggerCombined:
		if !m.trigger.CombinedHasPeriodic {
			return false, nil
		}
		state, err := m.loadState()
		if err != nil {
			return false, err
		}
		return elapsedDays(state.LastCleanupTimestamp) >= int64(m.trigger.CombinedPeriodicDays), nil
	default:
		return false, nil
	}
}

// IsOverSizeLimit reports whether the cache directory exceeds the
// size-limit trigger's threshold.
func (m *Manager) IsOverSizeLimit() (bool, error) {
	var thresholdMB int
	switch m.trigger.Kind {
	case TriggerOnSizeLimit:
		thresholdMB = m.trigger.ThresholdMB
	case TriggerCombined:
		if !m.trigger.CombinedHasSizeLimit {
			return false, nil
		}
		thresholdMB = m.trigger.CombinedSizeLimitMB
	default:
		return false, nil
	}

	total, err := m.calculateTotalSize()
	if err != nil {
		return false, err
	}
	return total > int64(thresholdMB)*1_048_576, nil
}

func elapsedDays(since time.Time) int64 {
	return int64(time.Since(since).Hours() / 24)
}

func (m *Manager) calculateTotalSize() (int64, error) {
	if _, err := os.Stat(m.dir); os.IsNotExist(err) {
		return 0, nil
	}
	var total int64
	err := filepath.WalkDir(m.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total, err
}

type entryFile struct {
	path  string
	entry *Entry
	size  int64
}

func (m *Manager) walkEntries() ([]entryFile, error) {
	if _, err := os.Stat(m.dir); os.IsNotExist(err) {
		return nil, nil
	}
	var entries []entryFile
	err := filepath.WalkDir(m.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		var e Entry
		if json.Unmarshal(data, &e) != nil {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		entries = append(entries, entryFile{path: path, entry: &e, size: info.Size()})
		return nil
	})
	return entries, err
}

// CleanupStaleEntries removes every entry the policy considers stale
// (wrong version, too old, or idle too long).
func (m *Manager) CleanupStaleEntries() (Stats, error) {
	var stats Stats
	entries, err := m.walkEntries()
	if err != nil {
		return stats, err
	}
	for _, ef := range entries {
		if m.policy.IsStale(ef.entry, Version) {
			if os.Remove(ef.path) == nil {
				stats.RemovedCount++
				stats.FreedBytes += ef.size
			}
		}
	}
	if err := m.saveState(cleanupState{LastCleanupTimestamp: time.Now().UTC(), LastCleanupType: "stale"}); err != nil {
		return stats, err
	}
	return stats, nil
}

// CleanupBySize removes the least-recently-accessed entries until the
// cache is back under MaxCacheSizeMB.
func (m *Manager) CleanupBySize() (Stats, error) {
	var stats Stats
	entries, err := m.walkEntries()
	if err != nil {
		return stats, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].entry.Metadata.LastAccessed.Before(entries[j].entry.Metadata.LastAccessed)
	})

	var totalSize int64
	for _, ef := range entries {
		totalSize += ef.size
	}
	maxSize := int64(m.policy.MaxCacheSizeMB) * 1_048_576
	if totalSize <= maxSize {
		return stats, nil
	}

	targetRemoval := totalSize - maxSize
	for _, ef := range entries {
		if targetRemoval <= 0 {
			break
		}
		if os.Remove(ef.path) == nil {
			stats.RemovedCount++
			stats.FreedBytes += ef.size
			targetRemoval -= ef.size
			if targetRemoval < 0 {
				targetRemoval = 0
			}
		}
	}

	if err := m.saveState(cleanupState{LastCleanupTimestamp: time.Now().UTC(), LastCleanupType: "size"}); err != nil {
		return stats, err
	}
	return stats, nil
}

func (m *Manager) loadState() (cleanupState, error) {
	data, err := os.ReadFile(m.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultCleanupState(), nil
		}
		return cleanupState{}, err
	}
	var s cleanupState
	if err := json.Unmarshal(data, &s); err != nil {
		return defaultCleanupState(), nil
	}
	return s, nil
}

func (m *Manager) saveState(s cleanupState) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.stateFile, data, 0o644)
}
