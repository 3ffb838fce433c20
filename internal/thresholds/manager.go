package thresholds

import (
	"sync"

	"github.com/kypin00-web/KAM-Sentinel/internal/logger"
)

// Manager owns the live in-memory profile shared between the sampler loop
// (reader, once per tick) and the HTTP layer (reader + writer via Update and
// Reset). Profiles are treated as immutable once published: writers build a
// new Profile and swap the pointer under the lock, so a reader-held pointer
// stays consistent for the whole evaluation call.
type Manager struct {
	mu      sync.RWMutex
	store   *Store
	current *Profile

	cpuName string
	gpuName string
}

// NewManager loads (or first-creates) the persisted profile for the detected
// hardware. A corrupt or invariant-violating profile file is logged and
// replaced with freshly detected defaults — startup never fails on a bad
// profile, per the recovery contract for storage errors.
func NewManager(store *Store, cpuName, gpuName string) (*Manager, error) {
	p, err := store.Load(cpuName, gpuName)
	if err != nil {
		logger.Warn().Err(err).Str("path", store.Path()).
			Msg("threshold profile unreadable, falling back to hardware defaults")
		p = Detect(cpuName, gpuName)
		if saveErr := store.Save(p); saveErr != nil {
			return nil, saveErr
		}
	}
	return &Manager{
		store:   store,
		current: p,
		cpuName: cpuName,
		gpuName: gpuName,
	}, nil
}

// Current returns the live profile. Callers must not mutate it.
func (m *Manager) Current() *Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update applies a validated partial patch, persists the result, and swaps
// it in. On any validation or storage failure the live profile is unchanged.
func (m *Manager) Update(patch map[string]map[string]float64) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	patched, err := ApplyPatch(m.current, patch)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(patched); err != nil {
		return nil, err
	}
	m.current = patched
	return patched, nil
}

// Reset discards user customization and re-detects hardware defaults.
func (m *Manager) Reset() (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.store.Reset(m.cpuName, m.gpuName)
	if err != nil {
		return nil, err
	}
	m.current = p
	return p, nil
}
