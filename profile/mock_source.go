package profile

import (
	"context"
	"sync"
	"sync/atomic"
)

// A fake profile source, for use in tests. Lookups count external calls and
// can be forced to fail or block.
type MockSource struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	errs     map[string]error

	// number of Lookup calls made against this source
	Calls atomic.Int64
	// if not nil, every Lookup blocks on this channel before resolving
	Gate chan struct{}
}

var _ Source = (*MockSource)(nil)

func NewMockSource() *MockSource {
	return &MockSource{
		profiles: make(map[string]Profile),
		errs:     make(map[string]error),
	}
}

func (m *MockSource) Insert(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[NormalizeHandle(p.Handle)] = p
}

func (m *MockSource) Fail(handle string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[NormalizeHandle(handle)] = err
}

func (m *MockSource) Lookup(ctx context.Context, handle string) (*Profile, error) {
	m.Calls.Add(1)
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	handle = NormalizeHandle(handle)
	if err, ok := m.errs[handle]; ok {
		return nil, err
	}
	p, ok := m.profiles[handle]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}
