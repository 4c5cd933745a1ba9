package testutils

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

// MockRecordSource implements ports.RecordSource over in-memory bundles
// with configurable failures and delays. It tracks every call so tests can
// assert on fetch counts and concurrency.
type MockRecordSource struct {
	mu sync.Mutex

	snapshots map[domain.SnapshotID]domain.SnapshotRecords

	// Errors maps an operation name (ports.Op*) to the error it returns.
	Errors map[string]error

	// FailUntilAttempt makes every operation fail with Errors[op] (or
	// ports.ErrSourceUnavailable) for its first N calls.
	FailUntilAttempt int

	// Delay is applied to every call and honours context cancellation.
	Delay time.Duration

	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
}

// Compile-time interface check.
var _ ports.RecordSource = (*MockRecordSource)(nil)

// NewMockRecordSource creates a mock serving the given bundles.
func NewMockRecordSource(bundles ...domain.SnapshotRecords) *MockRecordSource {
	m := &MockRecordSource{
		snapshots: make(map[domain.SnapshotID]domain.SnapshotRecords),
		Errors:    make(map[string]error),
		calls:     make(map[string]int),
	}
	for _, b := range bundles {
		cur := m.snapshots[b.SnapshotID]
		cur.SnapshotID = b.SnapshotID
		cur.Questions = append(cur.Questions, b.Questions...)
		cur.Zones = append(cur.Zones, b.Zones...)
		cur.Memberships = append(cur.Memberships, b.Memberships...)
		m.snapshots[b.SnapshotID] = cur
	}
	return m
}

// SetError configures the error returned by an operation.
func (m *MockRecordSource) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[op] = err
}

// Calls returns how many times op was invoked.
func (m *MockRecordSource) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (m *MockRecordSource) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// PeakConcurrency returns the highest number of calls observed in flight
// at the same time.
func (m *MockRecordSource) PeakConcurrency() int {
	return int(m.peak.Load())
}

// FetchQuestions implements ports.RecordSource.
func (m *MockRecordSource) FetchQuestions(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.Question, error) {
	if err := m.begin(ctx, ports.OpFetchQuestions, snapshotID); err != nil {
		return nil, err
	}
	defer m.end()
	return clone(m.snapshots[snapshotID].Questions), nil
}

// FetchZones implements ports.RecordSource.
func (m *MockRecordSource) FetchZones(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.Zone, error) {
	if err := m.begin(ctx, ports.OpFetchZones, snapshotID); err != nil {
		return nil, err
	}
	defer m.end()
	return clone(m.snapshots[snapshotID].Zones), nil
}

// FetchZoneMemberships implements ports.RecordSource.
func (m *MockRecordSource) FetchZoneMemberships(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.ZoneMembership, error) {
	if err := m.begin(ctx, ports.OpFetchZoneMemberships, snapshotID); err != nil {
		return nil, err
	}
	defer m.end()
	return clone(m.snapshots[snapshotID].Memberships), nil
}

// begin records the call, applies the delay and returns any configured
// failure. On a nil return the caller must call end.
func (m *MockRecordSource) begin(ctx context.Context, op string, snapshotID domain.SnapshotID) error {
	m.mu.Lock()
	m.calls[op]++
	attempt := m.calls[op]
	configured := m.Errors[op]
	delay := m.Delay
	failUntil := m.FailUntilAttempt
	m.mu.Unlock()

	n := m.inFlight.Add(1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			m.end()
			return ports.NewSourceError(op, snapshotID, ctx.Err())
		}
	}

	if failUntil > 0 && attempt <= failUntil {
		m.end()
		if configured == nil {
			configured = ports.ErrSourceUnavailable
		}
		return ports.NewSourceError(op, snapshotID, configured)
	}
	if configured != nil && failUntil == 0 {
		m.end()
		return ports.NewSourceError(op, snapshotID, configured)
	}
	if err := ctx.Err(); err != nil {
		m.end()
		return ports.NewSourceError(op, snapshotID, err)
	}
	return nil
}

func (m *MockRecordSource) end() {
	m.inFlight.Add(-1)
}

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
