// Package mock provides an in-memory implementation of database.Store for testing.
package mock

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockStore is an in-memory database.Store.
type MockStore struct {
	mu         sync.RWMutex
	identities map[int64]*database.Identity
	records    map[int64]*database.AttendanceRecord
	nextID     int64
	nextRecord int64
	closed     bool

	// Error injection
	GetIdentityError      error
	ListIdentitiesError   error
	CountIdentitiesError  error
	CreateIdentityError   error
	UpdateIdentityError   error
	DeleteIdentityError   error
	GetAttendanceError    error
	LastAttendanceError   error
	AttendanceBetweenErr  error
	CreateAttendanceError error
	UpdateAttendanceError error
	DeleteAttendanceError error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		identities: make(map[int64]*database.Identity),
		records:    make(map[int64]*database.AttendanceRecord),
	}
}

func cloneIdentity(i *database.Identity) *database.Identity {
	c := *i
	c.Embedding = slices.Clone(i.Embedding)
	return &c
}

// AddIdentity inserts an identity directly, bypassing uniqueness checks, and returns its ID.
func (m *MockStore) AddIdentity(identity database.Identity) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity.ID == 0 {
		m.nextID++
		identity.ID = m.nextID
	} else if identity.ID > m.nextID {
		m.nextID = identity.ID
	}
	m.identities[identity.ID] = cloneIdentity(&identity)
	return identity.ID
}

// AddAttendance inserts a record directly and returns its ID.
func (m *MockStore) AddAttendance(record database.AttendanceRecord) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRecord++
	record.ID = m.nextRecord
	m.records[record.ID] = &record
	return record.ID
}

// AttendanceCount returns the number of stored records.
func (m *MockStore) AttendanceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Closed reports whether Close was called.
func (m *MockStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// GetIdentity returns the identity with the given ID.
func (m *MockStore) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	if m.GetIdentityError != nil {
		return nil, m.GetIdentityError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i, ok := m.identities[id]; ok {
		return cloneIdentity(i), nil
	}
	return nil, nil
}

// GetIdentityByKey returns the identity with the given external key.
func (m *MockStore) GetIdentityByKey(ctx context.Context, externalKey string) (*database.Identity, error) {
	if m.GetIdentityError != nil {
		return nil, m.GetIdentityError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, i := range m.identities {
		if i.ExternalKey == externalKey {
			return cloneIdentity(i), nil
		}
	}
	return nil, nil
}

// ListIdentities returns all identities ordered by ID.
func (m *MockStore) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	if m.ListIdentitiesError != nil {
		return nil, m.ListIdentitiesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Identity, 0, len(m.identities))
	for _, i := range m.identities {
		out = append(out, *cloneIdentity(i))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

// CountIdentities returns the number of identities.
func (m *MockStore) CountIdentities(ctx context.Context) (int, error) {
	if m.CountIdentitiesError != nil {
		return 0, m.CountIdentitiesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// CreateIdentity inserts an identity, enforcing external key uniqueness.
func (m *MockStore) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	if m.CreateIdentityError != nil {
		return m.CreateIdentityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.identities {
		if i.ExternalKey == identity.ExternalKey {
			return database.ErrDuplicateKey
		}
	}
	m.nextID++
	now := time.Now()
	identity.ID = m.nextID
	identity.CreatedAt = now
	identity.UpdatedAt = now
	m.identities[identity.ID] = cloneIdentity(identity)
	return nil
}

// UpdateIdentityNames updates the name fields.
func (m *MockStore) UpdateIdentityNames(ctx context.Context, id int64, givenName, familyName string) error {
	if m.UpdateIdentityError != nil {
		return m.UpdateIdentityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.identities[id]
	if !ok {
		return database.ErrNotFound
	}
	i.GivenName = givenName
	i.FamilyName = familyName
	i.UpdatedAt = time.Now()
	return nil
}

// DeleteIdentity removes the identity and its records.
func (m *MockStore) DeleteIdentity(ctx context.Context, id int64) error {
	if m.DeleteIdentityError != nil {
		return m.DeleteIdentityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.identities, id)
	for rid, r := range m.records {
		if r.IdentityID == id {
			delete(m.records, rid)
		}
	}
	return nil
}

// GetAttendance returns a record by ID.
func (m *MockStore) GetAttendance(ctx context.Context, id int64) (*database.AttendanceRecord, error) {
	if m.GetAttendanceError != nil {
		return nil, m.GetAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.records[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

// LastAttendance returns the newest record for an identity.
func (m *MockStore) LastAttendance(ctx context.Context, identityID int64) (*database.AttendanceRecord, error) {
	if m.LastAttendanceError != nil {
		return nil, m.LastAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last *database.AttendanceRecord
	for _, r := range m.records {
		if r.IdentityID != identityID {
			continue
		}
		if last == nil || r.Timestamp > last.Timestamp || (r.Timestamp == last.Timestamp && r.ID > last.ID) {
			last = r
		}
	}
	if last == nil {
		return nil, nil
	}
	c := *last
	return &c, nil
}

// AttendanceBetween returns records in [start, end], newest first.
func (m *MockStore) AttendanceBetween(ctx context.Context, start, end int64) ([]database.AttendanceEntry, error) {
	if m.AttendanceBetweenErr != nil {
		return nil, m.AttendanceBetweenErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.AttendanceEntry
	for _, r := range m.records {
		if r.Timestamp < start || r.Timestamp > end {
			continue
		}
		entry := database.AttendanceEntry{AttendanceRecord: *r, GivenName: database.UnknownName}
		if i, ok := m.identities[r.IdentityID]; ok {
			entry.ExternalKey = i.ExternalKey
			entry.GivenName = i.GivenName
			entry.FamilyName = i.FamilyName
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Timestamp != out[b].Timestamp {
			return out[a].Timestamp > out[b].Timestamp
		}
		return out[a].ID > out[b].ID
	})
	return out, nil
}

// CreateAttendance inserts a record.
func (m *MockStore) CreateAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	if m.CreateAttendanceError != nil {
		return m.CreateAttendanceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRecord++
	record.ID = m.nextRecord
	c := *record
	c.Confidence = 0
	m.records[record.ID] = &c
	return nil
}

// UpdateAttendance replaces a record.
func (m *MockStore) UpdateAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	if m.UpdateAttendanceError != nil {
		return m.UpdateAttendanceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.ID]; !ok {
		return database.ErrNotFound
	}
	c := *record
	c.Confidence = 0
	m.records[record.ID] = &c
	return nil
}

// DeleteAttendance removes a record.
func (m *MockStore) DeleteAttendance(ctx context.Context, id int64) error {
	if m.DeleteAttendanceError != nil {
		return m.DeleteAttendanceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ database.Store = (*MockStore)(nil)
