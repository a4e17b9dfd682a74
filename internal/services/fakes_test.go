package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shosatojp/kakeibo-back/internal/core"
)

// memStore is an in-memory stand-in for the SQLite repository, implementing
// UserStore, SessionStore and EntryStore. Setting failWith makes every call
// fail, for exercising store-fault paths.
type memStore struct {
	mu          sync.Mutex
	users       map[int64]core.User
	byName      map[string]int64
	nextUserID  int64
	sessions    map[string]core.Session
	entries     map[int64]core.Entry
	nextEntryID int64
	failWith    error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]core.User),
		byName:   make(map[string]int64),
		sessions: make(map[string]core.Session),
		entries:  make(map[int64]core.Entry),
	}
}

func (m *memStore) CreateUser(_ context.Context, userName, passwordDigest string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	if _, taken := m.byName[userName]; taken {
		return 0, core.ErrConflict
	}
	m.nextUserID++
	m.users[m.nextUserID] = core.User{ID: m.nextUserID, UserName: userName, PasswordDigest: passwordDigest}
	m.byName[userName] = m.nextUserID
	return m.nextUserID, nil
}

func (m *memStore) GetUserByName(_ context.Context, userName string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	id, ok := m.byName[userName]
	if !ok {
		return nil, core.ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) CreateSession(_ context.Context, s core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, taken := m.sessions[s.ID]; taken {
		return core.ErrConflict
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) GetSession(_ context.Context, sessionID string, userID int64) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, core.ErrNotFound
	}
	return &s, nil
}

func (m *memStore) DeleteSession(_ context.Context, sessionID string, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return 0, nil
	}
	delete(m.sessions, sessionID)
	return 1, nil
}

func (m *memStore) ReplaceSession(_ context.Context, oldID string, userID int64, next core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	s, ok := m.sessions[oldID]
	if !ok || s.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.sessions, oldID)
	m.sessions[next.ID] = next
	return nil
}

func (m *memStore) DeleteSessionsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	var n int64
	for id, s := range m.sessions {
		if s.CreatedOn.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateEntry(_ context.Context, e core.Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	m.nextEntryID++
	e.ID = m.nextEntryID
	m.entries[e.ID] = e
	return e.ID, nil
}

func (m *memStore) ListEntries(_ context.Context, userID int64, start, end time.Time) ([]core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []core.Entry
	for _, e := range m.entries {
		if e.UserID == userID && !e.Date.Before(start) && e.Date.Before(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListAllEntries(_ context.Context, userID int64) ([]core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []core.Entry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) DeleteEntry(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	if _, ok := m.entries[id]; !ok {
		return 0, nil
	}
	delete(m.entries, id)
	return 1, nil
}

func (m *memStore) DeleteEntryOwned(_ context.Context, id, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	e, ok := m.entries[id]
	if !ok || e.UserID != userID {
		return 0, nil
	}
	delete(m.entries, id)
	return 1, nil
}

func (m *memStore) DistinctCategories(_ context.Context, userID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.entries {
		if e.UserID == userID && !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	return out, nil
}

func (m *memStore) SumByCategory(_ context.Context, userID int64, start, end time.Time) ([]core.CategorySum, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	agg := make(map[string]*core.CategorySum)
	for _, e := range m.entries {
		if e.UserID != userID || e.Date.Before(start) || !e.Date.Before(end) {
			continue
		}
		cs, ok := agg[e.Category]
		if !ok {
			cs = &core.CategorySum{Category: e.Category}
			agg[e.Category] = cs
		}
		cs.Count++
		cs.Sum += e.Price
	}
	var out []core.CategorySum
	for _, cs := range agg {
		out = append(out, *cs)
	}
	return out, nil
}

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// seqTokens hands out deterministic distinct tokens.
type seqTokens struct {
	mu sync.Mutex
	n  int
}

func (t *seqTokens) Generate(length int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	tok := fmt.Sprintf("token-%04d", t.n)
	for len(tok) < length {
		tok += "0"
	}
	return tok, nil
}

// capturedEvents records published entry events.
type capturedEvents struct {
	mu      sync.Mutex
	created []int64
	deleted []int64
	err     error
}

func (p *capturedEvents) PublishEntryCreated(_ context.Context, e core.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.created = append(p.created, e.ID)
	return nil
}

func (p *capturedEvents) PublishEntryDeleted(_ context.Context, entryID, _ int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.deleted = append(p.deleted, entryID)
	return nil
}
