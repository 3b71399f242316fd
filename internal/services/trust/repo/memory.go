package repo

import (
	"context"
	"sync"
	"time"

	"doorman/internal/services/trust/domain"
)

type pairKey struct {
	chat int64
	user int64
}

// Memory is an in-process trust repo for tests and storeless runs
// every operation is atomic under one mutex
type Memory struct {
	mu       sync.Mutex
	records  map[pairKey]domain.Record
	approved map[pairKey]struct{}
	banned   map[pairKey]*time.Time
}

// NewMemory returns an empty in-memory repo
func NewMemory() *Memory {
	return &Memory{
		records:  make(map[pairKey]domain.Record),
		approved: make(map[pairKey]struct{}),
		banned:   make(map[pairKey]*time.Time),
	}
}

func (m *Memory) Get(_ context.Context, chatID, userID int64) (domain.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[pairKey{chatID, userID}]
	return rec, ok, nil
}

func (m *Memory) Upsert(_ context.Context, rec domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.UpdatedAt = time.Now().UTC()
	m.records[pairKey{rec.ChatID, rec.UserID}] = rec
	return nil
}

func (m *Memory) IncrementClean(_ context.Context, chatID, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{chatID, userID}
	rec := m.records[k]
	rec.ChatID, rec.UserID = chatID, userID
	rec.CleanMessageCount++
	rec.UpdatedAt = time.Now().UTC()
	m.records[k] = rec
	return rec.CleanMessageCount, nil
}

func (m *Memory) SetState(_ context.Context, chatID, userID int64, state domain.State, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{chatID, userID}
	rec := m.records[k]
	rec.ChatID, rec.UserID = chatID, userID
	rec.State = state
	rec.SuspicionScore = score
	rec.UpdatedAt = time.Now().UTC()
	m.records[k] = rec
	return nil
}

func (m *Memory) SetAIDetect(_ context.Context, chatID, userID int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{chatID, userID}
	rec := m.records[k]
	rec.ChatID, rec.UserID = chatID, userID
	rec.AIDetectEnabled = enabled
	m.records[k] = rec
	return nil
}

func (m *Memory) AddApproval(_ context.Context, chatID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approved[pairKey{chatID, userID}] = struct{}{}
	return nil
}

func (m *Memory) HasApproval(_ context.Context, chatID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.approved[pairKey{chatID, userID}]; ok {
		return true, nil
	}
	_, ok := m.approved[pairKey{domain.GlobalChatID, userID}]
	return ok, nil
}

func (m *Memory) AddBan(_ context.Context, chatID, userID int64, until *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banned[pairKey{chatID, userID}] = until
	return nil
}

func (m *Memory) RemoveBan(_ context.Context, chatID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.banned, pairKey{chatID, userID})
	return nil
}

func (m *Memory) HasActiveBan(_ context.Context, chatID, userID int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range []pairKey{{chatID, userID}, {domain.GlobalChatID, userID}} {
		until, ok := m.banned[k]
		if !ok {
			continue
		}
		if until == nil || until.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ClearTrust(_ context.Context, chatID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range []pairKey{{chatID, userID}, {domain.GlobalChatID, userID}} {
		delete(m.records, k)
		delete(m.approved, k)
	}
	return nil
}

func (m *Memory) Cleanup(_ context.Context, chatID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range []pairKey{{chatID, userID}, {domain.GlobalChatID, userID}} {
		delete(m.records, k)
		delete(m.approved, k)
		delete(m.banned, k)
	}
	return nil
}
