package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

// MemoryStore 进程内会话存储，重启后丢失
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	claims   map[string]string // document id -> session id
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
		claims:   make(map[string]string),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context, kind string, opts CreateOptions) (*model.Session, error) {
	s := newSession(kind, opts, m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s.Clone(), nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Update 在锁内对副本执行 fn，fn 返回错误时不落盘
func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := s.Clone()
	if err := fn(c); err != nil {
		return nil, err
	}
	c.ID = id
	c.UpdatedAt = m.now()
	m.sessions[id] = c
	return c.Clone(), nil
}

func (m *MemoryStore) SetResult(ctx context.Context, id string, result *model.AnalysisResult) error {
	_, err := m.Update(ctx, id, func(s *model.Session) error {
		s.Result = result
		return nil
	})
	return err
}

func (m *MemoryStore) AppendMessages(ctx context.Context, id string, msgs ...model.ChatMessage) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	_, err := m.Update(ctx, id, func(s *model.Session) error {
		out = appendMessages(s, msgs, m.now())
		return nil
	})
	return out, err
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.releaseLocked(id)
	return nil
}

// List 按创建时间倒序；kind 为空时返回全部
func (m *MemoryStore) List(ctx context.Context, kind string) ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if kind != "" && s.Kind != kind {
			continue
		}
		out = append(out, s.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) Claim(ctx context.Context, sessionID string, docIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range docIDs {
		if owner, ok := m.claims[id]; ok && owner != sessionID {
			return ErrDocumentBusy
		}
	}
	for _, id := range docIDs {
		m.claims[id] = sessionID
	}
	return nil
}

func (m *MemoryStore) Release(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked(sessionID)
	return nil
}

func (m *MemoryStore) releaseLocked(sessionID string) {
	for doc, owner := range m.claims {
		if owner == sessionID {
			delete(m.claims, doc)
		}
	}
}

func (m *MemoryStore) EvictIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if s.Status == model.SessionRunning {
			continue
		}
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			m.releaseLocked(id)
			n++
		}
	}
	return n, nil
}

func sortNewestFirst(list []*model.Session) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
