package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-hk-tourism-ai/app/observability/metrics"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process-local Store guarded by a single RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
	history  map[string][]types.ConversationMessage
	prefs    map[string]map[string]any
	opts     options
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*types.Session),
		history:  make(map[string][]types.ConversationMessage),
		prefs:    make(map[string]map[string]any),
		opts:     newOptions(opts),
	}
}

// validLocked must be called with mu held.
func (m *MemoryStore) validLocked(id string, now time.Time) (*types.Session, bool) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return s, now.Sub(s.LastActivity) < m.opts.timeout
}

func (m *MemoryStore) Create(ctx context.Context, userCtx *types.UserContext) (string, error) {
	m.mu.Lock()
	id := m.createLocked(userCtx)
	m.mu.Unlock()

	metrics.Get().SessionsCreatedTotal.Add(ctx, 1)
	m.opts.logger.InfoContext(ctx, "Created new session", slog.String("session_id", id))
	return id, nil
}

func (m *MemoryStore) createLocked(userCtx *types.UserContext) string {
	now := m.opts.now()
	s := &types.Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
	}
	if userCtx != nil {
		s.UserContext.Merge(*userCtx)
	}
	m.sessions[s.ID] = s
	return s.ID
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, id string, userCtx *types.UserContext) (string, error) {
	if id != "" {
		m.mu.Lock()
		if s, ok := m.validLocked(id, m.opts.now()); ok {
			s.LastActivity = m.opts.now()
			s.InteractionCount++
			m.mu.Unlock()
			return id, nil
		}
		m.mu.Unlock()
	}
	return m.Create(ctx, userCtx)
}

func (m *MemoryStore) IsValid(_ context.Context, id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.validLocked(id, m.opts.now())
	return ok
}

func (m *MemoryStore) AddMessage(_ context.Context, id string, role types.MessageRole, content string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	if _, ok := m.validLocked(id, now); !ok {
		return false
	}
	h := append(m.history[id], types.ConversationMessage{Role: role, Content: content, Timestamp: now})
	if len(h) > m.opts.historyLimit {
		h = append([]types.ConversationMessage(nil), h[len(h)-m.opts.historyLimit:]...)
	}
	m.history[id] = h
	return true
}

func (m *MemoryStore) History(_ context.Context, id string, limit int) []types.ConversationMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.validLocked(id, m.opts.now()); !ok {
		return []types.ConversationMessage{}
	}
	return tail(m.history[id], limit)
}

func (m *MemoryStore) SavePreferences(_ context.Context, id string, prefs map[string]any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	s, ok := m.validLocked(id, now)
	if !ok {
		return false
	}
	m.prefs[id] = copyPrefs(prefs)
	s.LastActivity = now
	return true
}

func (m *MemoryStore) Preferences(_ context.Context, id string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.validLocked(id, m.opts.now()); !ok {
		return map[string]any{}
	}
	return copyPrefs(m.prefs[id])
}

func (m *MemoryStore) UserContext(_ context.Context, id string) (*types.UserContext, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.validLocked(id, m.opts.now())
	if !ok {
		return nil, false
	}
	uc := s.UserContext
	uc.Interests = append([]string(nil), s.UserContext.Interests...)
	return &uc, true
}

func (m *MemoryStore) UpdateUserContext(_ context.Context, id string, userCtx types.UserContext) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	s, ok := m.validLocked(id, now)
	if !ok {
		return false
	}
	s.UserContext.Merge(userCtx)
	s.LastActivity = now
	return true
}

func (m *MemoryStore) Stats(_ context.Context, id string) (*types.SessionStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.validLocked(id, m.opts.now())
	if !ok {
		return nil, false
	}
	_, hasPrefs := m.prefs[id]
	return buildStats(s, len(m.history[id]), hasPrefs), true
}

func (m *MemoryStore) Overview(_ context.Context) types.SessionsOverview {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.opts.now()
	active := 0
	for _, s := range m.sessions {
		if now.Sub(s.LastActivity) < activeWindow {
			active++
		}
	}
	return types.SessionsOverview{
		TotalSessions:        len(m.sessions),
		ActiveSessions:       active,
		TotalConversations:   len(m.history),
		TotalUserPreferences: len(m.prefs),
	}
}

func (m *MemoryStore) CleanupExpired(ctx context.Context) int {
	m.mu.Lock()
	now := m.opts.now()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity) >= m.opts.timeout {
			delete(m.sessions, id)
			delete(m.history, id)
			delete(m.prefs, id)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		metrics.Get().SessionsExpiredTotal.Add(ctx, int64(removed))
		m.opts.logger.InfoContext(ctx, "Cleaned up expired sessions", slog.Int("count", removed))
	}
	return removed
}
