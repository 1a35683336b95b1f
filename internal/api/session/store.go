package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const (
	DefaultTimeout      = 24 * time.Hour
	DefaultHistoryLimit = 50

	// activeWindow is the recency threshold used by Overview.
	activeWindow = time.Hour
)

// Store keeps per-visitor sessions, their conversation history and saved
// preferences. Every read and write re-checks that the session has not
// expired; an expired session behaves exactly like an unknown one.
type Store interface {
	Create(ctx context.Context, userCtx *types.UserContext) (string, error)
	GetOrCreate(ctx context.Context, id string, userCtx *types.UserContext) (string, error)
	IsValid(ctx context.Context, id string) bool
	AddMessage(ctx context.Context, id string, role types.MessageRole, content string) bool
	// History returns the last limit messages oldest first. limit <= 0 returns all.
	History(ctx context.Context, id string, limit int) []types.ConversationMessage
	SavePreferences(ctx context.Context, id string, prefs map[string]any) bool
	Preferences(ctx context.Context, id string) map[string]any
	UserContext(ctx context.Context, id string) (*types.UserContext, bool)
	UpdateUserContext(ctx context.Context, id string, userCtx types.UserContext) bool
	Stats(ctx context.Context, id string) (*types.SessionStats, bool)
	Overview(ctx context.Context) types.SessionsOverview
	// CleanupExpired deletes every expired session and returns how many were removed.
	CleanupExpired(ctx context.Context) int
}

type options struct {
	timeout      time.Duration
	historyLimit int
	now          func() time.Time
	logger       *slog.Logger
}

type Option func(*options)

// WithClock replaces time.Now. Tests use it to move past the timeout.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithHistoryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.historyLimit = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		timeout:      DefaultTimeout,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func buildStats(s *types.Session, messages int, hasPrefs bool) *types.SessionStats {
	return &types.SessionStats{
		SessionID:            s.ID,
		CreatedAt:            s.CreatedAt.Format(time.RFC3339),
		LastActivity:         s.LastActivity.Format(time.RFC3339),
		InteractionCount:     s.InteractionCount,
		ConversationMessages: messages,
		HasPreferences:       hasPrefs,
	}
}

func tail(history []types.ConversationMessage, limit int) []types.ConversationMessage {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]types.ConversationMessage, len(history))
	copy(out, history)
	return out
}

func copyPrefs(prefs map[string]any) map[string]any {
	out := make(map[string]any, len(prefs))
	for k, v := range prefs {
		out[k] = v
	}
	return out
}
