package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/go-hk-tourism-ai/app/observability/metrics"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const (
	keyPrefix = "hk:session:"
	indexKey  = "hk:sessions"

	fieldCreatedAt    = "created_at"
	fieldLastActivity = "last_activity"
	fieldInteractions = "interaction_count"
	fieldUserContext  = "user_context"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps sessions in Redis so several API replicas can share them.
// Keys carry a TTL equal to the session timeout, refreshed on activity;
// validity is still decided by the stored last_activity.
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: newOptions(opts)}
}

func sessionKey(id string) string { return keyPrefix + id }
func historyKey(id string) string { return keyPrefix + id + ":history" }
func prefsKey(id string) string   { return keyPrefix + id + ":prefs" }

func (s *RedisStore) logError(ctx context.Context, op, id string, err error) {
	s.opts.logger.ErrorContext(ctx, "Redis session store error",
		slog.String("operation", op),
		slog.String("session_id", id),
		slog.Any("error", err))
}

// load returns the stored session, or nil when the hash is gone.
func (s *RedisStore) load(ctx context.Context, id string) (*types.Session, error) {
	if id == "" {
		return nil, nil
	}
	fields, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	sess := &types.Session{ID: id}
	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if sess.LastActivity, err = time.Parse(time.RFC3339Nano, fields[fieldLastActivity]); err != nil {
		return nil, fmt.Errorf("parse last_activity: %w", err)
	}
	if v := fields[fieldInteractions]; v != "" {
		if sess.InteractionCount, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parse interaction_count: %w", err)
		}
	}
	if raw := fields[fieldUserContext]; raw != "" {
		if err = json.Unmarshal([]byte(raw), &sess.UserContext); err != nil {
			return nil, fmt.Errorf("decode user_context: %w", err)
		}
	}
	return sess, nil
}

func (s *RedisStore) loadValid(ctx context.Context, op, id string) (*types.Session, bool) {
	sess, err := s.load(ctx, id)
	if err != nil {
		s.logError(ctx, op, id, err)
		return nil, false
	}
	if sess == nil || s.opts.now().Sub(sess.LastActivity) >= s.opts.timeout {
		return nil, false
	}
	return sess, true
}

// touch refreshes last_activity and the TTL of every key of the session.
func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, id string, now time.Time) {
	pipe.HSet(ctx, sessionKey(id), fieldLastActivity, now.Format(time.RFC3339Nano))
	pipe.Expire(ctx, sessionKey(id), s.opts.timeout)
	pipe.Expire(ctx, historyKey(id), s.opts.timeout)
	pipe.Expire(ctx, prefsKey(id), s.opts.timeout)
}

func (s *RedisStore) Create(ctx context.Context, userCtx *types.UserContext) (string, error) {
	id := uuid.NewString()
	now := s.opts.now().Format(time.RFC3339Nano)

	var uc types.UserContext
	if userCtx != nil {
		uc.Merge(*userCtx)
	}
	ucJSON, err := json.Marshal(uc)
	if err != nil {
		return "", fmt.Errorf("encode user context: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(id),
		fieldCreatedAt, now,
		fieldLastActivity, now,
		fieldInteractions, 0,
		fieldUserContext, string(ucJSON),
	)
	pipe.Expire(ctx, sessionKey(id), s.opts.timeout)
	pipe.SAdd(ctx, indexKey, id)
	if _, err = pipe.Exec(ctx); err != nil {
		s.logError(ctx, "Create", id, err)
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	metrics.Get().SessionsCreatedTotal.Add(ctx, 1)
	s.opts.logger.InfoContext(ctx, "Created new session", slog.String("session_id", id))
	return id, nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, id string, userCtx *types.UserContext) (string, error) {
	if _, ok := s.loadValid(ctx, "GetOrCreate", id); ok {
		pipe := s.client.TxPipeline()
		pipe.HIncrBy(ctx, sessionKey(id), fieldInteractions, 1)
		s.touch(ctx, pipe, id, s.opts.now())
		if _, err := pipe.Exec(ctx); err != nil {
			s.logError(ctx, "GetOrCreate", id, err)
			return "", fmt.Errorf("failed to refresh session: %w", err)
		}
		return id, nil
	}
	return s.Create(ctx, userCtx)
}

func (s *RedisStore) IsValid(ctx context.Context, id string) bool {
	_, ok := s.loadValid(ctx, "IsValid", id)
	return ok
}

func (s *RedisStore) AddMessage(ctx context.Context, id string, role types.MessageRole, content string) bool {
	if _, ok := s.loadValid(ctx, "AddMessage", id); !ok {
		return false
	}
	raw, err := json.Marshal(types.ConversationMessage{Role: role, Content: content, Timestamp: s.opts.now()})
	if err != nil {
		s.logError(ctx, "AddMessage", id, err)
		return false
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, historyKey(id), raw)
	pipe.LTrim(ctx, historyKey(id), int64(-s.opts.historyLimit), -1)
	pipe.Expire(ctx, historyKey(id), s.opts.timeout)
	if _, err = pipe.Exec(ctx); err != nil {
		s.logError(ctx, "AddMessage", id, err)
		return false
	}
	return true
}

func (s *RedisStore) History(ctx context.Context, id string, limit int) []types.ConversationMessage {
	out := []types.ConversationMessage{}
	if _, ok := s.loadValid(ctx, "History", id); !ok {
		return out
	}
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := s.client.LRange(ctx, historyKey(id), start, -1).Result()
	if err != nil {
		s.logError(ctx, "History", id, err)
		return out
	}
	for _, item := range items {
		var msg types.ConversationMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			s.logError(ctx, "History", id, err)
			continue
		}
		out = append(out, msg)
	}
	return out
}

func (s *RedisStore) SavePreferences(ctx context.Context, id string, prefs map[string]any) bool {
	if _, ok := s.loadValid(ctx, "SavePreferences", id); !ok {
		return false
	}
	if prefs == nil {
		prefs = map[string]any{}
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		s.logError(ctx, "SavePreferences", id, err)
		return false
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, prefsKey(id), raw, s.opts.timeout)
	s.touch(ctx, pipe, id, s.opts.now())
	if _, err = pipe.Exec(ctx); err != nil {
		s.logError(ctx, "SavePreferences", id, err)
		return false
	}
	return true
}

func (s *RedisStore) Preferences(ctx context.Context, id string) map[string]any {
	prefs := map[string]any{}
	if _, ok := s.loadValid(ctx, "Preferences", id); !ok {
		return prefs
	}
	raw, err := s.client.Get(ctx, prefsKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logError(ctx, "Preferences", id, err)
		}
		return prefs
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		s.logError(ctx, "Preferences", id, err)
		return map[string]any{}
	}
	return prefs
}

func (s *RedisStore) UserContext(ctx context.Context, id string) (*types.UserContext, bool) {
	sess, ok := s.loadValid(ctx, "UserContext", id)
	if !ok {
		return nil, false
	}
	return &sess.UserContext, true
}

func (s *RedisStore) UpdateUserContext(ctx context.Context, id string, userCtx types.UserContext) bool {
	sess, ok := s.loadValid(ctx, "UpdateUserContext", id)
	if !ok {
		return false
	}
	sess.UserContext.Merge(userCtx)
	raw, err := json.Marshal(sess.UserContext)
	if err != nil {
		s.logError(ctx, "UpdateUserContext", id, err)
		return false
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(id), fieldUserContext, string(raw))
	s.touch(ctx, pipe, id, s.opts.now())
	if _, err = pipe.Exec(ctx); err != nil {
		s.logError(ctx, "UpdateUserContext", id, err)
		return false
	}
	return true
}

func (s *RedisStore) Stats(ctx context.Context, id string) (*types.SessionStats, bool) {
	sess, ok := s.loadValid(ctx, "Stats", id)
	if !ok {
		return nil, false
	}

	pipe := s.client.Pipeline()
	llen := pipe.LLen(ctx, historyKey(id))
	exists := pipe.Exists(ctx, prefsKey(id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		s.logError(ctx, "Stats", id, err)
		return nil, false
	}
	return buildStats(sess, int(llen.Val()), exists.Val() > 0), true
}

func (s *RedisStore) Overview(ctx context.Context) types.SessionsOverview {
	var out types.SessionsOverview
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		s.logError(ctx, "Overview", "", err)
		return out
	}

	now := s.opts.now()
	for _, id := range ids {
		sess, err := s.load(ctx, id)
		if err != nil || sess == nil {
			continue
		}
		out.TotalSessions++
		if now.Sub(sess.LastActivity) < activeWindow {
			out.ActiveSessions++
		}
		if n, err := s.client.Exists(ctx, historyKey(id)).Result(); err == nil && n > 0 {
			out.TotalConversations++
		}
		if n, err := s.client.Exists(ctx, prefsKey(id)).Result(); err == nil && n > 0 {
			out.TotalUserPreferences++
		}
	}
	return out
}

// CleanupExpired walks the index set. Entries whose hash already vanished
// through the Redis TTL are counted as well.
func (s *RedisStore) CleanupExpired(ctx context.Context) int {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		s.logError(ctx, "CleanupExpired", "", err)
		return 0
	}

	now := s.opts.now()
	removed := 0
	for _, id := range ids {
		sess, err := s.load(ctx, id)
		if err != nil {
			s.logError(ctx, "CleanupExpired", id, err)
			continue
		}
		if sess != nil && now.Sub(sess.LastActivity) < s.opts.timeout {
			continue
		}

		pipe := s.client.TxPipeline()
		pipe.Del(ctx, sessionKey(id), historyKey(id), prefsKey(id))
		pipe.SRem(ctx, indexKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			s.logError(ctx, "CleanupExpired", id, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.Get().SessionsExpiredTotal.Add(ctx, int64(removed))
		s.opts.logger.InfoContext(ctx, "Cleaned up expired sessions", slog.Int("count", removed))
	}
	return removed
}
