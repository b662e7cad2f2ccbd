package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/config"
	"eduflow-api/internal/domain/repository"
	"eduflow-api/pkg/logger"
	"eduflow-api/pkg/metrics"
)

const (
	defaultMaxSessions = 1024
	defaultSessionTTL  = 30 * time.Minute
)

// Manager 管理全部工作区会话，按 TTL 与容量淘汰
type Manager struct {
	courses    CourseReader
	selections repository.SelectionStore
	opts       CoalescerOptions
	sessions   *expirable.LRU[string, *Session]

	// mu 保证同一键的查找与创建是原子的
	mu sync.Mutex
}

var _ course.MutationObserver = (*Manager)(nil)

// NewManager 创建会话管理器
func NewManager(courses CourseReader, selections repository.SelectionStore, cfg config.WorkspaceConfig) *Manager {
	size := cfg.MaxSessions
	if size <= 0 {
		size = defaultMaxSessions
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	m := &Manager{
		courses:    courses,
		selections: selections,
		opts: CoalescerOptions{
			Debounce:    cfg.Debounce,
			MinInterval: cfg.MinInterval,
		},
	}
	m.sessions = expirable.NewLRU[string, *Session](size, func(_ string, s *Session) {
		s.Close()
		metrics.WorkspaceSessions.Dec()
	}, ttl)
	return m
}

func sessionKey(sessionID, courseID string) string {
	return sessionID + "|" + courseID
}

// Open 返回已有会话或创建新会话，created 为 true 时调用方应执行 Load
func (m *Manager) Open(sessionID, courseID string) (s *Session, created bool) {
	key := sessionKey(sessionID, courseID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions.Get(key); ok {
		// 重新加入以延长 TTL
		m.sessions.Add(key, s)
		return s, false
	}
	s = NewSession(sessionID, courseID, m.courses, m.selections, m.opts)
	m.sessions.Add(key, s)
	metrics.WorkspaceSessions.Inc()
	return s, true
}

// Get 查找会话
func (m *Manager) Get(sessionID, courseID string) (*Session, bool) {
	return m.sessions.Peek(sessionKey(sessionID, courseID))
}

// Remove 关闭并移除会话
func (m *Manager) Remove(sessionID, courseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Remove(sessionKey(sessionID, courseID))
}

// Len 会话数量
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// CourseMutated 课程发生写操作后，静默刷新所有打开该课程的会话
func (m *Manager) CourseMutated(ctx context.Context, mut course.Mutation) {
	if mut.CourseID == "" {
		return
	}
	n := 0
	for _, s := range m.sessions.Values() {
		if s.CourseID() == mut.CourseID {
			s.Refresh()
			n++
		}
	}
	if n > 0 {
		logger.Debug(ctx, "workspace refresh scheduled", "sessions", n, "kind", mut.Kind)
	}
}

// Close 关闭全部会话
func (m *Manager) Close() {
	m.sessions.Purge()
}
