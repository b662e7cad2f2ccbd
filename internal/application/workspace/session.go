package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

// State 工作区状态
type State string

const (
	StateLoading  State = "loading"
	StateLoaded   State = "loaded"
	StateError    State = "error"
	StateNotFound State = "not_found"
)

// CourseReader 工作区只需要读取课程
type CourseReader interface {
	GetByID(ctx context.Context, id string) (*entity.Course, error)
}

// Snapshot 会话状态快照
type Snapshot struct {
	SessionID       string         `json:"sessionId"`
	CourseID        string         `json:"courseId"`
	State           State          `json:"state"`
	Course          *entity.Course `json:"course,omitempty"`
	ActiveChapterID string         `json:"activeChapterId,omitempty"`
	// Error 最近一次失败；静默刷新失败时保留已加载的课程
	Error     string    `json:"error,omitempty"`
	Version   uint64    `json:"version"`
	FetchedAt time.Time `json:"fetchedAt,omitempty"`
}

// Session 一个浏览会话对一门课程的工作区
type Session struct {
	id         string
	courseID   string
	courses    CourseReader
	selections repository.SelectionStore
	fetcher    *Coalescer[*entity.Course]
	cancel     context.CancelFunc
	ctx        context.Context

	mu      sync.RWMutex
	snap    Snapshot
	subs    map[int]chan Snapshot
	nextSub int
}

// NewSession 创建会话，初始状态为 loading
func NewSession(sessionID, courseID string, courses CourseReader, selections repository.SelectionStore, opts CoalescerOptions) *Session {
	ctx := logger.WithContext(context.Background(), logger.SessionIDKey, sessionID)
	ctx = logger.WithContext(ctx, logger.CourseIDKey, courseID)
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:         sessionID,
		courseID:   courseID,
		courses:    courses,
		selections: selections,
		cancel:     cancel,
		ctx:        ctx,
		snap:       Snapshot{SessionID: sessionID, CourseID: courseID, State: StateLoading},
		subs:       make(map[int]chan Snapshot),
	}
	s.fetcher = NewCoalescer(ctx, s.fetch, s.apply, opts)
	return s
}

// ID 会话 ID
func (s *Session) ID() string { return s.id }

// CourseID 课程 ID
func (s *Session) CourseID() string { return s.courseID }

func (s *Session) fetch(ctx context.Context) (*entity.Course, error) {
	return s.courses.GetByID(ctx, s.courseID)
}

// Load 显式加载，进入 loading 状态并等待结果
func (s *Session) Load(ctx context.Context) (Snapshot, error) {
	s.update(func(snap *Snapshot) {
		snap.State = StateLoading
		snap.Error = ""
	})
	_, err := s.fetcher.Do(ctx)
	if errors.Is(err, ErrSuperseded) {
		err = nil
	}
	return s.Snapshot(), err
}

// Refresh 写操作后的静默刷新
func (s *Session) Refresh() {
	s.fetcher.Trigger()
}

// apply 处理最新一次拉取结果
func (s *Session) apply(course *entity.Course, err error, mode FetchMode) {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.update(func(snap *Snapshot) {
			snap.Error = apperrors.AsAppError(err).UserMessage()
			switch {
			case apperrors.IsNotFound(err):
				snap.State = StateNotFound
				snap.Course = nil
				snap.ActiveChapterID = ""
			case mode == FetchSilent && snap.Course != nil:
				// 保留已加载的课程
			default:
				snap.State = StateError
			}
		})
		logger.Warn(s.ctx, "workspace fetch failed", "mode", mode, "error", err.Error())
		return
	}

	active := s.reconcileActive(course)
	s.update(func(snap *Snapshot) {
		snap.State = StateLoaded
		snap.Course = course
		snap.ActiveChapterID = active
		snap.Error = ""
		snap.FetchedAt = time.Now().UTC()
	})
}

// reconcileActive 校验持久化的活动章节，失效时回退到第一章或清除
func (s *Session) reconcileActive(course *entity.Course) string {
	stored, err := s.selections.GetActiveChapter(s.ctx, s.id, s.courseID)
	if err != nil {
		logger.Warn(s.ctx, "read active chapter failed", "error", err.Error())
	}
	if stored != "" && course.HasChapter(stored) {
		return stored
	}

	ordered := course.OrderedChapters()
	if len(ordered) == 0 {
		if stored != "" {
			if err := s.selections.ClearActiveChapter(s.ctx, s.id, s.courseID); err != nil {
				logger.Warn(s.ctx, "clear active chapter failed", "error", err.Error())
			}
		}
		return ""
	}
	fallback := ordered[0].ID
	if err := s.selections.SetActiveChapter(s.ctx, s.id, s.courseID, fallback); err != nil {
		logger.Warn(s.ctx, "persist active chapter failed", "error", err.Error())
	}
	return fallback
}

// SelectChapter 切换活动章节，章节必须属于已加载的课程
func (s *Session) SelectChapter(ctx context.Context, chapterID string) (Snapshot, error) {
	s.mu.RLock()
	course := s.snap.Course
	s.mu.RUnlock()
	if course == nil {
		return s.Snapshot(), apperrors.ErrCourseNotFound.WithDetail("workspace has no loaded course")
	}
	if !course.HasChapter(chapterID) {
		return s.Snapshot(), apperrors.ErrChapterNotFound.WithDetail("chapter " + chapterID + " is not part of the course")
	}
	if err := s.selections.SetActiveChapter(ctx, s.id, s.courseID, chapterID); err != nil {
		return s.Snapshot(), err
	}
	s.update(func(snap *Snapshot) {
		snap.ActiveChapterID = chapterID
	})
	return s.Snapshot(), nil
}

// Snapshot 返回当前状态
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe 订阅状态变化，慢订阅者只会收到最新快照
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snap
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
}

func (s *Session) update(fn func(snap *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
	s.snap.Version++
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.snap
	}
}

// Close 取消在途调用并关闭所有订阅
func (s *Session) Close() {
	s.fetcher.Close()
	s.cancel()
	s.mu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
}

// Done 会话关闭时关闭
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}
