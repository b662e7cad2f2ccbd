package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
)

func newTestRepo(t *testing.T) *GenerationEventRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	client := Wrap(db)
	require.NoError(t, client.Migrate(context.Background()))
	require.NoError(t, client.HealthCheck(context.Background()))
	return NewGenerationEventRepository(client)
}

func event(courseID string, kind entity.GenerationEventKind, status entity.GenerationEventStatus, at time.Time) *entity.GenerationEvent {
	ev := entity.NewGenerationEvent(courseID, kind, status)
	ev.OccurredAt = at
	return ev
}

func TestGenerationEventCreateIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ev := event("c1", entity.EventCourseCreated, entity.EventStatusSucceeded, time.Now().UTC())
	ev.Tags = append(ev.Tags, "directive:course")
	require.NoError(t, repo.Create(ctx, ev))
	require.NoError(t, repo.Create(ctx, ev))

	page, err := repo.ListByCourse(ctx, "c1", nil, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, ev.ID, page.Items[0].ID)
	assert.Equal(t, []string{"directive:course"}, []string(page.Items[0].Tags))
}

func TestListByCourseFiltersAndOrders(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := event("c1", entity.EventChapterGenerated, entity.EventStatusSucceeded, base)
	first.ChapterID = "ch1"
	second := event("c1", entity.EventChapterTransformed, entity.EventStatusFailed, base.Add(time.Minute))
	second.ChapterID = "ch1"
	second.Directive = "expand"
	third := event("c1", entity.EventChapterGenerated, entity.EventStatusSucceeded, base.Add(2*time.Minute))
	third.ChapterID = "ch2"
	other := event("c2", entity.EventChapterGenerated, entity.EventStatusSucceeded, base)
	require.NoError(t, repo.CreateBatch(ctx, []*entity.GenerationEvent{first, second, third, other}))

	all, err := repo.ListByCourse(ctx, "c1", nil, repository.NewPagination(1, 2))
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)
	assert.Equal(t, 2, all.TotalPages)
	require.Len(t, all.Items, 2)
	assert.Equal(t, third.ID, all.Items[0].ID)
	assert.Equal(t, second.ID, all.Items[1].ID)

	byChapter, err := repo.ListByCourse(ctx, "c1", &repository.GenerationEventFilter{ChapterID: "ch1"}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, byChapter.Total)

	failed, err := repo.ListByCourse(ctx, "c1", &repository.GenerationEventFilter{Status: entity.EventStatusFailed}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, failed.Items, 1)
	assert.Equal(t, "expand", failed.Items[0].Directive)

	since, err := repo.ListByCourse(ctx, "c1", &repository.GenerationEventFilter{Kind: entity.EventChapterGenerated, Since: base.Add(time.Second)}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, since.Items, 1)
	assert.Equal(t, third.ID, since.Items[0].ID)
}

func TestListOrphanedCourses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateBatch(ctx, []*entity.GenerationEvent{
		// 失败后未重试
		event("orphan-old", entity.EventIntroductionFailed, entity.EventStatusFailed, base),
		// 失败后重试成功
		event("recovered", entity.EventIntroductionFailed, entity.EventStatusFailed, base),
		event("recovered", entity.EventIntroductionGenerated, entity.EventStatusSucceeded, base.Add(time.Minute)),
		// 成功后再次失败
		event("orphan-new", entity.EventIntroductionGenerated, entity.EventStatusSucceeded, base),
		event("orphan-new", entity.EventIntroductionFailed, entity.EventStatusFailed, base.Add(time.Hour)),
		event("healthy", entity.EventIntroductionGenerated, entity.EventStatusSucceeded, base),
	}))

	ids, err := repo.ListOrphanedCourses(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan-new", "orphan-old"}, ids)

	limited, err := repo.ListOrphanedCourses(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan-new"}, limited)
}

func TestWithTransactionRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.client.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, event("c1", entity.EventCourseCreated, entity.EventStatusSucceeded, time.Now().UTC())); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	page, err := repo.ListByCourse(ctx, "c1", nil, repository.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
