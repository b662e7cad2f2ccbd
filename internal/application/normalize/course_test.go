package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduflow-api/internal/domain/entity"
)

func TestCourseHandlesSnakeCaseEnvelope(t *testing.T) {
	raw := []byte(`{
		"success": true,
		"data": {
			"id": 42,
			"title": "Linear Algebra",
			"description": "Vectors and matrices",
			"subject": "math",
			"educational_level": "undergraduate",
			"target_audience": "engineers",
			"template": "academic",
			"philosophy": "constructivist",
			"chapter_outlines": [{"number": 2, "title": "Matrices"}, {"number": 1, "title": "Vectors"}],
			"subchapter_template": "{\"structure\":\"theory then practice\",\"max_subchapters\":\"4\"}",
			"bibliography": [{"title": "Strang", "year": 2016}, {"author": "nobody"}],
			"created_at": "2024-05-01T10:00:00Z",
			"chapters": [
				{"id": "ch-0", "chapter_number": 0, "title": "Intro", "content": "<p>hi</p>"},
				{"id": "ch-1", "chapterNumber": "1", "status": "weird", "subchapters": [{"title": "1.1"}, {"subchapter_number": 2, "status": "partial"}]}
			]
		}
	}`)

	c := Course(raw)

	assert.Equal(t, "42", c.ID)
	assert.Equal(t, "undergraduate", c.EducationalLevel)
	assert.Equal(t, "engineers", c.TargetAudience)
	assert.Equal(t, entity.CourseStatusDraft, c.Status)
	require.Len(t, c.ChapterOutlines, 2)
	assert.Equal(t, "Vectors", c.ChapterOutlines[0].Title)
	require.NotNil(t, c.SubchapterTemplate)
	assert.Equal(t, "theory then practice", c.SubchapterTemplate.Structure)
	assert.Equal(t, 4, c.SubchapterTemplate.MaxSubchapters)
	require.Len(t, c.Bibliography, 1)
	assert.Equal(t, "ref-1", c.Bibliography[0].ID)
	assert.Equal(t, "2016", c.Bibliography[0].Year)
	assert.Equal(t, 2024, c.CreatedAt.Year())

	require.Len(t, c.Chapters, 2)
	intro := c.Chapters[0]
	assert.True(t, intro.IsIntroduction)
	assert.Equal(t, "42", intro.CourseID)
	assert.Equal(t, entity.ChapterStatusDraft, intro.Status)
	assert.NotNil(t, intro.Subchapters)
	assert.NotNil(t, intro.Suggestions)

	ch := c.Chapters[1]
	assert.False(t, ch.IsIntroduction)
	assert.Equal(t, 1, ch.ChapterNumber)
	assert.Equal(t, entity.ChapterStatusDraft, ch.Status)
	assert.Equal(t, 0, ch.CurrentSubchapterNumber)
	require.Len(t, ch.Subchapters, 2)
	assert.Equal(t, 1, ch.Subchapters[0].SubchapterNumber)
	assert.Equal(t, entity.ChapterStatusCompleted, ch.Subchapters[0].Status)
	assert.Equal(t, "ch-1", ch.Subchapters[0].ChapterID)
	assert.Equal(t, entity.ChapterStatusPartial, ch.Subchapters[1].Status)
	assert.Equal(t, 3, ch.NextSubchapterNumber())
}

func TestCourseNeverFails(t *testing.T) {
	c := Course([]byte(`not json`))
	require.NotNil(t, c)
	assert.NotNil(t, c.ChapterOutlines)
	assert.NotNil(t, c.Chapters)
	assert.NotNil(t, c.Bibliography)
	assert.Nil(t, c.SubchapterTemplate)
}

func TestCoursesAcceptsSeveralShapes(t *testing.T) {
	assert.Len(t, Courses([]byte(`[{"id":"a"},{"id":"b"}]`)), 2)
	assert.Len(t, Courses([]byte(`{"success":true,"data":[{"id":"a"}]}`)), 1)
	assert.Len(t, Courses([]byte(`{"success":true,"data":{"courses":[{"id":"a"},{"id":"b"},3]}}`)), 2)
	assert.Empty(t, Courses([]byte(`{"success":false}`)))
}

func TestChapterMetricsAndCounters(t *testing.T) {
	ch := Chapter([]byte(`{"chapter": {
		"id": "c9",
		"chapter_number": 3,
		"currentSubchapterNumber": "4",
		"can_continue": true,
		"available_continue_types": ["expand", 3, "assess"],
		"metrics": {"readability_score": "71.5", "qualityScore": 8, "word_count": 1234},
		"suggestions": ["add examples"]
	}}`))

	assert.Equal(t, "c9", ch.ID)
	assert.Equal(t, 4, ch.CurrentSubchapterNumber)
	assert.Equal(t, 4, ch.NextSubchapterNumber())
	assert.True(t, ch.CanContinue)
	assert.Equal(t, []string{"expand", "assess"}, ch.AvailableContinueTypes)
	assert.InDelta(t, 71.5, ch.Metrics.ReadabilityScore, 0.001)
	assert.InDelta(t, 8, ch.Metrics.QualityScore, 0.001)
	assert.Equal(t, 1234, ch.Metrics.WordCount)
	assert.Equal(t, []string{"add examples"}, ch.Suggestions)
}

func TestChaptersFromWrappedList(t *testing.T) {
	list := Chapters([]byte(`{"success":true,"data":{"chapters":[{"id":"a"},{"id":"b"}]}}`))
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[1].ID)
}
