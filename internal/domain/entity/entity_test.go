package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSubchapterNumber(t *testing.T) {
	ch := &Chapter{Subchapters: []Subchapter{{SubchapterNumber: 1}, {SubchapterNumber: 2}}}
	assert.Equal(t, 3, ch.NextSubchapterNumber())

	ch.CurrentSubchapterNumber = 7
	assert.Equal(t, 7, ch.NextSubchapterNumber())
}

func TestOrderedChaptersPutsIntroductionFirst(t *testing.T) {
	c := &Course{Chapters: []*Chapter{
		{ID: "c2", ChapterNumber: 2},
		{ID: "c1", ChapterNumber: 1},
		nil,
		{ID: "intro", ChapterNumber: 0, IsIntroduction: true},
	}}
	ordered := c.OrderedChapters()
	ids := make([]string, 0, len(ordered))
	for _, ch := range ordered {
		ids = append(ids, ch.ID)
	}
	assert.Equal(t, []string{"intro", "c1", "c2"}, ids)

	intro, ok := c.Introduction()
	assert.True(t, ok)
	assert.Equal(t, "intro", intro.ID)
	assert.True(t, c.HasChapter("c2"))
	assert.False(t, c.HasChapter("missing"))
}

func TestContinueTypeValid(t *testing.T) {
	assert.True(t, ContinueAssess.Valid())
	assert.True(t, ContinueType("add_activities").Valid())
	assert.False(t, ContinueType("rewrite").Valid())
}
