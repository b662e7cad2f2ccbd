package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"eduflow-api/internal/domain/entity"
)

func TestOutlinesRenumbersAndDropsDuplicates(t *testing.T) {
	raw := gjson.Parse(`[
		{"number": 3, "title": "Three"},
		{"number": 1, "title": "One"},
		{"number": 1, "title": "One again"},
		{"number": 5, "title": "Five"}
	]`)

	out := Outlines(raw)

	require.Len(t, out, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{out[0].Number, out[1].Number, out[2].Number})
	assert.Equal(t, []string{"One", "Three", "Five"}, []string{out[0].Title, out[1].Title, out[2].Title})
	for _, o := range out {
		assert.Equal(t, o.Number, o.Order)
		assert.Equal(t, DefaultOutlineWordCount, o.WordCount)
	}
}

func TestOutlinesCoercesLooseFields(t *testing.T) {
	raw := gjson.Parse(`[
		{"number": null, "title": "A", "wordCount": "NaN", "order": 9},
		{"chapter_number": "2", "title": " B ", "word_count": "1500"},
		{"title": "C"}
	]`)

	out := Outlines(raw)

	// 第三项编号缺失，回退为下标 + 1 = 3
	require.Len(t, out, 3)
	assert.Equal(t, entity.ChapterOutline{Number: 1, Title: "A", WordCount: DefaultOutlineWordCount, Order: 9}, out[0])
	assert.Equal(t, entity.ChapterOutline{Number: 2, Title: "B", WordCount: 1500, Order: 2}, out[1])
	assert.Equal(t, entity.ChapterOutline{Number: 3, Title: "C", WordCount: DefaultOutlineWordCount, Order: 3}, out[2])
}

func TestOutlinesFallbackCollidingWithExplicitNumber(t *testing.T) {
	raw := gjson.Parse(`[
		{"number": 2, "title": "explicit two"},
		{"title": "implicit two"}
	]`)

	out := Outlines(raw)

	require.Len(t, out, 1)
	assert.Equal(t, "explicit two", out[0].Title)
	assert.Equal(t, 1, out[0].Number)
}

func TestOutlinesAcceptsEncodedArray(t *testing.T) {
	raw := gjson.Parse(`"[{\"number\":1,\"title\":\"Only\"}]"`)
	out := Outlines(raw)
	require.Len(t, out, 1)
	assert.Equal(t, "Only", out[0].Title)
	assert.Empty(t, Outlines(gjson.Parse(`{"number":1}`)))
}

func TestCanonicalOutlinesIsIdempotent(t *testing.T) {
	normalized := []entity.ChapterOutline{
		{Number: 1, Title: "Intro to sets", Description: "d1", WordCount: 1200, Order: 1},
		{Number: 2, Title: "Functions", Description: "d2", WordCount: 800, Order: 2},
		{Number: 3, Title: "Relations", Description: "d3", WordCount: 1000, Order: 7},
	}

	once := CanonicalOutlines(normalized)
	twice := CanonicalOutlines(once)

	assert.Equal(t, normalized, once)
	assert.Equal(t, once, twice)
}

func TestCanonicalOutlinesBackfillsTypedInput(t *testing.T) {
	out := CanonicalOutlines([]entity.ChapterOutline{
		{Number: 0, Title: "first", WordCount: -1},
		{Number: 4, Title: "second", WordCount: 300},
	})
	require.Len(t, out, 2)
	assert.Equal(t, entity.ChapterOutline{Number: 1, Title: "first", WordCount: DefaultOutlineWordCount, Order: 1}, out[0])
	assert.Equal(t, entity.ChapterOutline{Number: 2, Title: "second", WordCount: 300, Order: 2}, out[1])
}
