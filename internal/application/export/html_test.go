package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduflow-api/internal/domain/entity"
)

func TestCourseHTMLOrdersChapters(t *testing.T) {
	course := &entity.Course{
		ID:          "c1",
		Title:       "Physics <101>",
		Description: "Motion and forces",
		Chapters: []*entity.Chapter{
			{ID: "b", ChapterNumber: 2, Title: "Forces", Content: "<p>F=ma</p>"},
			{ID: "a", ChapterNumber: 1, Title: "Motion", Content: "<p>v=d/t</p><script>evil()</script>",
				Subchapters: []entity.Subchapter{
					{SubchapterNumber: 2, Title: "Acceleration", Content: "<p>acc</p>"},
					{SubchapterNumber: 1, Title: "Speed", Content: "<p>spd</p>"},
				}},
			{ID: "i", ChapterNumber: 0, IsIntroduction: true, Content: "<p>welcome</p>"},
		},
		Bibliography: []entity.BibliographyItem{{ID: "r1", Title: "Principia", Author: "Newton", Year: "1687"}},
	}

	out, err := CourseHTML(course, Options{})
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Physics &lt;101&gt;</title>")
	assert.NotContains(t, out, "evil()")

	order := []string{"<h2>Introduction</h2>", "<p>welcome</p>", "<h2>1. Motion</h2>",
		"<h3>1.1 Speed</h3>", "<h3>1.2 Acceleration</h3>", "<h2>2. Forces</h2>", "<p>F=ma</p>",
		"Newton. Principia (1687)"}
	last := -1
	for _, needle := range order {
		idx := strings.Index(out, needle)
		require.GreaterOrEqual(t, idx, 0, needle)
		assert.Greater(t, idx, last, needle)
		last = idx
	}
	assert.Equal(t, 4, strings.Count(out, `<div class="page-break"></div>`))
}

func TestCourseHTMLNil(t *testing.T) {
	_, err := CourseHTML(nil, Options{})
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "<p>a</p><p>b</p>", sanitize("<p>a</p><SCRIPT>x</SCRIPT><p>b</p>"))
	assert.Equal(t, "<p>a</p>", sanitize("<p>a</p><script>unterminated"))
	assert.Equal(t, "<p>ab</p>", sanitize("<p>a\x00b</p>"))
	assert.Equal(t, "<div><p>kept</p></div>", sanitize("<div><style>p{}</style><p>kept</p><iframe src=x></iframe></div>"))
	assert.Equal(t, `<a>link</a><img src="x.png"/>`, sanitize(`<a href="JavaScript:alert(1)">link</a><img src="x.png" onerror="alert(1)">`))
	assert.Equal(t, "", sanitize("  "))
}

func TestSanitizeKeepsMultibyteText(t *testing.T) {
	// 小写化会改变这些字符的字节长度
	wide := strings.Repeat("Ⱥ", 20)
	assert.Equal(t, "<p>"+wide+"</p>", sanitize("<p>"+wide+"</p><script>alert(1)</script>"))
	assert.Equal(t, "<p>İİİ</p><p>kept text</p>", sanitize("<p>İİİ</p><script>x</script><p>kept text</p>"))

	course := &entity.Course{ID: "c1", Title: "Ünïcode", Chapters: []*entity.Chapter{
		{ID: "a", ChapterNumber: 1, Title: "Ⱥlpha", Content: "<p>" + wide + "</p><script>alert(1)</script><p>tail</p>"},
	}}
	out, err := CourseHTML(course, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "<p>"+wide+"</p><p>tail</p>")
	assert.NotContains(t, out, "alert(1)")
}
