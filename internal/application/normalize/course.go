package normalize

import (
	"fmt"

	"github.com/tidwall/gjson"

	"eduflow-api/internal/domain/entity"
)

// Course 将原始 JSON 映射为课程，自动去除 {success, data} 包装
func Course(raw []byte) *entity.Course {
	return CourseFrom(Envelope(raw))
}

// Courses 映射课程数组，兼容 {data: [...]}、{courses: [...]} 与裸数组
func Courses(raw []byte) []*entity.Course {
	r := Envelope(raw)
	if !r.IsArray() {
		for _, key := range []string{"courses", "items", "data"} {
			if v := r.Get(key); v.IsArray() {
				r = v
				break
			}
		}
	}
	out := []*entity.Course{}
	if !r.IsArray() {
		return out
	}
	for _, item := range r.Array() {
		if item.IsObject() {
			out = append(out, CourseFrom(item))
		}
	}
	return out
}

// CourseFrom 将 gjson 对象映射为课程
func CourseFrom(r gjson.Result) *entity.Course {
	c := &entity.Course{
		ID:               str(r, "id", "_id", "courseId", "course_id"),
		Title:            text(r, "title"),
		Description:      text(r, "description"),
		Subject:          text(r, "subject"),
		EducationalLevel: text(r, "educationalLevel", "educational_level"),
		TargetAudience:   text(r, "targetAudience", "target_audience"),
		Template:         text(r, "template"),
		Philosophy:       text(r, "philosophy"),
		Status:           entity.CourseStatus(text(r, "status")),
		ChapterOutlines:  Outlines(field(r, "chapterOutlines", "chapter_outlines")),
		Bibliography:     bibliography(r),
		Chapters:         []*entity.Chapter{},
		CreatedAt:        timestamp(r, "createdAt", "created_at"),
		UpdatedAt:        timestamp(r, "updatedAt", "updated_at"),
	}
	if c.Status == "" {
		c.Status = entity.CourseStatusDraft
	}
	if tpl, ok := object(r, "subchapterTemplate", "subchapter_template"); ok {
		c.SubchapterTemplate = &entity.SubchapterTemplate{
			Structure:              text(tpl, "structure"),
			MinSubchapters:         ToNumber(field(tpl, "minSubchapters", "min_subchapters"), 0),
			MaxSubchapters:         ToNumber(field(tpl, "maxSubchapters", "max_subchapters"), 0),
			WordCountPerSubchapter: ToNumber(field(tpl, "wordCountPerSubchapter", "word_count_per_subchapter"), 0),
		}
	}
	for _, item := range array(r, "chapters") {
		if item.IsObject() {
			ch := ChapterFrom(item)
			if ch.CourseID == "" {
				ch.CourseID = c.ID
			}
			c.Chapters = append(c.Chapters, ch)
		}
	}
	return c
}

func bibliography(r gjson.Result) []entity.BibliographyItem {
	out := []entity.BibliographyItem{}
	for i, item := range array(r, "bibliography", "references") {
		if !item.IsObject() {
			continue
		}
		b := entity.BibliographyItem{
			ID:     str(item, "id"),
			Title:  text(item, "title"),
			Author: text(item, "author", "authors"),
			Year:   text(item, "year"),
			URL:    text(item, "url", "link"),
		}
		if b.ID == "" {
			b.ID = fmt.Sprintf("ref-%d", i+1)
		}
		if b.Title == "" {
			continue
		}
		out = append(out, b)
	}
	return out
}
