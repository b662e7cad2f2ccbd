package normalize

import (
	"strings"

	"github.com/tidwall/gjson"

	"eduflow-api/internal/domain/entity"
)

// Chapter 将原始 JSON 映射为章节，自动去除 {success, data} 包装
func Chapter(raw []byte) *entity.Chapter {
	r := Envelope(raw)
	// 生成服务有时返回 {chapter: {...}}
	if ch := r.Get("chapter"); ch.IsObject() {
		r = ch
	}
	return ChapterFrom(r)
}

// Chapters 映射章节数组
func Chapters(raw []byte) []*entity.Chapter {
	r := Envelope(raw)
	if !r.IsArray() {
		if v := r.Get("chapters"); v.IsArray() {
			r = v
		}
	}
	out := []*entity.Chapter{}
	if !r.IsArray() {
		return out
	}
	for _, item := range r.Array() {
		if item.IsObject() {
			out = append(out, ChapterFrom(item))
		}
	}
	return out
}

// ChapterFrom 将 gjson 对象映射为章节
func ChapterFrom(r gjson.Result) *entity.Chapter {
	numberField := field(r, "chapter_number", "chapterNumber", "number")
	ch := &entity.Chapter{
		ID:                      str(r, "id", "_id", "chapterId", "chapter_id"),
		CourseID:                str(r, "course_id", "courseId"),
		ChapterNumber:           nonNegative(numberField, 0),
		Title:                   text(r, "title"),
		Content:                 str(r, "content", "html"),
		Sections:                sections(r),
		Subchapters:             []entity.Subchapter{},
		CurrentSubchapterNumber: ToNumber(field(r, "currentSubchapterNumber", "current_subchapter_number"), 0),
		IsIntroduction:          boolean(r, "isIntroduction", "is_introduction"),
		Status:                  entity.ChapterStatus(text(r, "status")),
		Metrics:                 metrics(r),
		Suggestions:             stringList(r, "suggestions"),
		CanContinue:             boolean(r, "can_continue", "canContinue"),
		AvailableContinueTypes:  stringList(r, "available_continue_types", "availableContinueTypes"),
		CreatedAt:               timestamp(r, "created_at", "createdAt"),
		UpdatedAt:               timestamp(r, "updated_at", "updatedAt"),
	}
	if isExplicitZero(numberField) {
		ch.IsIntroduction = true
	}
	if !ch.Status.Valid() {
		ch.Status = entity.ChapterStatusDraft
	}
	for i, item := range array(r, "subchapters") {
		if item.IsObject() {
			sub := subchapter(item, i)
			if sub.ChapterID == "" {
				sub.ChapterID = ch.ID
			}
			ch.Subchapters = append(ch.Subchapters, sub)
		}
	}
	return ch
}

func subchapter(r gjson.Result, index int) entity.Subchapter {
	number := ToNumber(field(r, "subchapter_number", "subchapterNumber", "number"), index+1)
	s := entity.Subchapter{
		ID:               str(r, "id", "_id"),
		ChapterID:        str(r, "chapter_id", "chapterId"),
		SubchapterNumber: number,
		Title:            text(r, "title"),
		Content:          str(r, "content"),
		Status:           entity.ChapterStatus(text(r, "status")),
		WordCount:        ToNumber(field(r, "wordCount", "word_count"), 0),
		OrderIndex:       ToNumber(field(r, "orderIndex", "order_index", "order"), number),
	}
	if !s.Status.Valid() {
		s.Status = entity.ChapterStatusCompleted
	}
	return s
}

func sections(r gjson.Result) []entity.ChapterSection {
	out := []entity.ChapterSection{}
	for i, item := range array(r, "sections") {
		if !item.IsObject() {
			continue
		}
		out = append(out, entity.ChapterSection{
			ID:      str(item, "id"),
			Title:   text(item, "title"),
			Content: str(item, "content"),
			Type:    text(item, "type"),
			Order:   ToNumber(field(item, "order", "orderIndex", "order_index"), i+1),
		})
	}
	return out
}

func metrics(r gjson.Result) entity.ChapterMetrics {
	m, _ := object(r, "metrics")
	return entity.ChapterMetrics{
		ReadabilityScore:     toFloat(field(m, "readabilityScore", "readability_score")),
		EstimatedReadingTime: toFloat(field(m, "estimatedReadingTime", "estimated_reading_time")),
		ConceptCoverage:      toFloat(field(m, "conceptCoverage", "concept_coverage")),
		QualityScore:         toFloat(field(m, "qualityScore", "quality_score")),
		WordCount:            ToNumber(field(m, "wordCount", "word_count"), ToNumber(field(r, "word_count", "wordCount"), 0)),
	}
}

func isExplicitZero(r gjson.Result) bool {
	switch r.Type {
	case gjson.Number:
		return r.Num == 0
	case gjson.String:
		return strings.TrimSpace(r.Str) == "0"
	}
	return false
}
