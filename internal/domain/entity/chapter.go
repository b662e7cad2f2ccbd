package entity

import (
	"sort"
	"time"
)

// ChapterStatus 章节状态
type ChapterStatus string

const (
	ChapterStatusDraft      ChapterStatus = "draft"
	ChapterStatusGenerating ChapterStatus = "generating"
	ChapterStatusPartial    ChapterStatus = "partial"
	ChapterStatusCompleted  ChapterStatus = "completed"
)

// Valid 是否为已知状态
func (s ChapterStatus) Valid() bool {
	switch s {
	case ChapterStatusDraft, ChapterStatusGenerating, ChapterStatusPartial, ChapterStatusCompleted:
		return true
	}
	return false
}

// IntroductionNumber 导论保留的章节号
const IntroductionNumber = 0

// ChapterMetrics 章节质量指标
type ChapterMetrics struct {
	ReadabilityScore     float64 `json:"readabilityScore"`
	EstimatedReadingTime float64 `json:"estimatedReadingTime"`
	ConceptCoverage      float64 `json:"conceptCoverage"`
	QualityScore         float64 `json:"qualityScore"`
	WordCount            int     `json:"wordCount"`
}

// ChapterSection 章节内的小节
type ChapterSection struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
	Order   int    `json:"order"`
}

// Subchapter 子章节
type Subchapter struct {
	ID               string        `json:"id"`
	ChapterID        string        `json:"chapter_id"`
	SubchapterNumber int           `json:"subchapter_number"`
	Title            string        `json:"title"`
	Content          string        `json:"content"`
	Status           ChapterStatus `json:"status"`
	WordCount        int           `json:"wordCount,omitempty"`
	OrderIndex       int           `json:"orderIndex"`
}

// Chapter 章节
type Chapter struct {
	ID            string           `json:"id"`
	CourseID      string           `json:"course_id"`
	ChapterNumber int              `json:"chapter_number"`
	Title         string           `json:"title"`
	Content       string           `json:"content"`
	Sections      []ChapterSection `json:"sections"`
	Subchapters   []Subchapter     `json:"subchapters"`
	// CurrentSubchapterNumber 下一个待生成的子章节号，0 表示存储服务未提供
	CurrentSubchapterNumber int            `json:"currentSubchapterNumber,omitempty"`
	IsIntroduction          bool           `json:"isIntroduction"`
	Status                  ChapterStatus  `json:"status"`
	Metrics                 ChapterMetrics `json:"metrics"`
	Suggestions             []string       `json:"suggestions"`
	CanContinue             bool           `json:"can_continue"`
	AvailableContinueTypes  []string       `json:"available_continue_types"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

// IsIntro 是否为导论章节
func (c *Chapter) IsIntro() bool {
	return c.IsIntroduction
}

// NextSubchapterNumber 优先使用存储服务报告的计数，否则为已有子章节数加一
func (c *Chapter) NextSubchapterNumber() int {
	if c.CurrentSubchapterNumber >= 1 {
		return c.CurrentSubchapterNumber
	}
	return len(c.Subchapters) + 1
}

// OrderedSubchapters 按子章节号升序返回副本
func (c *Chapter) OrderedSubchapters() []Subchapter {
	out := append([]Subchapter(nil), c.Subchapters...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubchapterNumber < out[j].SubchapterNumber
	})
	return out
}
