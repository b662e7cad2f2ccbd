// Package entity 定义领域实体
package entity

import (
	"sort"
	"time"
)

// CourseStatus 课程状态
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// ChapterOutline 章节大纲条目，Number 从 1 开始且在课程内唯一
type ChapterOutline struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	WordCount   int    `json:"wordCount"`
	Order       int    `json:"order"`
}

// SubchapterTemplate 子章节风格模板
type SubchapterTemplate struct {
	Structure              string `json:"structure"`
	MinSubchapters         int    `json:"minSubchapters,omitempty"`
	MaxSubchapters         int    `json:"maxSubchapters,omitempty"`
	WordCountPerSubchapter int    `json:"wordCountPerSubchapter,omitempty"`
}

// BibliographyItem 参考文献
type BibliographyItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	Year   string `json:"year,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Course 课程
type Course struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Subject            string              `json:"subject"`
	EducationalLevel   string              `json:"educationalLevel,omitempty"`
	TargetAudience     string              `json:"targetAudience,omitempty"`
	Template           string              `json:"template"`
	Philosophy         string              `json:"philosophy"`
	Status             CourseStatus        `json:"status"`
	ChapterOutlines    []ChapterOutline    `json:"chapterOutlines"`
	SubchapterTemplate *SubchapterTemplate `json:"subchapterTemplate,omitempty"`
	Bibliography       []BibliographyItem  `json:"bibliography"`
	Chapters           []*Chapter          `json:"chapters"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// OutlineByNumber 按编号查找大纲
func (c *Course) OutlineByNumber(number int) (ChapterOutline, bool) {
	for _, o := range c.ChapterOutlines {
		if o.Number == number {
			return o, true
		}
	}
	return ChapterOutline{}, false
}

// ChapterByID 按 ID 查找章节
func (c *Course) ChapterByID(id string) (*Chapter, bool) {
	for _, ch := range c.Chapters {
		if ch != nil && ch.ID == id {
			return ch, true
		}
	}
	return nil, false
}

// Introduction 返回课程导论章节
func (c *Course) Introduction() (*Chapter, bool) {
	for _, ch := range c.Chapters {
		if ch != nil && ch.IsIntro() {
			return ch, true
		}
	}
	return nil, false
}

// HasChapter 判断章节是否属于该课程
func (c *Course) HasChapter(id string) bool {
	_, ok := c.ChapterByID(id)
	return ok
}

// OrderedChapters 返回导论在前、其余按章节号升序的副本
func (c *Course) OrderedChapters() []*Chapter {
	out := make([]*Chapter, 0, len(c.Chapters))
	for _, ch := range c.Chapters {
		if ch != nil {
			out = append(out, ch)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsIntro() != out[j].IsIntro() {
			return out[i].IsIntro()
		}
		return out[i].ChapterNumber < out[j].ChapterNumber
	})
	return out
}
