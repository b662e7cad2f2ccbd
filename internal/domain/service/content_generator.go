// Package service 定义跨层的领域服务端口
package service

import (
	"context"
	"encoding/json"

	"eduflow-api/internal/domain/entity"
)

// CreateChapterRequest 导论或章节生成请求，字段名即生成服务的契约
type CreateChapterRequest struct {
	CourseID           string                     `json:"courseId"`
	CourseTitle        string                     `json:"courseTitle"`
	CourseDescription  string                     `json:"courseDescription"`
	Subject            string                     `json:"subject"`
	EducationalLevel   string                     `json:"educationalLevel"`
	TargetAudience     string                     `json:"targetAudience"`
	Template           string                     `json:"template"`
	Philosophy         string                     `json:"philosophy"`
	Title              string                     `json:"title"`
	ChapterNumber      int                        `json:"chapterNumber"`
	IsIntroduction     bool                       `json:"isIntroduction"`
	ChapterOutlines    []entity.ChapterOutline    `json:"chapterOutlines,omitempty"`
	ChapterOutline     *entity.ChapterOutline     `json:"chapterOutline,omitempty"`
	SubchapterTemplate *entity.SubchapterTemplate `json:"subchapterTemplate,omitempty"`
	Bibliography       []entity.BibliographyItem  `json:"bibliography,omitempty"`
}

// ContinueChapterRequest 续写请求
type ContinueChapterRequest struct {
	ChapterID         string              `json:"chapterId"`
	ContinueType      entity.ContinueType `json:"continueType"`
	AdditionalContext string              `json:"additionalContext,omitempty"`
}

// ExistingSubchapter 已有子章节摘要
type ExistingSubchapter struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GenerateSubchapterRequest 子章节生成请求
type GenerateSubchapterRequest struct {
	CourseID            string                    `json:"courseId"`
	ChapterID           string                    `json:"chapterId"`
	ChapterNumber       int                       `json:"chapterNumber"`
	ChapterTitle        string                    `json:"chapterTitle"`
	SubchapterNumber    int                       `json:"subchapterNumber"`
	CourseTitle         string                    `json:"courseTitle"`
	CourseDescription   string                    `json:"courseDescription"`
	Subject             string                    `json:"subject"`
	EducationalLevel    string                    `json:"educationalLevel"`
	TargetAudience      string                    `json:"targetAudience"`
	Template            string                    `json:"template"`
	Philosophy          string                    `json:"philosophy"`
	ChapterOutline      entity.ChapterOutline     `json:"chapterOutline"`
	SubchapterTemplate  entity.SubchapterTemplate `json:"subchapterTemplate"`
	WordCount           int                       `json:"wordCount"`
	ExistingSubchapters []ExistingSubchapter      `json:"existingSubchapters"`
	IntroductionContent string                    `json:"introductionContent,omitempty"`
	Bibliography        []entity.BibliographyItem `json:"bibliography,omitempty"`
}

// ContentGenerator 内容生成服务端口
type ContentGenerator interface {
	// CreateChapter 生成导论或章节初始内容
	CreateChapter(ctx context.Context, req *CreateChapterRequest) (*entity.Chapter, error)

	// ContinueChapter 按指令续写章节
	ContinueChapter(ctx context.Context, req *ContinueChapterRequest) (*entity.Chapter, error)

	// GenerateSubchapter 追加一个子章节
	GenerateSubchapter(ctx context.Context, req *GenerateSubchapterRequest) (*entity.Chapter, error)
}

// HealthReporter 外部服务状态探测
type HealthReporter interface {
	// Health 探测健康状态，返回原始响应
	Health(ctx context.Context) (json.RawMessage, error)
}
