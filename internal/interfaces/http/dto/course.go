package dto

import (
	"eduflow-api/internal/application/course"
	"eduflow-api/internal/application/editor"
)

// GenerateChapterRequest 按大纲生成章节
type GenerateChapterRequest struct {
	ChapterNumber int `json:"chapterNumber" binding:"required,min=1"`
}

// GenerateSubchapterRequest 生成下一个子章节，chapterNumber 为 0 时使用章节自身编号
type GenerateSubchapterRequest struct {
	ChapterNumber int `json:"chapterNumber" binding:"min=0"`
}

// TransformRequest 对选区执行指令
type TransformRequest struct {
	Directive    string `json:"directive" binding:"required"`
	Selection    string `json:"selection"`
	Instructions string `json:"instructions"`
}

// Input 转换为动作输入
func (r *TransformRequest) Input(courseID, chapterID string) course.TransformInput {
	return course.TransformInput{
		CourseID:     courseID,
		ChapterID:    chapterID,
		Selection:    r.Selection,
		Instructions: r.Instructions,
	}
}

// ContentEditRequest 修改章节内容
type ContentEditRequest struct {
	OldContent string        `json:"oldContent"`
	NewContent string        `json:"newContent"`
	IsFullEdit bool          `json:"isFullEdit"`
	Range      *editor.Range `json:"range,omitempty"`
}

// Edit 转换为动作输入
func (r *ContentEditRequest) Edit() course.ContentEdit {
	return course.ContentEdit{
		OldContent: r.OldContent,
		NewContent: r.NewContent,
		IsFullEdit: r.IsFullEdit,
		Range:      r.Range,
	}
}

// ImagePlaceholderRequest 在选区后插入图片占位
type ImagePlaceholderRequest struct {
	Selection   string        `json:"selection"`
	Description string        `json:"description" binding:"required"`
	Range       *editor.Range `json:"range,omitempty"`
}

// DraftRequest 保存草稿文本
type DraftRequest struct {
	Draft string `json:"draft" binding:"required"`
}

// DraftResponse 章节草稿
type DraftResponse struct {
	ChapterID string `json:"chapterId"`
	Draft     string `json:"draft"`
}

// SelectionBody 路径已指定指令时的请求体
type SelectionBody struct {
	Selection    string `json:"selection"`
	Instructions string `json:"instructions"`
}
