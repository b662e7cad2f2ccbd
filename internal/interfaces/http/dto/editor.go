package dto

import (
	"eduflow-api/internal/application/editor"
	"eduflow-api/internal/domain/entity"
)

// SelectionRequest 选区
type SelectionRequest struct {
	Selection string `json:"selection" binding:"required"`
}

// LocateResponse 选区定位结果
type LocateResponse struct {
	Found       bool          `json:"found"`
	Match       *editor.Match `json:"match,omitempty"`
	Highlighted string        `json:"highlighted,omitempty"`
	// Valid 选区长度是否满足指令要求
	Valid bool   `json:"valid"`
	Issue string `json:"issue,omitempty"`
}

// SuggestResponse 推荐指令
type SuggestResponse struct {
	Directives []entity.ContinueType `json:"directives"`
}
