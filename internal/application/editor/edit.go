package editor

import "strings"

// EditMode 内容替换方式
type EditMode string

const (
	EditModeFull    EditMode = "full"
	EditModeOffset  EditMode = "offset"
	EditModeLiteral EditMode = "literal"
	EditModeNone    EditMode = "none"
)

// Range 选区在内容中的字节偏移
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Edit 一次章节内容修改
type Edit struct {
	Old      string
	New      string
	FullEdit bool
	// At 选区定位时记录的偏移，内容未漂移时优先按位置替换
	At *Range
}

// EditResult 替换结果
type EditResult struct {
	Content  string
	Replaced bool
	Mode     EditMode
}

// Apply 计算修改后的内容
//
// 整体编辑直接替换；否则偏移仍指向 Old 时按位置替换，再退回首个字面匹配；
// 都找不到时原样返回。
func Apply(content string, e Edit) EditResult {
	if e.FullEdit {
		return EditResult{Content: e.New, Replaced: e.New != content, Mode: EditModeFull}
	}
	if e.Old == "" {
		return EditResult{Content: content, Mode: EditModeNone}
	}
	if r := e.At; r != nil && r.Start >= 0 && r.End <= len(content) && r.Start < r.End &&
		content[r.Start:r.End] == e.Old {
		return EditResult{
			Content:  content[:r.Start] + e.New + content[r.End:],
			Replaced: true,
			Mode:     EditModeOffset,
		}
	}
	if strings.Contains(content, e.Old) {
		return EditResult{
			Content:  strings.Replace(content, e.Old, e.New, 1),
			Replaced: true,
			Mode:     EditModeLiteral,
		}
	}
	return EditResult{Content: content, Mode: EditModeNone}
}
