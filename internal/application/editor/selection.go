// Package editor 实现章节 HTML 上的选区定位、高亮与编辑
package editor

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "eduflow-api/pkg/errors"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// wordGap 匹配词之间的空白、不换行空格或任意标签
const wordGap = `(?:\s|&nbsp;|&#160;|<[^>]+>)+`

// Limits 选区长度限制（按可见字符计）
type Limits struct {
	Min int
	Max int
}

// DefaultLimits 默认选区限制
var DefaultLimits = Limits{Min: 10, Max: 2000}

// PlainText 去除标签、解码实体并折叠空白
func PlainText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// ValidateSelection 校验选区的可见文本长度
func ValidateSelection(selected string, limits Limits) error {
	visible := PlainText(selected)
	n := utf8.RuneCountInString(visible)
	if n == 0 {
		return apperrors.New(apperrors.CodeSelectionAbsent, "no text selected")
	}
	if limits.Min > 0 && n < limits.Min {
		return apperrors.ErrValidationFailed.WithDetail(
			fmt.Sprintf("selection must have at least %d characters", limits.Min))
	}
	if limits.Max > 0 && n > limits.Max {
		return apperrors.ErrValidationFailed.WithDetail(
			fmt.Sprintf("selection must have at most %d characters", limits.Max))
	}
	return nil
}

// Match 选区在章节 HTML 中的位置，HTML 为实际命中的原文
type Match struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	HTML  string `json:"html"`
	// Exact 为 true 表示字面命中，false 表示容错正则命中
	Exact bool `json:"exact"`
}

// Locate 在章节 HTML 中定位选中的文本
//
// 先做字面匹配；失败时将选区按词拆分并转义，词间允许任意空白与标签。
// 起止位置落在标签内部（如属性值）的命中会被跳过。
func Locate(content, selected string) (Match, bool) {
	if strings.TrimSpace(selected) == "" || content == "" {
		return Match{}, false
	}
	literal := func(s string) []int {
		if i := strings.Index(s, selected); i >= 0 {
			return []int{i, i + len(selected)}
		}
		return nil
	}
	if start, end, ok := firstOutsideTags(content, literal); ok {
		return Match{Start: start, End: end, HTML: content[start:end], Exact: true}, true
	}

	re := tolerantPattern(selected)
	if re == nil {
		return Match{}, false
	}
	if start, end, ok := firstOutsideTags(content, re.FindStringIndex); ok {
		return Match{Start: start, End: end, HTML: content[start:end]}, true
	}
	return Match{}, false
}

// firstOutsideTags 从左到右查找第一个起止都不在标签内部的命中
func firstOutsideTags(content string, find func(string) []int) (int, int, bool) {
	for off := 0; off < len(content); {
		loc := find(content[off:])
		if loc == nil {
			return 0, 0, false
		}
		start, end := off+loc[0], off+loc[1]
		if !insideTag(content, start) && !insideTag(content, end) {
			return start, end, true
		}
		_, size := utf8.DecodeRuneInString(content[start:])
		off = start + size
	}
	return 0, 0, false
}

// insideTag 判断 pos 之前最近的 '<' 是否尚未闭合
func insideTag(content string, pos int) bool {
	before := content[:pos]
	return strings.LastIndexByte(before, '<') > strings.LastIndexByte(before, '>')
}

// tolerantPattern 构造容错匹配正则，词本身兼容实体转义形式
func tolerantPattern(selected string) *regexp.Regexp {
	words := strings.Fields(html.UnescapeString(selected))
	if len(words) == 0 {
		return nil
	}
	parts := make([]string, len(words))
	for i, w := range words {
		quoted := regexp.QuoteMeta(w)
		if escaped := html.EscapeString(w); escaped != w {
			quoted = "(?:" + quoted + "|" + regexp.QuoteMeta(escaped) + ")"
		}
		parts[i] = quoted
	}
	re, err := regexp.Compile(strings.Join(parts, wordGap))
	if err != nil {
		return nil
	}
	return re
}

// HighlightClass 高亮标记的 class
const HighlightClass = "selection-highlight"

// Highlight 用 <mark> 包裹命中区域
func Highlight(content string, m Match) string {
	if m.Start < 0 || m.End > len(content) || m.Start >= m.End {
		return content
	}
	var b strings.Builder
	b.Grow(len(content) + 40)
	b.WriteString(content[:m.Start])
	b.WriteString(`<mark class="` + HighlightClass + `">`)
	b.WriteString(content[m.Start:m.End])
	b.WriteString(`</mark>`)
	b.WriteString(content[m.End:])
	return b.String()
}
