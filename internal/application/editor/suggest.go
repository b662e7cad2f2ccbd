package editor

import (
	"regexp"
	"unicode/utf8"

	"eduflow-api/internal/domain/entity"
)

var (
	// 连续大写缩写、百分比或驼峰词，区分大小写
	technicalPattern = regexp.MustCompile(`[A-Z]{2,}|[0-9]+%|[a-z]+[A-Z]`)
	abstractPattern  = regexp.MustCompile(`(?i)conceito|teoria|princípio|filosofia`)
)

// SuggestDirectives 根据选中文本推荐续写指令
//
// 规则按顺序判断：技术性、超过 200 字符、抽象、不足 50 字符，都不满足时返回全部四种。
func SuggestDirectives(selected string) []entity.ContinueType {
	text := PlainText(selected)
	n := utf8.RuneCountInString(text)
	switch {
	case technicalPattern.MatchString(text):
		return []entity.ContinueType{entity.ContinueExpand, entity.ContinueExemplify}
	case n > 200:
		return []entity.ContinueType{entity.ContinueSimplify, entity.ContinueExemplify}
	case abstractPattern.MatchString(text):
		return []entity.ContinueType{entity.ContinueExemplify, entity.ContinueAssess}
	case n < 50:
		return []entity.ContinueType{entity.ContinueExpand, entity.ContinueExemplify}
	default:
		return []entity.ContinueType{
			entity.ContinueExpand,
			entity.ContinueSimplify,
			entity.ContinueExemplify,
			entity.ContinueAssess,
		}
	}
}
