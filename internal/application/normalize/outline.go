package normalize

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"eduflow-api/internal/domain/entity"
)

// DefaultOutlineWordCount 大纲缺少字数时的默认值
const DefaultOutlineWordCount = 1000

type outlineDraft struct {
	outline       entity.ChapterOutline
	explicitOrder bool
}

// Outlines 将原始大纲数组规范化
func Outlines(raw gjson.Result) []entity.ChapterOutline {
	if raw.Type == gjson.String {
		raw = gjson.Parse(raw.Str)
	}
	if !raw.IsArray() {
		return []entity.ChapterOutline{}
	}
	items := raw.Array()
	drafts := make([]outlineDraft, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			continue
		}
		order := ToNumber(field(item, "order", "orderIndex", "order_index"), 0)
		drafts = append(drafts, outlineDraft{
			outline: entity.ChapterOutline{
				Number:      ToNumber(field(item, "number", "chapterNumber", "chapter_number"), i+1),
				Title:       text(item, "title"),
				Description: text(item, "description"),
				WordCount:   ToNumber(field(item, "wordCount", "word_count"), DefaultOutlineWordCount),
				Order:       order,
			},
			explicitOrder: order > 0,
		})
	}
	return canonicalize(drafts)
}

// CanonicalOutlines 规范化已类型化的大纲，结果编号为 1..N，重复编号保留首个
//
// 对已规范化的输入是幂等的。
func CanonicalOutlines(in []entity.ChapterOutline) []entity.ChapterOutline {
	drafts := make([]outlineDraft, 0, len(in))
	for i, o := range in {
		drafts = append(drafts, outlineDraft{
			outline: entity.ChapterOutline{
				Number:      ToNumber(o.Number, i+1),
				Title:       strings.TrimSpace(o.Title),
				Description: strings.TrimSpace(o.Description),
				WordCount:   ToNumber(o.WordCount, DefaultOutlineWordCount),
				Order:       o.Order,
			},
			explicitOrder: o.Order > 0,
		})
	}
	return canonicalize(drafts)
}

func canonicalize(drafts []outlineDraft) []entity.ChapterOutline {
	seen := make(map[int]struct{}, len(drafts))
	unique := drafts[:0:0]
	for _, d := range drafts {
		if _, dup := seen[d.outline.Number]; dup {
			continue
		}
		seen[d.outline.Number] = struct{}{}
		unique = append(unique, d)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].outline.Number < unique[j].outline.Number
	})

	out := make([]entity.ChapterOutline, len(unique))
	for i, d := range unique {
		o := d.outline
		o.Number = i + 1
		if !d.explicitOrder {
			o.Order = o.Number
		}
		out[i] = o
	}
	return out
}
