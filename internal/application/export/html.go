// Package export 将课程导出为独立的 HTML 或 Word 文档
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"eduflow-api/internal/domain/entity"
)

var courseTemplate = template.Must(template.New("course").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Course.Title}}</title>
<style>
body{font-family:Georgia,serif;max-width:48rem;margin:2rem auto;line-height:1.6}
.page-break{page-break-after:always}
.image-placeholder{border:1px dashed #999;padding:1rem;color:#666;text-align:center}
</style>
</head>
<body>
<header class="course-header">
<h1>{{.Course.Title}}</h1>
{{- if .Course.Description}}
<p class="course-description">{{.Course.Description}}</p>
{{- end}}
</header>
{{- range .Chapters}}
<div class="page-break"></div>
<section class="chapter" id="chapter-{{.Number}}">
<h2>{{.Heading}}</h2>
{{.Content}}
{{- range .Subchapters}}
<section class="subchapter">
<h3>{{.Heading}}</h3>
{{.Content}}
</section>
{{- end}}
</section>
{{- end}}
{{- if .Course.Bibliography}}
<div class="page-break"></div>
<section class="bibliography">
<h2>Bibliography</h2>
<ol>
{{- range .Course.Bibliography}}
<li>{{if .Author}}{{.Author}}. {{end}}{{.Title}}{{if .Year}} ({{.Year}}){{end}}{{if .URL}} <a href="{{.URL}}">{{.URL}}</a>{{end}}</li>
{{- end}}
</ol>
</section>
{{- end}}
</body>
</html>
`))

type chapterView struct {
	Number      int
	Heading     string
	Content     template.HTML
	Subchapters []subchapterView
}

type subchapterView struct {
	Heading string
	Content template.HTML
}

// Options 导出选项
type Options struct {
	Lang string
	// IntroductionTitle 导论缺少标题时使用
	IntroductionTitle string
}

// CourseHTML 生成课程 HTML：导论在前，章节按编号升序，子章节标题形如 "N.M 标题"
//
// 章节内容来自生成服务，按可信 HTML 原样嵌入。
func CourseHTML(course *entity.Course, opts Options) (string, error) {
	if course == nil {
		return "", fmt.Errorf("export: nil course")
	}
	if opts.Lang == "" {
		opts.Lang = "pt-BR"
	}
	if opts.IntroductionTitle == "" {
		opts.IntroductionTitle = "Introduction"
	}

	chapters := make([]chapterView, 0, len(course.Chapters))
	for _, ch := range course.OrderedChapters() {
		view := chapterView{
			Number:  ch.ChapterNumber,
			Heading: chapterHeading(ch, opts),
			Content: template.HTML(sanitize(ch.Content)),
		}
		for _, sub := range ch.OrderedSubchapters() {
			view.Subchapters = append(view.Subchapters, subchapterView{
				Heading: subchapterHeading(ch, sub),
				Content: template.HTML(sanitize(sub.Content)),
			})
		}
		chapters = append(chapters, view)
	}

	var buf bytes.Buffer
	err := courseTemplate.Execute(&buf, struct {
		Lang     string
		Course   *entity.Course
		Chapters []chapterView
	}{Lang: opts.Lang, Course: course, Chapters: chapters})
	if err != nil {
		return "", fmt.Errorf("export: render course %s: %w", course.ID, err)
	}
	return buf.String(), nil
}

func chapterHeading(ch *entity.Chapter, opts Options) string {
	if ch.IsIntro() {
		if ch.Title != "" {
			return ch.Title
		}
		return opts.IntroductionTitle
	}
	if ch.Title == "" {
		return fmt.Sprintf("%d.", ch.ChapterNumber)
	}
	return fmt.Sprintf("%d. %s", ch.ChapterNumber, ch.Title)
}

func subchapterHeading(ch *entity.Chapter, sub entity.Subchapter) string {
	return fmt.Sprintf("%d.%d %s", ch.ChapterNumber, sub.SubchapterNumber, sub.Title)
}

// sanitize 解析章节 HTML 并移除脚本、样式、内嵌框架与事件属性
//
// 无法解析的内容按纯文本转义嵌入。
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if strings.TrimSpace(s) == "" {
		return ""
	}
	body := &nethtml.Node{Type: nethtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := nethtml.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		return template.HTMLEscapeString(s)
	}
	var b strings.Builder
	for _, n := range nodes {
		if strip(n) {
			continue
		}
		clean(n)
		if err := nethtml.Render(&b, n); err != nil {
			return template.HTMLEscapeString(s)
		}
	}
	return b.String()
}

func strip(n *nethtml.Node) bool {
	if n.Type != nethtml.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Iframe, atom.Object, atom.Embed:
		return true
	}
	return false
}

func clean(n *nethtml.Node) {
	if n.Type == nethtml.ElementNode {
		attrs := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if strings.HasPrefix(key, "on") {
				continue
			}
			if (key == "href" || key == "src") && strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
				continue
			}
			attrs = append(attrs, a)
		}
		n.Attr = attrs
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if strip(c) {
			n.RemoveChild(c)
		} else {
			clean(c)
		}
		c = next
	}
}
