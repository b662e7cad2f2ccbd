package editor

import (
	"html"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ImagePlaceholderClass 图片占位块的 class
const ImagePlaceholderClass = "image-placeholder"

// imageToken 匹配草稿中的图片占位行
var imageToken = regexp.MustCompile(`^\[(?:IMAGEM|IMAGE):\s*(.*?)\s*\]$`)

// ImagePlaceholder 生成图片占位块
func ImagePlaceholder(description string) string {
	desc := html.EscapeString(strings.TrimSpace(description))
	return `<div class="` + ImagePlaceholderClass + `" data-description="` + desc + `">[IMAGEM: ` + desc + `]</div>`
}

// ToDraft 将章节 HTML 转为类 Markdown 草稿
//
// 仅保留标题、列表项、段落与图片占位，行内格式与其余属性会丢失；
// 相邻的文本与行内元素合并为同一段落。
func ToDraft(content string) string {
	body := &nethtml.Node{Type: nethtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := nethtml.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return PlainText(content)
	}
	w := &draftWriter{}
	for _, n := range nodes {
		w.block(n)
	}
	w.flush()
	return strings.Join(w.lines, "\n")
}

// phrasing 可出现在段落内的行内元素
var phrasing = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Bdi: true, atom.Bdo: true,
	atom.Br: true, atom.Cite: true, atom.Code: true, atom.Data: true, atom.Dfn: true,
	atom.Em: true, atom.I: true, atom.Img: true, atom.Kbd: true, atom.Mark: true,
	atom.Q: true, atom.S: true, atom.Samp: true, atom.Small: true, atom.Span: true,
	atom.Strong: true, atom.Sub: true, atom.Sup: true, atom.Time: true, atom.U: true,
	atom.Var: true, atom.Wbr: true,
}

type draftWriter struct {
	lines  []string
	inList bool
	// run 收集相邻的文本与行内元素，遇到块级元素时作为一个段落输出
	run strings.Builder
}

func (w *draftWriter) emit(line string, listItem bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	// 段落之间空一行，连续列表项紧挨
	if len(w.lines) > 0 && !(listItem && w.inList) {
		w.lines = append(w.lines, "")
	}
	w.lines = append(w.lines, line)
	w.inList = listItem
}

func (w *draftWriter) flush() {
	line := collapse(w.run.String())
	w.run.Reset()
	w.emit(line, false)
}

func (w *draftWriter) placeholder(n *nethtml.Node) {
	desc := attr(n, "data-description")
	if desc == "" {
		desc = strings.TrimSpace(imageToken.ReplaceAllString(inlineText(n), "$1"))
	}
	w.emit("[IMAGEM: "+desc+"]", false)
}

// inline 把行内内容追加到当前段落，图片单独成行
func (w *draftWriter) inline(n *nethtml.Node) {
	switch n.Type {
	case nethtml.TextNode:
		w.run.WriteString(n.Data)
		return
	case nethtml.ElementNode:
	default:
		return
	}

	switch {
	case n.DataAtom == atom.Br:
		w.run.WriteByte(' ')
	case n.DataAtom == atom.Img:
		w.flush()
		w.emit("[IMAGEM: "+attr(n, "alt")+"]", false)
	case n.DataAtom == atom.Script || n.DataAtom == atom.Style:
	case hasClass(n, ImagePlaceholderClass):
		w.flush()
		w.placeholder(n)
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.inline(c)
		}
	}
}

func (w *draftWriter) block(n *nethtml.Node) {
	if n.Type == nethtml.TextNode || (n.Type == nethtml.ElementNode && phrasing[n.DataAtom] && !hasClass(n, ImagePlaceholderClass)) {
		w.inline(n)
		return
	}
	if n.Type != nethtml.ElementNode {
		return
	}

	w.flush()
	switch n.DataAtom {
	case atom.H1:
		w.emit("# "+inlineText(n), false)
	case atom.H2:
		w.emit("## "+inlineText(n), false)
	case atom.H3, atom.H4, atom.H5, atom.H6:
		w.emit("### "+inlineText(n), false)
	case atom.Li:
		w.emit("- "+inlineText(n), true)
	case atom.P, atom.Blockquote, atom.Pre:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.inline(c)
		}
		w.flush()
	case atom.Script, atom.Style:
	default:
		if hasClass(n, ImagePlaceholderClass) {
			w.placeholder(n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.block(c)
		}
		w.flush()
	}
}

// inlineText 拼接节点内的文本，<br> 视为空格
func inlineText(n *nethtml.Node) string {
	var b strings.Builder
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		switch {
		case n.Type == nethtml.TextNode:
			b.WriteString(n.Data)
		case n.Type == nethtml.ElementNode && n.DataAtom == atom.Br:
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapse(b.String())
}

func collapse(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func attr(n *nethtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *nethtml.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// FromDraft 将草稿按行前缀规则转回 HTML
//
// "# "、"## "、"### " 为标题，"- " 为列表项（连续项合并为一个列表），
// [IMAGEM: ...] 为图片占位，其余非空行各成一个段落。
func FromDraft(draft string) string {
	var b strings.Builder
	inList := false
	closeList := func() {
		if inList {
			b.WriteString("</ul>")
			inList = false
		}
	}

	for _, raw := range strings.Split(strings.ReplaceAll(draft, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			closeList()
			continue
		}
		switch {
		case strings.HasPrefix(line, "- "):
			if !inList {
				b.WriteString("<ul>")
				inList = true
			}
			b.WriteString("<li>" + html.EscapeString(strings.TrimSpace(line[2:])) + "</li>")
			continue
		case strings.HasPrefix(line, "### "):
			closeList()
			b.WriteString("<h3>" + html.EscapeString(strings.TrimSpace(line[4:])) + "</h3>")
		case strings.HasPrefix(line, "## "):
			closeList()
			b.WriteString("<h2>" + html.EscapeString(strings.TrimSpace(line[3:])) + "</h2>")
		case strings.HasPrefix(line, "# "):
			closeList()
			b.WriteString("<h1>" + html.EscapeString(strings.TrimSpace(line[2:])) + "</h1>")
		case imageToken.MatchString(line):
			closeList()
			b.WriteString(ImagePlaceholder(imageToken.FindStringSubmatch(line)[1]))
		default:
			closeList()
			b.WriteString("<p>" + html.EscapeString(line) + "</p>")
		}
	}
	closeList()
	return b.String()
}
