package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"eduflow-api/internal/application/editor"
	"eduflow-api/internal/domain/entity"
)

// DocxContentType DOCX 的 MIME 类型
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	styleTitle    = "Title"
	styleHeading1 = "Heading1"
	styleHeading2 = "Heading2"
	styleHeading3 = "Heading3"
	styleBullet   = "ListBullet"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

// 字号单位为半磅：24 = 12pt
const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:pPr><w:spacing w:after="160"/></w:pPr><w:rPr><w:sz w:val="24"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:pPr><w:spacing w:after="240"/></w:pPr><w:rPr><w:b/><w:sz w:val="36"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="30"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="160" w:after="80"/><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:pPr><w:keepNext/><w:outlineLvl w:val="2"/></w:pPr><w:rPr><w:b/><w:sz w:val="24"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="ListBullet"><w:name w:val="List Bullet"/><w:basedOn w:val="Normal"/><w:pPr><w:ind w:left="360" w:hanging="360"/><w:spacing w:after="80"/></w:pPr></w:style>
</w:styles>`

// docxWriter 逐段写 word/document.xml 的 body
type docxWriter struct {
	body bytes.Buffer
}

func (w *docxWriter) paragraph(style, text string, pageBreak bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.body.WriteString("<w:p>")
	if style != "" || pageBreak {
		w.body.WriteString("<w:pPr>")
		if style != "" {
			w.body.WriteString(`<w:pStyle w:val="` + style + `"/>`)
		}
		if pageBreak {
			w.body.WriteString("<w:pageBreakBefore/>")
		}
		w.body.WriteString("</w:pPr>")
	}
	w.body.WriteString(`<w:r><w:t xml:space="preserve">`)
	_ = xml.EscapeText(&w.body, []byte(text))
	w.body.WriteString("</w:t></w:r></w:p>")
}

// content 将章节 HTML 经草稿格式拆成段落，正文内标题降为三级
func (w *docxWriter) content(html string) {
	for _, line := range strings.Split(editor.ToDraft(html), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "### "):
			w.paragraph(styleHeading3, line[4:], false)
		case strings.HasPrefix(line, "## "):
			w.paragraph(styleHeading3, line[3:], false)
		case strings.HasPrefix(line, "# "):
			w.paragraph(styleHeading3, line[2:], false)
		case strings.HasPrefix(line, "- "):
			w.paragraph(styleBullet, "• "+strings.TrimSpace(line[2:]), false)
		default:
			w.paragraph("", line, false)
		}
	}
}

func (w *docxWriter) document() []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	b.Write(w.body.Bytes())
	// 页边距单位为 twip
	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="720" w:right="720" w:bottom="720" w:left="920" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>`)
	b.WriteString(`</w:body></w:document>`)
	return b.Bytes()
}

// CourseDOCX 生成课程 Word 文档，章节顺序与标题规则同 CourseHTML
//
// 每个章节另起一页；正文只保留段落、标题、列表项与图片占位文字。
func CourseDOCX(course *entity.Course, opts Options) ([]byte, error) {
	if course == nil {
		return nil, fmt.Errorf("export: nil course")
	}
	if opts.IntroductionTitle == "" {
		opts.IntroductionTitle = "Introduction"
	}

	w := &docxWriter{}
	w.paragraph(styleTitle, course.Title, false)
	w.paragraph("", course.Description, false)

	for _, ch := range course.OrderedChapters() {
		w.paragraph(styleHeading1, chapterHeading(ch, opts), !ch.IsIntro())
		w.content(sanitize(ch.Content))
		for _, sub := range ch.OrderedSubchapters() {
			w.paragraph(styleHeading2, subchapterHeading(ch, sub), false)
			w.content(sanitize(sub.Content))
		}
	}

	if len(course.Bibliography) > 0 {
		w.paragraph(styleHeading1, "Bibliography", true)
		for _, item := range course.Bibliography {
			w.paragraph(styleBullet, "• "+bibliographyLine(item), false)
		}
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(rootRelsXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/document.xml", w.document()},
	}
	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("export: docx part %s: %w", p.name, err)
		}
		if _, err := f.Write(p.data); err != nil {
			return nil, fmt.Errorf("export: docx part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("export: render course %s: %w", course.ID, err)
	}
	return out.Bytes(), nil
}

func bibliographyLine(item entity.BibliographyItem) string {
	var b strings.Builder
	if item.Author != "" {
		b.WriteString(item.Author + ". ")
	}
	b.WriteString(item.Title)
	if item.Year != "" {
		b.WriteString(" (" + item.Year + ")")
	}
	if item.URL != "" {
		b.WriteString(" " + item.URL)
	}
	return b.String()
}
