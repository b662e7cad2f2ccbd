package course

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"eduflow-api/internal/domain/entity"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/metrics"
)

// MinStructureLength 子章节模板结构描述的最小长度
const MinStructureLength = 20

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	enLocale := en.New()
	translator, _ = ut.New(enLocale, enLocale).GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(validate, translator)

	// 错误信息使用 JSON 字段名
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// courseInput 创建课程的校验视图
type courseInput struct {
	Title              string         `json:"title" validate:"required,min=5"`
	Description        string         `json:"description" validate:"required,min=20"`
	Subject            string         `json:"subject" validate:"required,min=3"`
	Template           string         `json:"template" validate:"required,min=10"`
	Philosophy         string         `json:"philosophy" validate:"required,min=10"`
	ChapterOutlines    []outlineInput `json:"chapterOutlines" validate:"required,min=1,unique=Number,dive"`
	SubchapterTemplate *templateInput `json:"subchapterTemplate" validate:"required"`
}

type outlineInput struct {
	Number      int    `json:"number" validate:"min=1"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"min=50"`
	WordCount   int    `json:"wordCount" validate:"min=100"`
	Order       int    `json:"order" validate:"min=1"`
}

type templateInput struct {
	Structure              string `json:"structure" validate:"required,min=20"`
	MinSubchapters         int    `json:"minSubchapters" validate:"min=0"`
	MaxSubchapters         int    `json:"maxSubchapters" validate:"omitempty,gtefield=MinSubchapters"`
	WordCountPerSubchapter int    `json:"wordCountPerSubchapter" validate:"min=0"`
}

func newCourseInput(c *entity.Course) *courseInput {
	in := &courseInput{
		Title:       c.Title,
		Description: c.Description,
		Subject:     c.Subject,
		Template:    c.Template,
		Philosophy:  c.Philosophy,
	}
	for _, o := range c.ChapterOutlines {
		in.ChapterOutlines = append(in.ChapterOutlines, outlineInput(o))
	}
	if t := c.SubchapterTemplate; t != nil {
		in.SubchapterTemplate = &templateInput{
			Structure:              t.Structure,
			MinSubchapters:         t.MinSubchapters,
			MaxSubchapters:         t.MaxSubchapters,
			WordCountPerSubchapter: t.WordCountPerSubchapter,
		}
	}
	return in
}

// check 执行结构校验，失败时返回 CodeValidationFailed
func check(kind string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		metrics.ValidationTotal.WithLabelValues(kind, "passed").Inc()
		return nil
	}
	metrics.ValidationTotal.WithLabelValues(kind, "failed").Inc()

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.ErrValidationFailed.WithError(err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldPath(fe)+": "+fe.Translate(translator))
	}
	return apperrors.ErrValidationFailed.WithDetail(strings.Join(msgs, "; "))
}

// fieldPath 去掉根结构名，例如 courseInput.chapterOutlines[0].title → chapterOutlines[0].title
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// requireTemplate 按章节生成前要求子章节模板
func requireTemplate(c *entity.Course) error {
	if c.SubchapterTemplate == nil || len([]rune(strings.TrimSpace(c.SubchapterTemplate.Structure))) < MinStructureLength {
		return apperrors.ErrValidationFailed.WithDetail(fmt.Sprintf(
			"a subchapter template with at least %d characters is required before generating chapters", MinStructureLength))
	}
	return nil
}
