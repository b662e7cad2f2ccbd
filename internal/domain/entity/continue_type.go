package entity

// ContinueType 续写指令类型
type ContinueType string

const (
	ContinueExpand         ContinueType = "expand"
	ContinueSimplify       ContinueType = "simplify"
	ContinueExemplify      ContinueType = "exemplify"
	ContinueAssess         ContinueType = "assess"
	ContinueAddSection     ContinueType = "add_section"
	ContinueAddActivities  ContinueType = "add_activities"
	ContinueAddAssessments ContinueType = "add_assessments"
)

// ContinueTypes 全部可用指令
var ContinueTypes = []ContinueType{
	ContinueExpand,
	ContinueSimplify,
	ContinueExemplify,
	ContinueAssess,
	ContinueAddSection,
	ContinueAddActivities,
	ContinueAddAssessments,
}

// Valid 是否为已知指令
func (t ContinueType) Valid() bool {
	for _, c := range ContinueTypes {
		if c == t {
			return true
		}
	}
	return false
}
