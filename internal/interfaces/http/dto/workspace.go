package dto

// SelectChapterRequest 设置活动章节
type SelectChapterRequest struct {
	ChapterID string `json:"chapterId" binding:"required"`
}

// HealthStatusResponse 浏览器健康检查代理响应
type HealthStatusResponse struct {
	Status  string `json:"status"`
	Details any    `json:"details,omitempty"`
}

// ProxyErrorResponse 章节生成代理的错误体
type ProxyErrorResponse struct {
	Error string `json:"error"`
}

// OrphanedResponse 缺少导论的课程
type OrphanedResponse struct {
	CourseIDs []string `json:"courseIds"`
}
