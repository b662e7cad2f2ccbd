package router

import (
	"github.com/gin-gonic/gin"

	"eduflow-api/internal/interfaces/http/handler"
)

// RegisterBrowserRoutes 注册浏览器直接调用的健康检查与生成代理
func RegisterBrowserRoutes(api *gin.RouterGroup, proxy *handler.ProxyHandler, generation gin.HandlerFunc) {
	api.GET("/health/ai", proxy.AIHealth)
	api.GET("/health/backend", proxy.BackendHealth)
	api.POST("/books/chapter", generation, proxy.BookChapter)

	ai := api.Group("/ai")
	{
		ai.GET("/backend-status", proxy.BackendStatus)
		ai.GET("/metrics", proxy.AIMetrics)
	}
}

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers, generation gin.HandlerFunc) {
	// 课程管理
	courses := v1.Group("/courses")
	{
		courses.GET("", h.Course.ListCourses)
		courses.POST("", generation, h.Course.CreateCourse)
		courses.GET("/:cid", h.Course.GetCourse)
		courses.PATCH("/:cid", h.Course.UpdateCourse)
		courses.POST("/:cid/introduction", generation, h.Course.GenerateIntroduction)
		courses.GET("/:cid/export", h.Export.Export)

		// 课程下的章节
		courses.POST("/:cid/chapters", generation, h.Course.GenerateChapter)
		courses.GET("/:cid/chapters/:chid", h.Chapter.GetChapter)
		courses.GET("/:cid/chapters/:chid/resources/:kind", h.Chapter.ListResources)
		courses.POST("/:cid/chapters/:chid/subchapters", generation, h.Chapter.GenerateSubchapter)
		courses.POST("/:cid/chapters/:chid/transform", generation, h.Chapter.Transform)
		courses.POST("/:cid/chapters/:chid/directives/:directive", generation, h.Chapter.Directive)

		// 编辑器
		courses.PUT("/:cid/chapters/:chid/content", h.Chapter.UpdateContent)
		courses.POST("/:cid/chapters/:chid/images", h.Chapter.InsertImage)
		courses.GET("/:cid/chapters/:chid/draft", h.Chapter.GetDraft)
		courses.PUT("/:cid/chapters/:chid/draft", h.Chapter.SaveDraft)
		courses.POST("/:cid/chapters/:chid/selection", h.Editor.Locate)

		// 工作区
		courses.GET("/:cid/workspace", h.Workspace.Get)
		courses.POST("/:cid/workspace", h.Workspace.Open)
		courses.DELETE("/:cid/workspace", h.Workspace.Close)
		courses.POST("/:cid/workspace/refresh", h.Workspace.Refresh)
		courses.PUT("/:cid/workspace/active-chapter", h.Workspace.SelectChapter)
		courses.GET("/:cid/workspace/stream", h.Workspace.Stream)

		// 生成台账
		if h.Ledger != nil {
			courses.GET("/:cid/generations", h.Ledger.History)
		}
	}

	v1.POST("/editor/suggestions", h.Editor.Suggest)

	if h.Ledger != nil {
		v1.GET("/generations/orphaned", h.Ledger.Orphaned)
	}
}
