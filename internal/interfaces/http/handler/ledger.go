package handler

import (
	"github.com/gin-gonic/gin"

	"eduflow-api/internal/application/ledger"
	"eduflow-api/internal/interfaces/http/dto"
	apperrors "eduflow-api/pkg/errors"
)

// LedgerHandler 生成台账查询
type LedgerHandler struct {
	ledger *ledger.Service
}

// NewLedgerHandler 创建台账处理器
func NewLedgerHandler(l *ledger.Service) *LedgerHandler {
	return &LedgerHandler{ledger: l}
}

// History 课程的生成记录
// @Summary 课程生成记录
// @Tags Ledger
// @Produce json
// @Param cid path string true "课程 ID"
// @Param kind query string false "事件类型"
// @Param status query string false "succeeded | failed"
// @Param since query string false "RFC3339 时间"
// @Success 200 {object} dto.Response[[]entity.GenerationEvent]
// @Router /v1/courses/{cid}/generations [get]
func (h *LedgerHandler) History(c *gin.Context) {
	var q dto.LedgerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	filter, err := q.Filter()
	if err != nil {
		dto.BadRequest(c, "since must be an RFC3339 timestamp")
		return
	}

	page, err := h.ledger.History(c.Request.Context(), dto.CourseID(c), filter, dto.BindPage(c))
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.SuccessWithPage(c, page.Items, dto.NewPageMeta(page.Page, page.PageSize, page.Total, page.TotalPages))
}

// Orphaned 创建成功但导论生成失败的课程
// @Summary 缺少导论的课程
// @Tags Ledger
// @Produce json
// @Param limit query int false "数量上限"
// @Success 200 {object} dto.Response[dto.OrphanedResponse]
// @Router /v1/generations/orphaned [get]
func (h *LedgerHandler) Orphaned(c *gin.Context) {
	limit := dto.QueryInt(c, "limit", 50)
	if limit < 1 || limit > 500 {
		dto.Fail(c, apperrors.ErrInvalidParam.WithDetail("limit must be between 1 and 500"))
		return
	}
	ids, err := h.ledger.Orphaned(c.Request.Context(), limit)
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Success(c, dto.OrphanedResponse{CourseIDs: ids})
}
