package api

import (
	"net/http"
	"strconv"

	"github.com/AbodeTech/Liquidity-sub001/internal/service"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ApplicationController 申请控制器
type ApplicationController struct {
	applicationService service.ApplicationService
}

// NewApplicationController 创建申请控制器
func NewApplicationController(applicationService service.ApplicationService) *ApplicationController {
	return &ApplicationController{
		applicationService: applicationService,
	}
}

// Submit 提交草稿为正式申请
// POST /api/v1/drafts/:id/submit
func (c *ApplicationController) Submit(ctx *gin.Context) {
	app, err := c.applicationService.Submit(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		Fail(ctx, err)
		return
	}

	Created(ctx, app)
}

// Get 获取申请详情(含文档与状态历史)
// GET /api/v1/applications/:id
func (c *ApplicationController) Get(ctx *gin.Context) {
	app, err := c.applicationService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, app)
}

// List 检索申请
// GET /api/v1/applications?status=&loan_type=&location=&q=&page=&page_size=
func (c *ApplicationController) List(ctx *gin.Context) {
	filter := &service.SearchFilter{
		Page:     parseIntQuery(ctx, "page", 1),
		PageSize: parseIntQuery(ctx, "page_size", defaultPageSize),
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	if v := ctx.Query("status"); v != "" {
		status := types.ApplicationStatus(v)
		filter.Status = &status
	}
	if v := ctx.Query("loan_type"); v != "" {
		loanType := types.LoanType(v)
		filter.LoanType = &loanType
	}
	if v := ctx.Query("location"); v != "" {
		filter.Location = &v
	}
	if v := ctx.Query("q"); v != "" {
		filter.Text = &v
	}

	apps, total, err := c.applicationService.Search(ctx.Request.Context(), filter)
	if err != nil {
		Fail(ctx, err)
		return
	}

	totalPage := 0
	if filter.PageSize > 0 {
		totalPage = int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	}
	Paginated(ctx, apps, PaginationInfo{
		Page:      filter.Page,
		PageSize:  filter.PageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// Review 开始审查
// POST /api/v1/applications/:id/review
func (c *ApplicationController) Review(ctx *gin.Context) {
	app, err := c.applicationService.MarkUnderReview(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, app)
}

// Approve 批准申请
// POST /api/v1/applications/:id/approve
func (c *ApplicationController) Approve(ctx *gin.Context) {
	app, err := c.applicationService.Approve(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, app)
}

// Reject 拒绝申请
// POST /api/v1/applications/:id/reject
func (c *ApplicationController) Reject(ctx *gin.Context) {
	app, err := c.applicationService.Reject(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, app)
}

// notesRequest 审查备注请求体
type notesRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// AddNotes 追加审查备注
// PUT /api/v1/applications/:id/notes
func (c *ApplicationController) AddNotes(ctx *gin.Context) {
	var req notesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	app, err := c.applicationService.AddNotes(ctx.Request.Context(), ctx.Param("id"), req.Notes)
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, app)
}

// Archive 软归档申请
// DELETE /api/v1/applications/:id
func (c *ApplicationController) Archive(ctx *gin.Context) {
	if err := c.applicationService.Archive(ctx.Request.Context(), ctx.Param("id")); err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, nil)
}

// parseIntQuery 解析整型查询参数,非法或缺失用默认值
func parseIntQuery(ctx *gin.Context, key string, fallback int) int {
	v := ctx.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
