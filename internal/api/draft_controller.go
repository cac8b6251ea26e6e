package api

import (
	"net/http"

	"github.com/AbodeTech/Liquidity-sub001/internal/service"
	"github.com/gin-gonic/gin"
)

// DraftController 草稿控制器
type DraftController struct {
	draftService service.DraftService
}

// NewDraftController 创建草稿控制器
func NewDraftController(draftService service.DraftService) *DraftController {
	return &DraftController{
		draftService: draftService,
	}
}

// Create 创建草稿
// POST /api/v1/drafts
func (c *DraftController) Create(ctx *gin.Context) {
	draft, err := c.draftService.Create(ctx.Request.Context())
	if err != nil {
		Fail(ctx, err)
		return
	}

	Created(ctx, draft)
}

// Update 部分更新草稿
// PATCH /api/v1/drafts/:id
func (c *DraftController) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	var req service.UpdateDraftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	draft, err := c.draftService.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, draft)
}

// Get 获取草稿详情
// GET /api/v1/drafts/:id
func (c *DraftController) Get(ctx *gin.Context) {
	draft, err := c.draftService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, draft)
}

// List 列出当前申请人的草稿
// GET /api/v1/drafts
func (c *DraftController) List(ctx *gin.Context) {
	drafts, err := c.draftService.List(ctx.Request.Context())
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, drafts)
}

// Delete 放弃草稿,文档元数据一并清除
// DELETE /api/v1/drafts/:id
func (c *DraftController) Delete(ctx *gin.Context) {
	if err := c.draftService.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, nil)
}
