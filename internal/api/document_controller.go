package api

import (
	"net/http"

	"github.com/AbodeTech/Liquidity-sub001/internal/service"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/gin-gonic/gin"
)

// 单个上传文件大小上限
const maxUploadSize = 16 << 20 // 16 MiB

// DocumentController 文档控制器
type DocumentController struct {
	documentService service.DocumentService
}

// NewDocumentController 创建文档控制器
func NewDocumentController(documentService service.DocumentService) *DocumentController {
	return &DocumentController{
		documentService: documentService,
	}
}

// Upload 上传文档并挂到草稿
// POST /api/v1/drafts/:id/documents (multipart: file, document_type)
func (c *DocumentController) Upload(ctx *gin.Context) {
	draftID := ctx.Param("id")

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		Error(ctx, http.StatusBadRequest, "missing file", err.Error())
		return
	}
	if fileHeader.Size > maxUploadSize {
		Error(ctx, http.StatusRequestEntityTooLarge, "file too large", "")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		Error(ctx, http.StatusBadRequest, "failed to open file", err.Error())
		return
	}
	defer file.Close()

	doc, err := c.documentService.Upload(ctx.Request.Context(), &service.UploadDocumentRequest{
		OwnerID:      draftID,
		OwnerKind:    types.OwnerDraft,
		DocumentType: types.DocumentType(ctx.PostForm("document_type")),
		Filename:     fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Content:      file,
	})
	if err != nil {
		Fail(ctx, err)
		return
	}

	Created(ctx, doc)
}

// Register 登记已上传文档的引用
// POST /api/v1/documents
func (c *DocumentController) Register(ctx *gin.Context) {
	var req service.RegisterDocumentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	doc, err := c.documentService.Register(ctx.Request.Context(), &req)
	if err != nil {
		Fail(ctx, err)
		return
	}

	Created(ctx, doc)
}

// Get 获取文档元数据
// GET /api/v1/documents/:id
func (c *DocumentController) Get(ctx *gin.Context) {
	doc, err := c.documentService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, doc)
}

// Delete 按引用 URL 从草稿移除文档
// DELETE /api/v1/drafts/:id/documents?url=...
func (c *DocumentController) Delete(ctx *gin.Context) {
	draftID := ctx.Param("id")
	documentURL := ctx.Query("url")
	if documentURL == "" {
		Error(ctx, http.StatusBadRequest, "missing url query parameter", "")
		return
	}

	if err := c.documentService.Delete(ctx.Request.Context(), documentURL, draftID); err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, nil)
}
