package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/auth"
	"github.com/AbodeTech/Liquidity-sub001/internal/errs"
	"github.com/AbodeTech/Liquidity-sub001/internal/metrics"
	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"github.com/AbodeTech/Liquidity-sub001/internal/repository"
	"github.com/AbodeTech/Liquidity-sub001/internal/storage"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentService 文档登记服务接口
// 只管理元数据:上传字节由外部对象存储承接,本服务保存返回的引用 URL
type DocumentService interface {
	Upload(ctx context.Context, req *UploadDocumentRequest) (*Document, error)
	Register(ctx context.Context, req *RegisterDocumentRequest) (*Document, error)
	Get(ctx context.Context, id string) (*Document, error)
	Delete(ctx context.Context, documentURL, ownerID string) error
}

// UploadDocumentRequest 上传并登记文档请求
type UploadDocumentRequest struct {
	OwnerID      string
	OwnerKind    types.OwnerKind
	DocumentType types.DocumentType
	Filename     string
	ContentType  string
	Content      io.Reader
}

// RegisterDocumentRequest 登记已上传文档请求
// 前提:调用方已经完成外部上传并拿到引用 URL
type RegisterDocumentRequest struct {
	OwnerID      string             `json:"owner_id" binding:"required"`
	OwnerKind    types.OwnerKind    `json:"owner_kind" binding:"required"`
	DocumentType types.DocumentType `json:"document_type" binding:"required"`
	DocumentURL  string             `json:"document_url" binding:"required"`
}

// documentService 文档登记服务实现
type documentService struct {
	db          *gorm.DB
	docRepo     repository.DocumentRepository
	draftRepo   repository.DraftRepository
	appRepo     repository.ApplicationRepository
	uploader    storage.Uploader
	auditLogSvc AuditLogService
}

// NewDocumentService 创建文档服务
func NewDocumentService(db *gorm.DB, uploader storage.Uploader, auditLogSvc AuditLogService) DocumentService {
	return &documentService{
		db:          db,
		docRepo:     repository.NewDocumentRepository(db),
		draftRepo:   repository.NewDraftRepository(db),
		appRepo:     repository.NewApplicationRepository(db),
		uploader:    uploader,
		auditLogSvc: auditLogSvc,
	}
}

// Upload 上传字节到对象存储,确认成功后才登记元数据
// 上传失败以 Upload 类错误上报,不会留下半登记的文档
func (s *documentService) Upload(ctx context.Context, req *UploadDocumentRequest) (*Document, error) {
	if s.uploader == nil {
		return nil, errs.Upload("no blob storage configured", nil)
	}
	if !req.DocumentType.Valid() {
		return nil, errs.Validation("invalid document type: %q", req.DocumentType)
	}

	if err := s.checkOwner(ctx, req.OwnerID, req.OwnerKind); err != nil {
		return nil, err
	}

	result, err := s.uploader.Upload(ctx, string(req.OwnerKind)+"s", req.Filename, req.ContentType, req.Content)
	if err != nil {
		metrics.RecordDocumentUpload(false)
		return nil, err
	}
	metrics.RecordDocumentUpload(true)

	return s.register(ctx, req.OwnerID, req.OwnerKind, req.DocumentType, result.URL)
}

// Register 登记已上传文档的元数据
func (s *documentService) Register(ctx context.Context, req *RegisterDocumentRequest) (*Document, error) {
	if !req.OwnerKind.Valid() {
		return nil, errs.Validation("invalid owner kind: %q", req.OwnerKind)
	}
	if !req.DocumentType.Valid() {
		return nil, errs.Validation("invalid document type: %q", req.DocumentType)
	}
	if req.DocumentURL == "" {
		return nil, errs.Validation("document URL is required")
	}

	if err := s.checkOwner(ctx, req.OwnerID, req.OwnerKind); err != nil {
		return nil, err
	}

	return s.register(ctx, req.OwnerID, req.OwnerKind, req.DocumentType, req.DocumentURL)
}

func (s *documentService) register(ctx context.Context, ownerID string, ownerKind types.OwnerKind, docType types.DocumentType, url string) (*Document, error) {
	doc := &model.DocumentModel{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		OwnerKind:    string(ownerKind),
		DocumentType: string(docType),
		DocumentURL:  url,
		UploadedAt:   time.Now(),
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	if s.auditLogSvc != nil {
		if actor, ok := auth.ActorFromContext(ctx); ok {
			_ = s.auditLogSvc.RecordAction(ctx, actor.ID, "register", "document", doc.ID, map[string]string{
				"owner_id":   ownerID,
				"owner_kind": string(ownerKind),
			})
		}
	}

	return documentView(doc), nil
}

// Get 获取文档元数据
func (s *documentService) Get(ctx context.Context, id string) (*Document, error) {
	doc, err := s.docRepo.FindByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("document %s not found", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return documentView(doc), nil
}

// Delete 删除文档元数据
// 仅允许属主在草稿阶段删除;申请一经提交其文档不可变
func (s *documentService) Delete(ctx context.Context, documentURL, ownerID string) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return errs.Forbidden("missing actor identity")
	}

	doc, err := s.docRepo.FindByURLAndOwner(documentURL, ownerID)
	if err != nil {
		if repository.IsNotFound(err) {
			return errs.NotFound("document not found for owner %s", ownerID)
		}
		return fmt.Errorf("failed to get document: %w", err)
	}

	if doc.OwnerKind != string(types.OwnerDraft) {
		return errs.Forbidden("application documents are immutable after submission")
	}

	draft, err := s.draftRepo.FindByID(doc.OwnerID)
	if err != nil {
		if repository.IsNotFound(err) {
			return errs.NotFound("draft %s not found", doc.OwnerID)
		}
		return fmt.Errorf("failed to get draft: %w", err)
	}
	if draft.ApplicantID != actor.ID {
		return errs.Forbidden("document is not owned by actor")
	}

	if err := s.docRepo.Delete(nil, doc.ID); err != nil {
		if repository.IsNotFound(err) {
			return errs.NotFound("document %s not found", doc.ID)
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, actor.ID, "delete", "document", doc.ID, map[string]string{
			"owner_id": ownerID,
		})
	}

	return nil
}

// checkOwner 校验归属实体存在且操作者有权向其挂接文档
// 草稿:仅属主;申请:提交后不可变,仅管理员可在特批下补充替代件
func (s *documentService) checkOwner(ctx context.Context, ownerID string, ownerKind types.OwnerKind) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return errs.Forbidden("missing actor identity")
	}

	switch ownerKind {
	case types.OwnerDraft:
		draft, err := s.draftRepo.FindByID(ownerID)
		if err != nil {
			if repository.IsNotFound(err) {
				return errs.NotFound("draft %s not found", ownerID)
			}
			return fmt.Errorf("failed to get draft: %w", err)
		}
		if draft.ApplicantID != actor.ID {
			return errs.Forbidden("draft %s is not owned by actor", ownerID)
		}
	case types.OwnerApplication:
		if _, err := s.appRepo.FindByID(ownerID); err != nil {
			if repository.IsNotFound(err) {
				return errs.NotFound("application %s not found", ownerID)
			}
			return fmt.Errorf("failed to get application: %w", err)
		}
		if !actor.IsAdministrator() {
			return errs.Forbidden("only administrators may attach documents to an application")
		}
	default:
		return errs.Validation("invalid owner kind: %q", ownerKind)
	}
	return nil
}
