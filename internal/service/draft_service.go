package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/auth"
	"github.com/AbodeTech/Liquidity-sub001/internal/errs"
	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"github.com/AbodeTech/Liquidity-sub001/internal/repository"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FirstWizardStep 新建草稿的默认向导步骤
const FirstWizardStep = "personal_info"

// defaultUpdateRetryLimit 乐观并发的内部重试上限默认值,耗尽后以 Conflict 上报
// 可通过 draft.update_retry_limit 配置覆盖
const defaultUpdateRetryLimit = 3

// DraftService 草稿服务接口
type DraftService interface {
	Create(ctx context.Context) (*Draft, error)
	Update(ctx context.Context, id string, req *UpdateDraftRequest) (*Draft, error)
	Get(ctx context.Context, id string) (*Draft, error)
	List(ctx context.Context) ([]*Draft, error)
	Delete(ctx context.Context, id string) error
}

// UpdateDraftRequest 草稿部分更新请求
// 缺席字段(nil)保持原值,提供的对象按字段合并而非整体替换
type UpdateDraftRequest struct {
	CurrentStep  *string             `json:"current_step,omitempty"`
	PersonalInfo *model.PersonalInfo `json:"personal_info,omitempty"`
	Employment   *model.Employment   `json:"employment,omitempty"`
	LoanDetails  *model.LoanDetails  `json:"loan_details,omitempty"`
}

// draftService 草稿服务实现
type draftService struct {
	db          *gorm.DB
	draftRepo   repository.DraftRepository
	docRepo     repository.DocumentRepository
	auditLogSvc AuditLogService
	retryLimit  int
}

// NewDraftService 创建草稿服务
// updateRetryLimit 为非正数时使用默认重试上限
func NewDraftService(db *gorm.DB, auditLogSvc AuditLogService, updateRetryLimit int) DraftService {
	if updateRetryLimit <= 0 {
		updateRetryLimit = defaultUpdateRetryLimit
	}
	return &draftService{
		db:          db,
		draftRepo:   repository.NewDraftRepository(db),
		docRepo:     repository.NewDocumentRepository(db),
		auditLogSvc: auditLogSvc,
		retryLimit:  updateRetryLimit,
	}
}

// Create 创建草稿
// 策略:每个申请人同一时刻至多一份在途草稿
func (s *draftService) Create(ctx context.Context) (*Draft, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, errs.Forbidden("missing actor identity")
	}

	count, err := s.draftRepo.CountByApplicant(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count drafts: %w", err)
	}
	if count > 0 {
		return nil, errs.Conflict("applicant %s already has an open draft", actor.ID)
	}

	now := time.Now()
	draft := &model.DraftModel{
		ID:          uuid.New().String(),
		ApplicantID: actor.ID,
		CurrentStep: FirstWizardStep,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.draftRepo.Create(draft); err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, actor.ID, "create", "draft", draft.ID, map[string]string{
			"current_step": draft.CurrentStep,
		})
	}

	return draftView(draft, nil)
}

// Update 部分更新草稿
// 合并语义配合版本号检查写入,版本冲突时有限重试(重读后重新合并)
func (s *draftService) Update(ctx context.Context, id string, req *UpdateDraftRequest) (*Draft, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, errs.Forbidden("missing actor identity")
	}

	for attempt := 0; attempt < s.retryLimit; attempt++ {
		draft, err := s.draftRepo.FindByID(id)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, errs.NotFound("draft %s not found", id)
			}
			return nil, fmt.Errorf("failed to get draft: %w", err)
		}
		if draft.ApplicantID != actor.ID {
			return nil, errs.Forbidden("draft %s is not owned by actor", id)
		}

		merged, err := mergeDraft(draft, req)
		if err != nil {
			return nil, err
		}
		merged.UpdatedAt = time.Now()

		updated, err := s.draftRepo.UpdateWithVersion(merged, draft.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to update draft: %w", err)
		}
		if !updated {
			// 版本失配,另一并发更新抢先落库,重读后重试
			continue
		}

		if s.auditLogSvc != nil {
			_ = s.auditLogSvc.RecordAction(ctx, actor.ID, "update", "draft", merged.ID, map[string]string{
				"current_step": merged.CurrentStep,
			})
		}

		docs, err := s.docRepo.FindByOwner(merged.ID, string(types.OwnerDraft))
		if err != nil {
			return nil, fmt.Errorf("failed to load draft documents: %w", err)
		}
		return draftView(merged, docs)
	}

	return nil, errs.Conflict("draft %s is being modified concurrently", id)
}

// Get 获取草稿,仅属主或管理员可见
func (s *draftService) Get(ctx context.Context, id string) (*Draft, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, errs.Forbidden("missing actor identity")
	}

	draft, err := s.draftRepo.FindByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("draft %s not found", id)
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	if draft.ApplicantID != actor.ID && !actor.IsAdministrator() {
		return nil, errs.Forbidden("draft %s is not owned by actor", id)
	}

	docs, err := s.docRepo.FindByOwner(draft.ID, string(types.OwnerDraft))
	if err != nil {
		return nil, fmt.Errorf("failed to load draft documents: %w", err)
	}
	return draftView(draft, docs)
}

// List 列出操作者自己的草稿,按更新时间倒序
func (s *draftService) List(ctx context.Context) ([]*Draft, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, errs.Forbidden("missing actor identity")
	}

	models, err := s.draftRepo.FindByApplicant(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	drafts := make([]*Draft, 0, len(models))
	for _, m := range models {
		docs, err := s.docRepo.FindByOwner(m.ID, string(types.OwnerDraft))
		if err != nil {
			return nil, fmt.Errorf("failed to load draft documents: %w", err)
		}
		d, err := draftView(m, docs)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// Delete 删除草稿,并在同一事务内级联删除其文档元数据
// 外部对象存储的字节内容不在此处清理
func (s *draftService) Delete(ctx context.Context, id string) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return errs.Forbidden("missing actor identity")
	}

	draft, err := s.draftRepo.FindByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return errs.NotFound("draft %s not found", id)
		}
		return fmt.Errorf("failed to get draft: %w", err)
	}
	if draft.ApplicantID != actor.ID {
		return errs.Forbidden("draft %s is not owned by actor", id)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.docRepo.DeleteByOwner(tx, id, string(types.OwnerDraft)); err != nil {
			return fmt.Errorf("failed to delete draft documents: %w", err)
		}
		if err := s.draftRepo.Delete(tx, id); err != nil {
			return fmt.Errorf("failed to delete draft: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, actor.ID, "delete", "draft", id, map[string]string{
			"deleted_by": actor.ID,
		})
	}

	return nil
}

// mergeDraft 把更新请求按字段合并进存储模型
// 顶层对象缺席则保持原值;提供的对象内部同样按字段合并,
// 保证并发的分步保存互不覆盖
func mergeDraft(stored *model.DraftModel, req *UpdateDraftRequest) (*model.DraftModel, error) {
	merged := *stored

	if req.CurrentStep != nil {
		merged.CurrentStep = *req.CurrentStep
	}

	if req.PersonalInfo != nil {
		existing := &model.PersonalInfo{}
		if err := decodeInto(stored.PersonalInfo, existing); err != nil {
			return nil, fmt.Errorf("failed to decode personal info: %w", err)
		}
		mergePersonalInfo(existing, req.PersonalInfo)
		data, err := json.Marshal(existing)
		if err != nil {
			return nil, fmt.Errorf("failed to encode personal info: %w", err)
		}
		merged.PersonalInfo = data
	}

	if req.Employment != nil {
		existing := &model.Employment{}
		if err := decodeInto(stored.Employment, existing); err != nil {
			return nil, fmt.Errorf("failed to decode employment: %w", err)
		}
		mergeEmployment(existing, req.Employment)
		data, err := json.Marshal(existing)
		if err != nil {
			return nil, fmt.Errorf("failed to encode employment: %w", err)
		}
		merged.Employment = data
	}

	if req.LoanDetails != nil {
		existing := &model.LoanDetails{}
		if err := decodeInto(stored.LoanDetails, existing); err != nil {
			return nil, fmt.Errorf("failed to decode loan details: %w", err)
		}
		if err := mergeLoanDetails(existing, req.LoanDetails); err != nil {
			return nil, err
		}
		data, err := json.Marshal(existing)
		if err != nil {
			return nil, fmt.Errorf("failed to encode loan details: %w", err)
		}
		merged.LoanDetails = data
	}

	return &merged, nil
}

func mergePersonalInfo(dst, src *model.PersonalInfo) {
	if src.FullName != "" {
		dst.FullName = src.FullName
	}
	if src.Email != "" {
		dst.Email = src.Email
	}
	if src.Phone != "" {
		dst.Phone = src.Phone
	}
	if src.DateOfBirth != "" {
		dst.DateOfBirth = src.DateOfBirth
	}
	if src.IDNumber != "" {
		dst.IDNumber = src.IDNumber
	}
	if src.Address != "" {
		dst.Address = src.Address
	}
}

func mergeEmployment(dst, src *model.Employment) {
	if src.EmployerName != "" {
		dst.EmployerName = src.EmployerName
	}
	if src.JobTitle != "" {
		dst.JobTitle = src.JobTitle
	}
	if src.MonthlyIncome != nil {
		dst.MonthlyIncome = src.MonthlyIncome
	}
	if src.YearsEmployed != 0 {
		dst.YearsEmployed = src.YearsEmployed
	}
}

// mergeLoanDetails 合并贷款详情
// Rent 与 Land 互斥:提交任一方会清除另一方,贷款类型因此可以在
// 草稿阶段改变,但不会出现两个子集同时存在
func mergeLoanDetails(dst, src *model.LoanDetails) error {
	if src.Rent != nil && src.Land != nil {
		return errs.Validation("rent and land details are mutually exclusive")
	}

	if src.LoanAmount != nil {
		dst.LoanAmount = src.LoanAmount
	}
	if src.DurationMonths != 0 {
		dst.DurationMonths = src.DurationMonths
	}
	if src.Purpose != "" {
		dst.Purpose = src.Purpose
	}

	if src.Rent != nil {
		dst.Land = nil
		if dst.Rent == nil {
			dst.Rent = &model.RentDetails{}
		}
		if src.Rent.LandlordName != "" {
			dst.Rent.LandlordName = src.Rent.LandlordName
		}
		if src.Rent.LandlordContact != "" {
			dst.Rent.LandlordContact = src.Rent.LandlordContact
		}
		if src.Rent.PropertyAddress != "" {
			dst.Rent.PropertyAddress = src.Rent.PropertyAddress
		}
		if src.Rent.MonthlyRent != nil {
			dst.Rent.MonthlyRent = src.Rent.MonthlyRent
		}
	}

	if src.Land != nil {
		dst.Rent = nil
		if dst.Land == nil {
			dst.Land = &model.LandDetails{}
		}
		if src.Land.DeveloperName != "" {
			dst.Land.DeveloperName = src.Land.DeveloperName
		}
		if src.Land.DeveloperContact != "" {
			dst.Land.DeveloperContact = src.Land.DeveloperContact
		}
		if src.Land.PlotNumber != "" {
			dst.Land.PlotNumber = src.Land.PlotNumber
		}
		if src.Land.PlotLocation != "" {
			dst.Land.PlotLocation = src.Land.PlotLocation
		}
	}

	return nil
}
