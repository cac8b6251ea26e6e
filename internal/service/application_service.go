package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/auth"
	"github.com/AbodeTech/Liquidity-sub001/internal/errs"
	"github.com/AbodeTech/Liquidity-sub001/internal/metrics"
	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"github.com/AbodeTech/Liquidity-sub001/internal/repository"
	"github.com/AbodeTech/Liquidity-sub001/internal/statemachine"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusNotifier 状态变更通知接口,由实时推送组件实现
type StatusNotifier interface {
	NotifyStatusChange(applicationID, applicantID string, from, to types.ApplicationStatus, actor string)
}

// ApplicationService 申请生命周期服务接口
// 申请的唯一产生途径是草稿提交,状态只通过这里的转换操作推进
type ApplicationService interface {
	Submit(ctx context.Context, draftID string) (*Application, error)
	Get(ctx context.Context, id string) (*Application, error)
	Search(ctx context.Context, filter *SearchFilter) ([]*Application, int64, error)
	MarkUnderReview(ctx context.Context, id string) (*Application, error)
	Approve(ctx context.Context, id string) (*Application, error)
	Reject(ctx context.Context, id string) (*Application, error)
	AddNotes(ctx context.Context, id, notes string) (*Application, error)
	Archive(ctx context.Context, id string) error
}

// SearchFilter 申请检索参数
type SearchFilter struct {
	Status   *types.ApplicationStatus
	LoanType *types.LoanType
	Location *string
	Text     *string
	Page     int
	PageSize int
}

// applicationService 申请生命周期服务实现
type applicationService struct {
	db          *gorm.DB
	appRepo     repository.ApplicationRepository
	draftRepo   repository.DraftRepository
	docRepo     repository.DocumentRepository
	historyRepo repository.StatusHistoryRepository
	auditLogSvc AuditLogService
	notifier    StatusNotifier
}

// NewApplicationService 创建申请生命周期服务
func NewApplicationService(db *gorm.DB, auditLogSvc AuditLogService, notifier StatusNotifier) ApplicationService {
	return &applicationService{
		db:          db,
		appRepo:     repository.NewApplicationRepository(db),
		draftRepo:   repository.NewDraftRepository(db),
		docRepo:     repository.NewDocumentRepository(db),
		historyRepo: repository.NewStatusHistoryRepository(db),
		auditLogSvc: auditLogSvc,
		notifier:    notifier,
	}
}

// Submit 提交草稿,原子地晋升为申请
// 单一事务内完成:创建申请 + 写入首条状态历史 + 文档重挂 + 删除草稿。
// 任一步失败整体回滚,不会出现草稿已删而申请未建(或反之)的中间态
func (s *applicationService) Submit(ctx context.Context, draftID string) (*Application, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, errs.Forbidden("missing actor identity")
	}

	draft, err := s.draftRepo.FindByID(draftID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("draft %s not found", draftID)
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	if draft.ApplicantID != actor.ID {
		return nil, errs.Forbidden("draft %s is not owned by actor", draftID)
	}

	personalInfo := &model.PersonalInfo{}
	employment := &model.Employment{}
	loanDetails := &model.LoanDetails{}
	if err := decodeInto(draft.PersonalInfo, personalInfo); err != nil {
		return nil, fmt.Errorf("failed to decode personal info: %w", err)
	}
	if err := decodeInto(draft.Employment, employment); err != nil {
		return nil, fmt.Errorf("failed to decode employment: %w", err)
	}
	if err := decodeInto(draft.LoanDetails, loanDetails); err != nil {
		return nil, fmt.Errorf("failed to decode loan details: %w", err)
	}

	loanType, err := validateForSubmission(personalInfo, employment, loanDetails)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	app := &model.ApplicationModel{
		ID:           uuid.New().String(),
		ApplicantID:  draft.ApplicantID,
		Status:       string(types.StatusSubmitted),
		LoanType:     string(loanType),
		Location:     locationOf(loanDetails),
		PersonalInfo: draft.PersonalInfo,
		Employment:   draft.Employment,
		LoanDetails:  draft.LoanDetails,
		SubmittedAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.appRepo.Create(tx, app); err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		entry := &model.StatusHistoryModel{
			ID:            uuid.New().String(),
			ApplicationID: app.ID,
			ToStatus:      string(types.StatusSubmitted),
			Actor:         actor.ID,
			ActorRole:     string(actor.Role),
			CreatedAt:     now,
		}
		if err := s.historyRepo.Save(tx, entry); err != nil {
			return fmt.Errorf("failed to record status history: %w", err)
		}
		if err := repository.ReparentDocuments(tx, draftID, app.ID); err != nil {
			return fmt.Errorf("failed to reparent documents: %w", err)
		}
		if err := s.draftRepo.Delete(tx, draftID); err != nil {
			// 草稿已被并发提交消费,回滚本次提交
			if repository.IsNotFound(err) {
				return errs.Conflict("draft %s was already submitted", draftID)
			}
			return fmt.Errorf("failed to delete draft: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordApplicationSubmitted(string(loanType))

	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, actor.ID, "submit", "application", app.ID, map[string]string{
			"draft_id":  draftID,
			"loan_type": string(loanType),
		})
	}

	return s.load(app.ID)
}

// Get 获取申请详情
// 申请人只能读取自己的申请,管理员不受限
func (s *applicationService) Get(ctx context.Context, id string) (*Application, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, errs.Forbidden("missing actor identity")
	}

	app, err := s.appRepo.FindByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("application %s not found", id)
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if !actor.IsAdministrator() && app.ApplicantID != actor.ID {
		return nil, errs.Forbidden("application %s is not owned by actor", id)
	}

	return s.load(id)
}

// Search 检索申请
// 申请人强制限定为本人,管理员可用全部过滤条件
func (s *applicationService) Search(ctx context.Context, filter *SearchFilter) ([]*Application, int64, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, 0, errs.Forbidden("missing actor identity")
	}
	if filter == nil {
		filter = &SearchFilter{}
	}

	repoFilter := &repository.ApplicationFilter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if !actor.IsAdministrator() {
		applicantID := actor.ID
		repoFilter.ApplicantID = &applicantID
	}
	if filter.Status != nil {
		if !filter.Status.Valid() {
			return nil, 0, errs.Validation("invalid status filter: %q", *filter.Status)
		}
		status := string(*filter.Status)
		repoFilter.Status = &status
	}
	if filter.LoanType != nil {
		if !filter.LoanType.Valid() {
			return nil, 0, errs.Validation("invalid loan type filter: %q", *filter.LoanType)
		}
		loanType := string(*filter.LoanType)
		repoFilter.LoanType = &loanType
	}
	repoFilter.Location = filter.Location
	repoFilter.Text = filter.Text

	models, total, err := s.appRepo.FindByFilter(repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search applications: %w", err)
	}

	apps := make([]*Application, 0, len(models))
	for _, m := range models {
		app, err := s.load(m.ID)
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}
	return apps, total, nil
}

// MarkUnderReview 开始审查,submitted -> under_review
func (s *applicationService) MarkUnderReview(ctx context.Context, id string) (*Application, error) {
	return s.transition(ctx, id, types.StatusUnderReview)
}

// Approve 批准,under_review -> approved
func (s *applicationService) Approve(ctx context.Context, id string) (*Application, error) {
	return s.transition(ctx, id, types.StatusApproved)
}

// Reject 拒绝,under_review -> rejected
func (s *applicationService) Reject(ctx context.Context, id string) (*Application, error) {
	return s.transition(ctx, id, types.StatusRejected)
}

// transition 执行一次状态转换
// 守卫校验后用状态比较交换落库:只有当前状态仍为校验时所见状态才写入,
// 并发抢先的转换会使本次失败并重新按守卫报告
func (s *applicationService) transition(ctx context.Context, id string, to types.ApplicationStatus) (*Application, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, errs.Forbidden("missing actor identity")
	}

	app, err := s.appRepo.FindByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("application %s not found", id)
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	from := types.ApplicationStatus(app.Status)
	if err := statemachine.Validate(actor.Role, from, to); err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		updated, err := s.appRepo.UpdateStatusCAS(tx, id, string(from), string(to), now)
		if err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		if !updated {
			// 并发转换抢先,当前状态已不是校验时所见
			return errs.InvalidTransition("application %s is no longer in status %q", id, from)
		}
		entry := &model.StatusHistoryModel{
			ID:            uuid.New().String(),
			ApplicationID: id,
			FromStatus:    string(from),
			ToStatus:      string(to),
			Actor:         actor.ID,
			ActorRole:     string(actor.Role),
			CreatedAt:     now,
		}
		if err := s.historyRepo.Save(tx, entry); err != nil {
			return fmt.Errorf("failed to record status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordReviewDecision(string(to))

	if s.notifier != nil {
		s.notifier.NotifyStatusChange(id, app.ApplicantID, from, to, actor.ID)
	}
	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, actor.ID, string(to), "application", id, map[string]string{
			"from": string(from),
			"to":   string(to),
		})
	}

	return s.load(id)
}

// AddNotes 追加审查备注,不触碰状态,任意阶段管理员可用
func (s *applicationService) AddNotes(ctx context.Context, id, notes string) (*Application, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, errs.Forbidden("missing actor identity")
	}
	if !actor.IsAdministrator() {
		return nil, errs.Forbidden("only administrators may add review notes")
	}

	updated, err := s.appRepo.UpdateReviewNotes(id, notes, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to update review notes: %w", err)
	}
	if !updated {
		return nil, errs.NotFound("application %s not found", id)
	}

	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, actor.ID, "add_notes", "application", id, map[string]string{
			"notes_length": fmt.Sprintf("%d", len(notes)),
		})
	}

	return s.load(id)
}

// Archive 软归档申请
// 申请永不物理删除,审计链保持完整
func (s *applicationService) Archive(ctx context.Context, id string) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return errs.Forbidden("missing actor identity")
	}
	if !actor.IsAdministrator() {
		return errs.Forbidden("only administrators may archive applications")
	}

	archived, err := s.appRepo.Archive(id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to archive application: %w", err)
	}
	if !archived {
		return errs.NotFound("application %s not found", id)
	}

	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, actor.ID, "archive", "application", id, map[string]string{
			"archived_by": actor.ID,
		})
	}

	return nil
}

// load 装配完整申请视图(文档 + 状态历史)
func (s *applicationService) load(id string) (*Application, error) {
	app, err := s.appRepo.FindByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("application %s not found", id)
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	docs, err := s.docRepo.FindByOwner(id, string(types.OwnerApplication))
	if err != nil {
		return nil, fmt.Errorf("failed to load application documents: %w", err)
	}
	history, err := s.historyRepo.FindByApplicationID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	return applicationView(app, docs, history)
}

// validateForSubmission 校验提交所需字段的完备性
// 租房与土地贷款要求互斥且恰好一组专属字段,缺失字段一次性汇总上报
func validateForSubmission(pi *model.PersonalInfo, emp *model.Employment, ld *model.LoanDetails) (types.LoanType, error) {
	var missing []string

	if pi.FullName == "" {
		missing = append(missing, "personal_info.full_name")
	}
	if pi.Email == "" {
		missing = append(missing, "personal_info.email")
	}
	if pi.Phone == "" {
		missing = append(missing, "personal_info.phone")
	}
	if pi.IDNumber == "" {
		missing = append(missing, "personal_info.id_number")
	}
	if emp.EmployerName == "" {
		missing = append(missing, "employment.employer_name")
	}
	if emp.MonthlyIncome == nil {
		missing = append(missing, "employment.monthly_income")
	}
	if ld.LoanAmount == nil {
		missing = append(missing, "loan_details.loan_amount")
	}
	if ld.DurationMonths <= 0 {
		missing = append(missing, "loan_details.duration_months")
	}

	loanType := ld.LoanType()
	switch loanType {
	case types.LoanTypeRent:
		if ld.Rent.LandlordName == "" {
			missing = append(missing, "loan_details.rent.landlord_name")
		}
		if ld.Rent.LandlordContact == "" {
			missing = append(missing, "loan_details.rent.landlord_contact")
		}
		if ld.Rent.PropertyAddress == "" {
			missing = append(missing, "loan_details.rent.property_address")
		}
		if ld.Rent.MonthlyRent == nil {
			missing = append(missing, "loan_details.rent.monthly_rent")
		}
	case types.LoanTypeLand:
		if ld.Land.DeveloperName == "" {
			missing = append(missing, "loan_details.land.developer_name")
		}
		if ld.Land.DeveloperContact == "" {
			missing = append(missing, "loan_details.land.developer_contact")
		}
		if ld.Land.PlotNumber == "" {
			missing = append(missing, "loan_details.land.plot_number")
		}
	default:
		return "", errs.Validation("exactly one of rent or land details must be provided")
	}

	if len(missing) > 0 {
		return "", errs.Validation("missing required fields: %v", missing)
	}
	return loanType, nil
}

// locationOf 提取用于检索的位置字段
func locationOf(ld *model.LoanDetails) string {
	if ld.Rent != nil {
		return ld.Rent.PropertyAddress
	}
	if ld.Land != nil {
		return ld.Land.PlotLocation
	}
	return ""
}
