package service

import (
	"testing"

	"github.com/AbodeTech/Liquidity-sub001/internal/errs"
	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"github.com/AbodeTech/Liquidity-sub001/internal/repository"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)
	ctx := applicantCtx("user-1")

	draft, err := svc.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, draft.ID)
	assert.Equal(t, "user-1", draft.ApplicantID)
	assert.Equal(t, FirstWizardStep, draft.CurrentStep)
	assert.Empty(t, draft.Documents)
}

func TestDraftCreateSecondOpenDraftConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)
	ctx := applicantCtx("user-1")

	_, err := svc.Create(ctx)
	require.NoError(t, err)

	// 同一申请人第二份在途草稿被策略拒绝
	_, err = svc.Create(ctx)
	assert.True(t, errs.IsKind(err, errs.KindConflict))

	// 其他申请人不受影响
	_, err = svc.Create(applicantCtx("user-2"))
	assert.NoError(t, err)
}

func TestDraftUpdateMergesFields(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)
	ctx := applicantCtx("user-1")

	draft, err := svc.Create(ctx)
	require.NoError(t, err)

	// 第一步只填个人信息
	_, err = svc.Update(ctx, draft.ID, &UpdateDraftRequest{
		PersonalInfo: &model.PersonalInfo{FullName: "Ama Mensah", Email: "ama@example.com"},
	})
	require.NoError(t, err)

	// 第二步填雇佣信息,不带个人信息
	updated, err := svc.Update(ctx, draft.ID, &UpdateDraftRequest{
		CurrentStep: strptr("employment"),
		Employment:  &model.Employment{EmployerName: "Acme Logistics", MonthlyIncome: dec("4200.00")},
	})
	require.NoError(t, err)

	// 先前的个人信息未被覆盖
	require.NotNil(t, updated.PersonalInfo)
	assert.Equal(t, "Ama Mensah", updated.PersonalInfo.FullName)
	assert.Equal(t, "ama@example.com", updated.PersonalInfo.Email)
	require.NotNil(t, updated.Employment)
	assert.Equal(t, "Acme Logistics", updated.Employment.EmployerName)
	assert.Equal(t, "employment", updated.CurrentStep)
}

func TestDraftUpdateFieldLevelMerge(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)
	ctx := applicantCtx("user-1")

	draft, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.Update(ctx, draft.ID, &UpdateDraftRequest{
		PersonalInfo: &model.PersonalInfo{FullName: "Ama Mensah", Phone: "+233201234567"},
	})
	require.NoError(t, err)

	// 同一对象内只更新 email,其余字段保留
	updated, err := svc.Update(ctx, draft.ID, &UpdateDraftRequest{
		PersonalInfo: &model.PersonalInfo{Email: "ama@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Ama Mensah", updated.PersonalInfo.FullName)
	assert.Equal(t, "+233201234567", updated.PersonalInfo.Phone)
	assert.Equal(t, "ama@example.com", updated.PersonalInfo.Email)
}

func TestDraftUpdateRentAndLandMutuallyExclusive(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)
	ctx := applicantCtx("user-1")

	draft, err := svc.Create(ctx)
	require.NoError(t, err)

	// 一个请求同时携带两个子集 -> VALIDATION
	_, err = svc.Update(ctx, draft.ID, &UpdateDraftRequest{
		LoanDetails: &model.LoanDetails{
			Rent: &model.RentDetails{LandlordName: "Kofi Properties"},
			Land: &model.LandDetails{DeveloperName: "Lakeside Estates"},
		},
	})
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	// 先填租房,再切换土地:租房子集被清除
	_, err = svc.Update(ctx, draft.ID, &UpdateDraftRequest{
		LoanDetails: &model.LoanDetails{Rent: &model.RentDetails{LandlordName: "Kofi Properties"}},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, draft.ID, &UpdateDraftRequest{
		LoanDetails: &model.LoanDetails{Land: &model.LandDetails{DeveloperName: "Lakeside Estates"}},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.LoanDetails.Rent)
	require.NotNil(t, updated.LoanDetails.Land)
	assert.Equal(t, types.LoanTypeLand, updated.LoanDetails.LoanType())
}

func TestDraftUpdateRereadsAfterConcurrentBump(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)
	ctx := applicantCtx("user-1")

	draft, err := svc.Create(ctx)
	require.NoError(t, err)

	// 模拟并发写入抢先推进了版本号
	require.NoError(t, db.Exec("UPDATE drafts SET version = version + 100 WHERE id = ?", draft.ID).Error)

	// 更新重读后以当前版本合并,仍应成功
	updated, err := svc.Update(ctx, draft.ID, &UpdateDraftRequest{CurrentStep: strptr("employment")})
	require.NoError(t, err)
	assert.Equal(t, "employment", updated.CurrentStep)
}

func TestDraftUpdateWithVersionMismatchReturnsFalse(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)
	ctx := applicantCtx("user-1")

	draft, err := svc.Create(ctx)
	require.NoError(t, err)

	draftRepo := repository.NewDraftRepository(db)
	stored, err := draftRepo.FindByID(draft.ID)
	require.NoError(t, err)
	versionBefore := stored.Version

	// 过期版本号的 CAS 写入不落库,且不得篡改内存模型的版本号
	ok, err := draftRepo.UpdateWithVersion(stored, versionBefore+5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, versionBefore, stored.Version)

	// 未命中后用当前版本号重试仍可命中
	ok, err = draftRepo.UpdateWithVersion(stored, stored.Version)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, versionBefore+1, stored.Version)

	after, err := draftRepo.FindByID(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, versionBefore+1, after.Version)
}

// alwaysStaleDraftRepo CAS 永不命中的测试桩,用于数出重试次数
type alwaysStaleDraftRepo struct {
	repository.DraftRepository
	attempts int
}

func (r *alwaysStaleDraftRepo) UpdateWithVersion(draft *model.DraftModel, expectedVersion int64) (bool, error) {
	r.attempts++
	return false, nil
}

func TestDraftUpdateRetryLimitFromConfig(t *testing.T) {
	db := newTestDB(t)

	// 非正数回落到默认上限,正数原样生效
	svc := NewDraftService(db, newAuditLogService(db), 0)
	assert.Equal(t, defaultUpdateRetryLimit, svc.(*draftService).retryLimit)
	svc = NewDraftService(db, newAuditLogService(db), 7)
	assert.Equal(t, 7, svc.(*draftService).retryLimit)

	ctx := applicantCtx("user-1")
	draft, err := svc.Create(ctx)
	require.NoError(t, err)

	// 配置的上限真实约束重试次数,耗尽后以冲突上报
	stale := &alwaysStaleDraftRepo{DraftRepository: repository.NewDraftRepository(db)}
	bounded := &draftService{
		db:          db,
		draftRepo:   stale,
		docRepo:     repository.NewDocumentRepository(db),
		auditLogSvc: newAuditLogService(db),
		retryLimit:  2,
	}
	_, err = bounded.Update(ctx, draft.ID, &UpdateDraftRequest{CurrentStep: strptr("employment")})
	assert.True(t, errs.IsKind(err, errs.KindConflict))
	assert.Equal(t, 2, stale.attempts)
}

func TestDraftRepoDeleteMissingReportsNotFound(t *testing.T) {
	db := newTestDB(t)
	draftRepo := repository.NewDraftRepository(db)

	err := draftRepo.Delete(nil, "no-such-draft")
	require.Error(t, err)
	assert.True(t, repository.IsNotFound(err))
}

func TestDraftUpdateOwnershipEnforced(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)

	draft, err := svc.Create(applicantCtx("user-1"))
	require.NoError(t, err)

	_, err = svc.Update(applicantCtx("user-2"), draft.ID, &UpdateDraftRequest{CurrentStep: strptr("x")})
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}

func TestDraftGetOwnerOrAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)

	draft, err := svc.Create(applicantCtx("user-1"))
	require.NoError(t, err)

	_, err = svc.Get(applicantCtx("user-1"), draft.ID)
	assert.NoError(t, err)

	_, err = svc.Get(adminCtx("admin-1"), draft.ID)
	assert.NoError(t, err)

	_, err = svc.Get(applicantCtx("user-2"), draft.ID)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))

	_, err = svc.Get(applicantCtx("user-1"), "missing-id")
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestDraftDeleteCascadesDocuments(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)
	ctx := applicantCtx("user-1")

	draft, err := svc.Create(ctx)
	require.NoError(t, err)

	// 直接登记两份文档元数据
	docRepo := repository.NewDocumentRepository(db)
	for i, id := range []string{"doc-1", "doc-2"} {
		require.NoError(t, docRepo.Create(&model.DocumentModel{
			ID:           id,
			OwnerID:      draft.ID,
			OwnerKind:    string(types.OwnerDraft),
			DocumentType: string(types.DocumentIDCard),
			DocumentURL:  "https://storage.googleapis.com/bucket/doc-" + string(rune('a'+i)),
			UploadedAt:   draft.UpdatedAt,
		}))
	}

	require.NoError(t, svc.Delete(ctx, draft.ID))

	// 草稿与文档元数据一并消失
	_, err = svc.Get(ctx, draft.ID)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))

	docs, err := docRepo.FindByOwner(draft.ID, string(types.OwnerDraft))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDraftListScopedToActor(t *testing.T) {
	db := newTestDB(t)
	svc := NewDraftService(db, newAuditLogService(db), 0)

	_, err := svc.Create(applicantCtx("user-1"))
	require.NoError(t, err)
	_, err = svc.Create(applicantCtx("user-2"))
	require.NoError(t, err)

	drafts, err := svc.List(applicantCtx("user-1"))
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "user-1", drafts[0].ApplicantID)
}
