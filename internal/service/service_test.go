package service

import (
	"context"
	"testing"

	"github.com/AbodeTech/Liquidity-sub001/internal/auth"
	"github.com/AbodeTech/Liquidity-sub001/internal/database"
	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"github.com/AbodeTech/Liquidity-sub001/internal/repository"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB 创建内存 SQLite 数据库并迁移全部表
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// applicantCtx 申请人操作者 context
func applicantCtx(id string) context.Context {
	return auth.WithActor(context.Background(), auth.Actor{ID: id, Role: types.RoleApplicant})
}

// adminCtx 管理员操作者 context
func adminCtx(id string) context.Context {
	return auth.WithActor(context.Background(), auth.Actor{ID: id, Role: types.RoleAdministrator})
}

// dec 构造 decimal 指针
func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// strptr 构造字符串指针
func strptr(s string) *string {
	return &s
}

// newAuditLogService 测试用审计日志服务
func newAuditLogService(db *gorm.DB) AuditLogService {
	return NewAuditLogService(repository.NewAuditLogRepository(db))
}

// fillRentDraft 把草稿填充为可提交的租房贷款申请
func fillRentDraft(t *testing.T, ctx context.Context, svc DraftService, draftID string) *Draft {
	t.Helper()
	draft, err := svc.Update(ctx, draftID, &UpdateDraftRequest{
		CurrentStep: strptr("review"),
		PersonalInfo: &model.PersonalInfo{
			FullName: "Ama Mensah",
			Email:    "ama@example.com",
			Phone:    "+233201234567",
			IDNumber: "GHA-123456789-0",
			Address:  "12 Ring Road, Accra",
		},
		Employment: &model.Employment{
			EmployerName:  "Acme Logistics",
			JobTitle:      "Dispatcher",
			MonthlyIncome: dec("4200.00"),
			YearsEmployed: 3,
		},
		LoanDetails: &model.LoanDetails{
			LoanAmount:     dec("12000.00"),
			DurationMonths: 12,
			Purpose:        "annual rent advance",
			Rent: &model.RentDetails{
				LandlordName:    "Kofi Properties",
				LandlordContact: "+233501112223",
				PropertyAddress: "45 Spintex Road, Accra",
				MonthlyRent:     dec("1000.00"),
			},
		},
	})
	require.NoError(t, err)
	return draft
}

// fillLandDraft 把草稿填充为可提交的土地贷款申请
func fillLandDraft(t *testing.T, ctx context.Context, svc DraftService, draftID string) *Draft {
	t.Helper()
	draft, err := svc.Update(ctx, draftID, &UpdateDraftRequest{
		PersonalInfo: &model.PersonalInfo{
			FullName: "Yaw Boateng",
			Email:    "yaw@example.com",
			Phone:    "+233209876543",
			IDNumber: "GHA-987654321-1",
		},
		Employment: &model.Employment{
			EmployerName:  "Volta Mills",
			MonthlyIncome: dec("6100.00"),
		},
		LoanDetails: &model.LoanDetails{
			LoanAmount:     dec("50000.00"),
			DurationMonths: 36,
			Land: &model.LandDetails{
				DeveloperName:    "Lakeside Estates",
				DeveloperContact: "+233243334445",
				PlotNumber:       "LS-204",
				PlotLocation:     "Prampram, Greater Accra",
			},
		},
	})
	require.NoError(t, err)
	return draft
}
