package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/errs"
	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"github.com/AbodeTech/Liquidity-sub001/internal/repository"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedApplication 直接落库一条申请,绕过草稿流程以便控制状态与提交时间
func seedApplication(t *testing.T, db *gorm.DB, status types.ApplicationStatus, loanType types.LoanType, submittedAt time.Time) {
	t.Helper()
	empty, err := json.Marshal(struct{}{})
	require.NoError(t, err)
	repo := repository.NewApplicationRepository(db)
	require.NoError(t, repo.Create(nil, &model.ApplicationModel{
		ID:           uuid.NewString(),
		ApplicantID:  uuid.NewString(),
		Status:       string(status),
		LoanType:     string(loanType),
		PersonalInfo: empty,
		Employment:   empty,
		LoanDetails:  empty,
		SubmittedAt:  &submittedAt,
		CreatedAt:    submittedAt,
		UpdatedAt:    submittedAt,
	}))
}

func TestStatisticsRequireAdministrator(t *testing.T) {
	db := newTestDB(t)
	svc := NewStatisticsService(db)

	_, err := svc.Overview(applicantCtx("user-1"))
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
	_, err = svc.StatusBreakdown(applicantCtx("user-1"))
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
	_, err = svc.TypeBreakdown(applicantCtx("user-1"))
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
	_, err = svc.Trends(applicantCtx("user-1"))
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}

func TestStatusBreakdownPercentages(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	// 3 批准 1 拒绝
	for i := 0; i < 3; i++ {
		seedApplication(t, db, types.StatusApproved, types.LoanTypeRent, now)
	}
	seedApplication(t, db, types.StatusRejected, types.LoanTypeLand, now)

	svc := NewStatisticsService(db)
	entries, err := svc.StatusBreakdown(adminCtx("admin-1"))
	require.NoError(t, err)

	// 固定枚举序,零计数状态也在
	require.Len(t, entries, len(types.AllStatuses()))
	byKey := map[string]*BreakdownEntry{}
	for i, e := range entries {
		assert.Equal(t, string(types.AllStatuses()[i]), e.Key)
		byKey[e.Key] = e
	}

	assert.EqualValues(t, 3, byKey["approved"].Count)
	assert.Equal(t, 75, byKey["approved"].Percentage)
	assert.EqualValues(t, 1, byKey["rejected"].Count)
	assert.Equal(t, 25, byKey["rejected"].Percentage)
	assert.EqualValues(t, 0, byKey["submitted"].Count)
	assert.Equal(t, 0, byKey["submitted"].Percentage)
	assert.EqualValues(t, 0, byKey["under_review"].Count)
}

func TestTypeBreakdownRounding(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	// 2 租房 1 土地:66.67% 四舍五入为 67
	seedApplication(t, db, types.StatusSubmitted, types.LoanTypeRent, now)
	seedApplication(t, db, types.StatusSubmitted, types.LoanTypeRent, now)
	seedApplication(t, db, types.StatusSubmitted, types.LoanTypeLand, now)

	svc := NewStatisticsService(db)
	entries, err := svc.TypeBreakdown(adminCtx("admin-1"))
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "rent", entries[0].Key)
	assert.EqualValues(t, 2, entries[0].Count)
	assert.Equal(t, 67, entries[0].Percentage)
	assert.Equal(t, "land", entries[1].Key)
	assert.Equal(t, 33, entries[1].Percentage)
}

func TestOverviewEmptyDatabase(t *testing.T) {
	db := newTestDB(t)
	svc := NewStatisticsService(db)

	overview, err := svc.Overview(adminCtx("admin-1"))
	require.NoError(t, err)

	assert.Zero(t, overview.Total)
	require.Len(t, overview.ByStatus, len(types.AllStatuses()))
	for _, e := range overview.ByStatus {
		assert.Zero(t, e.Count)
		assert.Zero(t, e.Percentage) // 总量为零不触发除零
	}
	require.Len(t, overview.ByType, 2)
}

func TestStatisticsExcludeArchived(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	seedApplication(t, db, types.StatusApproved, types.LoanTypeRent, now)
	seedApplication(t, db, types.StatusApproved, types.LoanTypeRent, now)

	var id string
	require.NoError(t, db.Table("applications").Select("id").Limit(1).Scan(&id).Error)
	repo := repository.NewApplicationRepository(db)
	archived, err := repo.Archive(id, now)
	require.NoError(t, err)
	require.True(t, archived)

	svc := NewStatisticsService(db)
	overview, err := svc.Overview(adminCtx("admin-1"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, overview.Total)
}

func TestTrendsWindowBoundaries(t *testing.T) {
	db := newTestDB(t)

	// 固定时钟:2026-08-19 周三 12:00
	clock := time.Date(2026, 8, 19, 12, 0, 0, 0, time.Local)
	svc := &statisticsService{
		appRepo: repository.NewApplicationRepository(db),
		now:     func() time.Time { return clock },
	}

	// 今日窗口内
	seedApplication(t, db, types.StatusSubmitted, types.LoanTypeRent, clock.Add(-time.Hour))
	// 昨天 23:59,当日窗口外、当周当月窗口内
	seedApplication(t, db, types.StatusSubmitted, types.LoanTypeRent,
		time.Date(2026, 8, 18, 23, 59, 0, 0, time.Local))
	// 周日 8/16,周一起算的本周窗口外、当月内
	seedApplication(t, db, types.StatusSubmitted, types.LoanTypeLand,
		time.Date(2026, 8, 16, 10, 0, 0, 0, time.Local))
	// 上个月,全部窗口外
	seedApplication(t, db, types.StatusSubmitted, types.LoanTypeLand,
		time.Date(2026, 7, 31, 10, 0, 0, 0, time.Local))

	trends, err := svc.Trends(adminCtx("admin-1"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, trends.Today)
	assert.EqualValues(t, 2, trends.ThisWeek)
	assert.EqualValues(t, 3, trends.ThisMonth)
}

func TestTrendsTodayStartsAtMidnightInclusive(t *testing.T) {
	db := newTestDB(t)

	clock := time.Date(2026, 8, 19, 12, 0, 0, 0, time.Local)
	svc := &statisticsService{
		appRepo: repository.NewApplicationRepository(db),
		now:     func() time.Time { return clock },
	}

	// 恰在当日零点提交的算今天,早一毫秒的不算
	midnight := time.Date(2026, 8, 19, 0, 0, 0, 0, time.Local)
	seedApplication(t, db, types.StatusSubmitted, types.LoanTypeRent, midnight)
	seedApplication(t, db, types.StatusSubmitted, types.LoanTypeRent, midnight.Add(-time.Millisecond))

	trends, err := svc.Trends(adminCtx("admin-1"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, trends.Today)
	assert.EqualValues(t, 2, trends.ThisWeek)
	assert.EqualValues(t, 2, trends.ThisMonth)
}

func TestStartOfWeekTreatsSundayAsSeventhDay(t *testing.T) {
	// 2026-08-23 为周日,本周起点应是 8/17 周一
	sunday := time.Date(2026, 8, 23, 15, 30, 0, 0, time.Local)
	start := startOfWeek(sunday)
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, time.Monday, start.Weekday())

	// 周一当天,起点即当日零点
	monday := time.Date(2026, 8, 17, 8, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.Local), startOfWeek(monday))
}
