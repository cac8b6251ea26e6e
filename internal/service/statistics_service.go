package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/auth"
	"github.com/AbodeTech/Liquidity-sub001/internal/errs"
	"github.com/AbodeTech/Liquidity-sub001/internal/repository"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"gorm.io/gorm"
)

// StatisticsService 申请统计聚合服务接口
// 每次调用从存储重新聚合,不维护增量计数器,数值始终与申请表一致
type StatisticsService interface {
	Overview(ctx context.Context) (*StatisticsOverview, error)
	StatusBreakdown(ctx context.Context) ([]*BreakdownEntry, error)
	TypeBreakdown(ctx context.Context) ([]*BreakdownEntry, error)
	Trends(ctx context.Context) (*SubmissionTrends, error)
}

// StatisticsOverview 总览统计
type StatisticsOverview struct {
	Total    int64             `json:"total"`
	ByStatus []*BreakdownEntry `json:"by_status"`
	ByType   []*BreakdownEntry `json:"by_type"`
}

// BreakdownEntry 分组统计条目
type BreakdownEntry struct {
	Key        string `json:"key"`
	Count      int64  `json:"count"`
	Percentage int    `json:"percentage"`
}

// SubmissionTrends 提交趋势,按本服务器时区的自然日/周/月窗口计数
type SubmissionTrends struct {
	Today     int64 `json:"today"`
	ThisWeek  int64 `json:"this_week"`
	ThisMonth int64 `json:"this_month"`
}

// statisticsService 申请统计聚合服务实现
type statisticsService struct {
	appRepo repository.ApplicationRepository
	now     func() time.Time
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{
		appRepo: repository.NewApplicationRepository(db),
		now:     time.Now,
	}
}

// Overview 获取总量及状态、类型两个维度的分布
func (s *statisticsService) Overview(ctx context.Context) (*StatisticsOverview, error) {
	if err := requireAdministrator(ctx); err != nil {
		return nil, err
	}

	byStatus, total, err := s.statusBreakdown()
	if err != nil {
		return nil, err
	}
	byType, _, err := s.typeBreakdown()
	if err != nil {
		return nil, err
	}

	return &StatisticsOverview{
		Total:    total,
		ByStatus: byStatus,
		ByType:   byType,
	}, nil
}

// StatusBreakdown 按状态统计数量与占比
func (s *statisticsService) StatusBreakdown(ctx context.Context) ([]*BreakdownEntry, error) {
	if err := requireAdministrator(ctx); err != nil {
		return nil, err
	}
	entries, _, err := s.statusBreakdown()
	return entries, err
}

// TypeBreakdown 按贷款类型统计数量与占比
func (s *statisticsService) TypeBreakdown(ctx context.Context) ([]*BreakdownEntry, error) {
	if err := requireAdministrator(ctx); err != nil {
		return nil, err
	}
	entries, _, err := s.typeBreakdown()
	return entries, err
}

// Trends 统计当日、当周(周一起)、当月的提交量
// 窗口为 [起点, 当前时刻),使用服务器本地时区
func (s *statisticsService) Trends(ctx context.Context) (*SubmissionTrends, error) {
	if err := requireAdministrator(ctx); err != nil {
		return nil, err
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfWeek := startOfWeek(now)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	today, err := s.appRepo.CountSubmittedSince(startOfDay, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's submissions: %w", err)
	}
	thisWeek, err := s.appRepo.CountSubmittedSince(startOfWeek, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count this week's submissions: %w", err)
	}
	thisMonth, err := s.appRepo.CountSubmittedSince(startOfMonth, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count this month's submissions: %w", err)
	}

	return &SubmissionTrends{
		Today:     today,
		ThisWeek:  thisWeek,
		ThisMonth: thisMonth,
	}, nil
}

func (s *statisticsService) statusBreakdown() ([]*BreakdownEntry, int64, error) {
	counts, err := s.appRepo.CountByStatus()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count by status: %w", err)
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	// 固定枚举序输出,零计数状态也出现在结果中
	entries := make([]*BreakdownEntry, 0, len(types.AllStatuses()))
	for _, status := range types.AllStatuses() {
		count := counts[string(status)]
		entries = append(entries, &BreakdownEntry{
			Key:        string(status),
			Count:      count,
			Percentage: percentage(count, total),
		})
	}
	return entries, total, nil
}

func (s *statisticsService) typeBreakdown() ([]*BreakdownEntry, int64, error) {
	counts, err := s.appRepo.CountByLoanType()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count by loan type: %w", err)
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	entries := make([]*BreakdownEntry, 0, 2)
	for _, loanType := range []types.LoanType{types.LoanTypeRent, types.LoanTypeLand} {
		count := counts[string(loanType)]
		entries = append(entries, &BreakdownEntry{
			Key:        string(loanType),
			Count:      count,
			Percentage: percentage(count, total),
		})
	}
	return entries, total, nil
}

// percentage 四舍五入到整数百分比,总量为零时返回 0 而不是除零
func percentage(count, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// startOfWeek 本周起点,周一 00:00 本地时区
func startOfWeek(now time.Time) time.Time {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // 周日视为一周第七天
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.AddDate(0, 0, -(weekday - 1))
}

// requireAdministrator 统计端点仅管理员可用
func requireAdministrator(ctx context.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return errs.Forbidden("missing actor identity")
	}
	if !actor.IsAdministrator() {
		return errs.Forbidden("only administrators may access statistics")
	}
	return nil
}
