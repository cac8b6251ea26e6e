package api

import (
	"github.com/AbodeTech/Liquidity-sub001/internal/service"
	"github.com/gin-gonic/gin"
)

// StatisticsController 统计控制器
type StatisticsController struct {
	statisticsService service.StatisticsService
}

// NewStatisticsController 创建统计控制器
func NewStatisticsController(statisticsService service.StatisticsService) *StatisticsController {
	return &StatisticsController{
		statisticsService: statisticsService,
	}
}

// Overview 统计总览
// GET /api/v1/statistics/overview
func (c *StatisticsController) Overview(ctx *gin.Context) {
	overview, err := c.statisticsService.Overview(ctx.Request.Context())
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, overview)
}

// ByStatus 按状态分布
// GET /api/v1/statistics/status
func (c *StatisticsController) ByStatus(ctx *gin.Context) {
	entries, err := c.statisticsService.StatusBreakdown(ctx.Request.Context())
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, entries)
}

// ByType 按贷款类型分布
// GET /api/v1/statistics/types
func (c *StatisticsController) ByType(ctx *gin.Context) {
	entries, err := c.statisticsService.TypeBreakdown(ctx.Request.Context())
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, entries)
}

// Trends 提交趋势
// GET /api/v1/statistics/trends
func (c *StatisticsController) Trends(ctx *gin.Context) {
	trends, err := c.statisticsService.Trends(ctx.Request.Context())
	if err != nil {
		Fail(ctx, err)
		return
	}

	Success(ctx, trends)
}
