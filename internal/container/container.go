package container

import (
	"context"
	"fmt"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/auth"
	"github.com/AbodeTech/Liquidity-sub001/internal/config"
	"github.com/AbodeTech/Liquidity-sub001/internal/database"
	"github.com/AbodeTech/Liquidity-sub001/internal/metrics"
	"github.com/AbodeTech/Liquidity-sub001/internal/realtime"
	"github.com/AbodeTech/Liquidity-sub001/internal/repository"
	"github.com/AbodeTech/Liquidity-sub001/internal/service"
	"github.com/AbodeTech/Liquidity-sub001/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、服务、实时推送等
type Container struct {
	db                 *gorm.DB
	tokenValidator     *auth.TokenValidator
	hub                *realtime.Hub
	uploader           storage.Uploader
	auditLogService    service.AuditLogService
	draftService       service.DraftService
	documentService    service.DocumentService
	applicationService service.ApplicationService
	statisticsService  service.StatisticsService
	metricsCollector   *metrics.Collector
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	var db *gorm.DB
	var err error
	if config.IsProduction(cfg) {
		db, err = database.ConnectProduction(cfg.Database)
	} else {
		db, err = database.ConnectWithRetry(cfg.Database, 3, time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化令牌验证器,申请人与管理员分属独立密钥域
	tokenValidator := auth.NewTokenValidator(
		cfg.Auth.Issuer,
		[]byte(cfg.Auth.ApplicantSecret),
		[]byte(cfg.Auth.AdministratorSecret),
	)

	// 3. 初始化实时推送 Hub
	hub := realtime.NewHub()
	go hub.Run()

	// 4. 初始化对象存储,未配置 bucket 时文档只能走外部 URL 登记
	var uploader storage.Uploader
	if cfg.Storage.Bucket != "" {
		gcs, err := storage.NewGCSUploader(context.Background(), cfg.Storage.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
		}
		uploader = gcs
	} else {
		logrus.Warn("storage bucket not configured, document upload endpoint disabled")
	}

	// 5. 初始化服务
	auditLogService := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	draftService := service.NewDraftService(db, auditLogService, cfg.Draft.UpdateRetryLimit)
	documentService := service.NewDocumentService(db, uploader, auditLogService)
	applicationService := service.NewApplicationService(db, auditLogService, hub)
	statisticsService := service.NewStatisticsService(db)

	// 6. 初始化指标收集器
	collector := metrics.NewCollector(db, 30*time.Second)
	collector.Start()

	return &Container{
		db:                 db,
		tokenValidator:     tokenValidator,
		hub:                hub,
		uploader:           uploader,
		auditLogService:    auditLogService,
		draftService:       draftService,
		documentService:    documentService,
		applicationService: applicationService,
		statisticsService:  statisticsService,
		metricsCollector:   collector,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// TokenValidator 获取令牌验证器
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.tokenValidator
}

// Hub 获取实时推送 Hub
func (c *Container) Hub() *realtime.Hub {
	return c.hub
}

// AuditLogService 获取审计日志服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogService
}

// DraftService 获取草稿服务
func (c *Container) DraftService() service.DraftService {
	return c.draftService
}

// DocumentService 获取文档服务
func (c *Container) DocumentService() service.DocumentService {
	return c.documentService
}

// ApplicationService 获取申请服务
func (c *Container) ApplicationService() service.ApplicationService {
	return c.applicationService
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statisticsService
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.metricsCollector != nil {
		c.metricsCollector.Stop()
	}

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
