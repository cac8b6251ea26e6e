package database

import (
	"context"
	"fmt"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/config"
	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// GetProductionPoolConfig 获取生产环境连接池配置
func GetProductionPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    20,
		MaxOpenConns:    200,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 300,  // 5 分钟（生产环境缩短空闲时间）
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return connect(cfg, GetPoolConfig())
}

// ConnectProduction 连接数据库（生产环境连接池配置）
func ConnectProduction(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return connect(cfg, GetProductionPoolConfig())
}

func connect(cfg config.DatabaseConfig, fallback *PoolConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置中的连接池参数优先,没填的项回落到默认值
	poolConfig := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if poolConfig.MaxIdleConns == 0 {
		poolConfig.MaxIdleConns = fallback.MaxIdleConns
	}
	if poolConfig.MaxOpenConns == 0 {
		poolConfig.MaxOpenConns = fallback.MaxOpenConns
	}
	if poolConfig.ConnMaxLifetime == 0 {
		poolConfig.ConnMaxLifetime = fallback.ConnMaxLifetime
	}
	if poolConfig.ConnMaxIdleTime == 0 {
		poolConfig.ConnMaxIdleTime = fallback.ConnMaxIdleTime
	}

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb，需要手动创建表
	// GORM SQLite dialector 的名称可能是 "sqlite" 或 "sqlite3"
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		if err := db.AutoMigrate(
			&model.DraftModel{},
			&model.ApplicationModel{},
			&model.DocumentModel{},
			&model.StatusHistoryModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表（使用 TEXT 替代 jsonb）
func createSQLiteTables(db *gorm.DB) error {
	// 创建 drafts 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS drafts (
			id VARCHAR(64) PRIMARY KEY,
			applicant_id VARCHAR(64) NOT NULL,
			current_step VARCHAR(64) NOT NULL,
			personal_info TEXT,
			employment TEXT,
			loan_details TEXT,
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create drafts table: %w", err)
	}

	// 创建 applications 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS applications (
			id VARCHAR(64) PRIMARY KEY,
			applicant_id VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL,
			loan_type VARCHAR(16) NOT NULL,
			location VARCHAR(255),
			personal_info TEXT NOT NULL,
			employment TEXT NOT NULL,
			loan_details TEXT NOT NULL,
			review_notes TEXT,
			submitted_at DATETIME,
			archived_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create applications table: %w", err)
	}

	// 创建 documents 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id VARCHAR(64) PRIMARY KEY,
			owner_id VARCHAR(64) NOT NULL,
			owner_kind VARCHAR(16) NOT NULL,
			document_type VARCHAR(32) NOT NULL,
			document_url TEXT NOT NULL,
			uploaded_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	// 创建 status_history 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS status_history (
			id VARCHAR(64) PRIMARY KEY,
			application_id VARCHAR(64) NOT NULL,
			from_status VARCHAR(32),
			to_status VARCHAR(32) NOT NULL,
			actor VARCHAR(64) NOT NULL,
			actor_role VARCHAR(16) NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create status_history table: %w", err)
	}

	// 创建 audit_logs 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// drafts 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_drafts_applicant_id ON drafts(applicant_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_drafts_applicant_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_drafts_updated_at ON drafts(updated_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_drafts_updated_at: %w", err)
	}

	// applications 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_applications_applicant_id ON applications(applicant_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_applications_applicant_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_applications_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_applications_loan_type ON applications(loan_type)").Error; err != nil {
		return fmt.Errorf("failed to create idx_applications_loan_type: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_applications_location ON applications(location)").Error; err != nil {
		return fmt.Errorf("failed to create idx_applications_location: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_applications_submitted_at ON applications(submitted_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_applications_submitted_at: %w", err)
	}

	// documents 表索引,owner 组合索引支撑归属查询
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id, owner_kind)").Error; err != nil {
		return fmt.Errorf("failed to create idx_documents_owner: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_documents_uploaded_at: %w", err)
	}

	// status_history 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_application_id ON status_history(application_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_application_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_created_at ON status_history(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_created_at: %w", err)
	}

	// audit_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_created_at: %w", err)
	}

	// PostgreSQL 特定的 GIN 索引
	if dialector == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_applications_loan_details_gin ON applications USING GIN (loan_details)").Error; err != nil {
			return fmt.Errorf("failed to create idx_applications_loan_details_gin: %w", err)
		}
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_drafts_loan_details_gin ON drafts USING GIN (loan_details)").Error; err != nil {
			return fmt.Errorf("failed to create idx_drafts_loan_details_gin: %w", err)
		}
	}

	return nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}

// Reconnect 重新连接数据库
func Reconnect(cfg config.DatabaseConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return Connect(cfg)
}
