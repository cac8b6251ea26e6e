package repository

import (
	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"gorm.io/gorm"
)

// StatusHistoryRepository 状态历史仓储接口
type StatusHistoryRepository interface {
	Save(tx *gorm.DB, entry *model.StatusHistoryModel) error
	FindByApplicationID(applicationID string) ([]*model.StatusHistoryModel, error)
}

// statusHistoryRepository 状态历史仓储实现
type statusHistoryRepository struct {
	db *gorm.DB
}

// NewStatusHistoryRepository 创建状态历史仓储
func NewStatusHistoryRepository(db *gorm.DB) StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

// Save 追加状态历史记录,tx 为 nil 时使用默认连接
func (r *statusHistoryRepository) Save(tx *gorm.DB, entry *model.StatusHistoryModel) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(entry).Error
}

// FindByApplicationID 按时间正序返回申请的状态历史
func (r *statusHistoryRepository) FindByApplicationID(applicationID string) ([]*model.StatusHistoryModel, error) {
	var entries []*model.StatusHistoryModel
	err := r.db.Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
