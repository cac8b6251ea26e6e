package repository

import (
	"errors"

	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"gorm.io/gorm"
)

// DraftRepository 草稿仓储接口
type DraftRepository interface {
	Create(draft *model.DraftModel) error
	FindByID(id string) (*model.DraftModel, error)
	FindByApplicant(applicantID string) ([]*model.DraftModel, error)
	CountByApplicant(applicantID string) (int64, error)
	// UpdateWithVersion 乐观并发写入:仅当存储版本等于 expectedVersion 时更新,
	// 返回是否命中。未命中由调用方决定重试或报告冲突
	UpdateWithVersion(draft *model.DraftModel, expectedVersion int64) (bool, error)
	Delete(tx *gorm.DB, id string) error
}

// draftRepository 草稿仓储实现
type draftRepository struct {
	db *gorm.DB
}

// NewDraftRepository 创建草稿仓储
func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{db: db}
}

// Create 创建草稿
func (r *draftRepository) Create(draft *model.DraftModel) error {
	return r.db.Create(draft).Error
}

// FindByID 根据 ID 查找草稿
func (r *draftRepository) FindByID(id string) (*model.DraftModel, error) {
	var draft model.DraftModel
	if err := r.db.Where("id = ?", id).First(&draft).Error; err != nil {
		return nil, err
	}
	return &draft, nil
}

// FindByApplicant 查找申请人的全部草稿,按更新时间倒序
func (r *draftRepository) FindByApplicant(applicantID string) ([]*model.DraftModel, error) {
	var drafts []*model.DraftModel
	err := r.db.Where("applicant_id = ?", applicantID).
		Order("updated_at DESC").
		Find(&drafts).Error
	return drafts, err
}

// CountByApplicant 统计申请人的在途草稿数
func (r *draftRepository) CountByApplicant(applicantID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.DraftModel{}).
		Where("applicant_id = ?", applicantID).
		Count(&count).Error
	return count, err
}

// UpdateWithVersion 带版本检查的更新
// 未命中时不触碰调用方模型,version 字段仅在写入成功后推进
func (r *draftRepository) UpdateWithVersion(draft *model.DraftModel, expectedVersion int64) (bool, error) {
	newVersion := expectedVersion + 1
	result := r.db.Model(&model.DraftModel{}).
		Where("id = ? AND version = ?", draft.ID, expectedVersion).
		Updates(map[string]interface{}{
			"current_step":  draft.CurrentStep,
			"personal_info": draft.PersonalInfo,
			"employment":    draft.Employment,
			"loan_details":  draft.LoanDetails,
			"version":       newVersion,
			"updated_at":    draft.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected != 1 {
		return false, nil
	}
	draft.Version = newVersion
	return true, nil
}

// Delete 删除草稿,tx 为 nil 时使用默认连接
func (r *draftRepository) Delete(tx *gorm.DB, id string) error {
	db := tx
	if db == nil {
		db = r.db
	}
	result := db.Where("id = ?", id).Delete(&model.DraftModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound 判断是否为记录不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
