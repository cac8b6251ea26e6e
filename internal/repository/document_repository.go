package repository

import (
	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"gorm.io/gorm"
)

// DocumentRepository 文档元数据仓储接口
type DocumentRepository interface {
	Create(doc *model.DocumentModel) error
	FindByID(id string) (*model.DocumentModel, error)
	FindByOwner(ownerID, ownerKind string) ([]*model.DocumentModel, error)
	FindByURLAndOwner(documentURL, ownerID string) (*model.DocumentModel, error)
	Delete(tx *gorm.DB, id string) error
	DeleteByOwner(tx *gorm.DB, ownerID, ownerKind string) error
}

// documentRepository 文档元数据仓储实现
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建文档仓储
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 创建文档元数据
func (r *documentRepository) Create(doc *model.DocumentModel) error {
	return r.db.Create(doc).Error
}

// FindByID 根据 ID 查找文档
func (r *documentRepository) FindByID(id string) (*model.DocumentModel, error) {
	var doc model.DocumentModel
	if err := r.db.Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByOwner 查找归属实体的全部文档,按上传时间正序(保持引用序列有序)
func (r *documentRepository) FindByOwner(ownerID, ownerKind string) ([]*model.DocumentModel, error) {
	var docs []*model.DocumentModel
	err := r.db.Where("owner_id = ? AND owner_kind = ?", ownerID, ownerKind).
		Order("uploaded_at ASC").
		Find(&docs).Error
	return docs, err
}

// FindByURLAndOwner 根据引用 URL 与归属实体查找文档
func (r *documentRepository) FindByURLAndOwner(documentURL, ownerID string) (*model.DocumentModel, error) {
	var doc model.DocumentModel
	if err := r.db.Where("document_url = ? AND owner_id = ?", documentURL, ownerID).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete 删除单个文档元数据
func (r *documentRepository) Delete(tx *gorm.DB, id string) error {
	db := tx
	if db == nil {
		db = r.db
	}
	result := db.Where("id = ?", id).Delete(&model.DocumentModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByOwner 级联删除归属实体的全部文档元数据
func (r *documentRepository) DeleteByOwner(tx *gorm.DB, ownerID, ownerKind string) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Where("owner_id = ? AND owner_kind = ?", ownerID, ownerKind).
		Delete(&model.DocumentModel{}).Error
}

// ReparentDocuments 批量把文档从草稿重挂到申请
// 只在提交事务内调用。按归属整体改写而非逐个指定,
// 事务提交时挂在草稿名下的文档一个不漏,不会因快照滞后产生孤儿
func ReparentDocuments(tx *gorm.DB, fromDraftID, toApplicationID string) error {
	return tx.Model(&model.DocumentModel{}).
		Where("owner_id = ? AND owner_kind = ?", fromDraftID, string(types.OwnerDraft)).
		Updates(map[string]interface{}{
			"owner_id":   toApplicationID,
			"owner_kind": string(types.OwnerApplication),
		}).Error
}
